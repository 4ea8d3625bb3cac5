package stages

import "log/slog"

// Report aggregates per-item outcomes of one stage invocation. Failures are
// isolated per item and never abort the batch; the failed guids stay in their
// prior state and become eligible again on the next run.
type Report struct {
	Stage       string
	Succeeded   int
	Skipped     int
	Failed      int
	FailedGUIDs []string

	// GUIDs lists the items this stage advanced, in processing order. Drivers
	// can hand it to the next stage as an explicit candidate set.
	GUIDs []string
}

func NewReport(stage string) *Report {
	return &Report{Stage: stage}
}

func (r *Report) success(guid string) {
	r.Succeeded++
	r.GUIDs = append(r.GUIDs, guid)
}

func (r *Report) skip() {
	r.Skipped++
}

func (r *Report) fail(guid string, err error) {
	r.Failed++
	if guid != "" {
		r.FailedGUIDs = append(r.FailedGUIDs, guid)
	}
	slog.Error("Item failed", "stage", r.Stage, "guid", guid, "error", err)
}

// Log emits the single summary line every stage invocation ends with.
func (r *Report) Log() {
	slog.Info("Stage completed",
		"stage", r.Stage,
		"succeeded", r.Succeeded,
		"skipped", r.Skipped,
		"failed", r.Failed)
}
