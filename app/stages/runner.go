package stages

import (
	"context"
	"fmt"

	"github.com/tlees/content-curator/app/database"
)

// Runner bundles the pipeline stages behind a single dispatch surface shared
// by the CLI, the scheduler and the admin API.
type Runner struct {
	Fetch      *FetchStage
	Process    *ProcessStage
	Summarize  *SummarizeStage
	Curate     *CurateStage
	Distribute *DistributeStage
}

// Run executes one named stage.
func (r *Runner) Run(ctx context.Context, stage string, sel Selection, types []database.SummaryType) (*Report, error) {
	switch stage {
	case "fetch":
		return r.Fetch.Run(ctx, sel)
	case "process":
		return r.Process.Run(ctx, sel)
	case "summarize":
		return r.Summarize.Run(ctx, sel, types)
	case "curate":
		_, report, err := r.Curate.Run(ctx)
		return report, err
	case "distribute":
		return r.Distribute.Run(ctx, sel.GUID)
	default:
		return nil, fmt.Errorf("unknown stage: %s", stage)
	}
}

// RunPipeline chains fetch, process and summarize under one selection. The
// stages only communicate through the store, so items stranded by earlier
// failures get picked up again on every run.
func (r *Runner) RunPipeline(ctx context.Context, sel Selection, types []database.SummaryType) error {
	if _, err := r.Fetch.Run(ctx, sel); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if _, err := r.Process.Run(ctx, sel); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	if _, err := r.Summarize.Run(ctx, sel, types); err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	return nil
}
