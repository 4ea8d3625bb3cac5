package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/database"
)

// CurateStage assembles the most recent eligible items into an immutable
// digest document. Items already used in any of the last skipRecent digests
// are excluded so consecutive digests don't repeat content.
type CurateStage struct {
	items      database.ItemRepository
	digests    database.DigestRepository
	blobs      blob.Store
	summarize  *SummarizeStage
	maxItems   int
	skipRecent int
}

func NewCurateStage(items database.ItemRepository, digests database.DigestRepository, blobs blob.Store, summarize *SummarizeStage, maxItems, skipRecent int) *CurateStage {
	return &CurateStage{
		items:      items,
		digests:    digests,
		blobs:      blobs,
		summarize:  summarize,
		maxItems:   maxItems,
		skipRecent: skipRecent,
	}
}

// Run builds a new digest. Returns nil without error when no items are
// eligible; an existing digest is never modified.
func (s *CurateStage) Run(ctx context.Context) (*database.Digest, *Report, error) {
	report := NewReport("curate")

	selected, err := s.selectItems(ctx)
	if err != nil {
		return nil, report, err
	}

	selected, err = s.ensureSummaries(ctx, selected, report)
	if err != nil {
		return nil, report, err
	}

	if len(selected) == 0 {
		slog.Warn("No content available for curation")
		report.Log()
		return nil, report, nil
	}

	digest, err := s.writeDigest(ctx, selected, report)
	if err != nil {
		return nil, report, err
	}

	report.Log()
	return digest, report, nil
}

// selectItems picks the freshest items that have a short summary, are not
// paywalled and didn't appear in the recent digests.
func (s *CurateStage) selectItems(ctx context.Context) ([]*database.ContentItem, error) {
	recent, err := s.digests.List(ctx, s.skipRecent)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent digests: %w", err)
	}

	recentIDs := make([]string, 0, len(recent))
	for _, d := range recent {
		recentIDs = append(recentIDs, d.ID)
	}

	items, err := s.items.Scan(ctx, database.ItemFilter{
		HasShortSummary: boolPtr(true),
		Paywalled:       boolPtr(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan items: %w", err)
	}

	eligible := items[:0]
	for _, item := range items {
		if !usedRecently(item, recentIDs) {
			eligible = append(eligible, item)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return effectiveDate(eligible[i]).After(effectiveDate(eligible[j]))
	})
	if s.maxItems > 0 && len(eligible) > s.maxItems {
		eligible = eligible[:s.maxItems]
	}

	return eligible, nil
}

func usedRecently(item *database.ContentItem, recentIDs []string) bool {
	for _, id := range recentIDs {
		if item.InDigest(id) {
			return true
		}
	}
	return false
}

func effectiveDate(item *database.ContentItem) time.Time {
	if item.PublishedAt != nil {
		return *item.PublishedAt
	}
	return item.FetchedAt
}

// ensureSummaries synchronously generates the standard summary for selected
// items that only carry a short one, then drops items still missing it.
func (s *CurateStage) ensureSummaries(ctx context.Context, selected []*database.ContentItem, report *Report) ([]*database.ContentItem, error) {
	var missing []string
	for _, item := range selected {
		if item.SummaryPath == "" {
			missing = append(missing, item.GUID)
		}
	}

	if len(missing) > 0 {
		if _, err := s.summarize.Run(ctx, Selection{Candidates: missing}, []database.SummaryType{database.SummaryTypeStandard}); err != nil {
			return nil, fmt.Errorf("failed to backfill summaries: %w", err)
		}
	}

	ready := selected[:0]
	for _, item := range selected {
		if item.SummaryPath != "" {
			ready = append(ready, item)
			continue
		}

		refreshed, err := s.items.Get(ctx, item.GUID)
		if err != nil {
			report.fail(item.GUID, fmt.Errorf("failed to reload item: %w", err))
			continue
		}
		if refreshed.SummaryPath == "" {
			report.fail(item.GUID, errors.New("summary unavailable"))
			continue
		}
		ready = append(ready, refreshed)
	}

	return ready, nil
}

func (s *CurateStage) writeDigest(ctx context.Context, selected []*database.ContentItem, report *Report) (*database.Digest, error) {
	now := time.Now().UTC()
	digestID := fmt.Sprintf("digest_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8])

	doc, included := s.renderDigest(ctx, now, selected, report)
	if len(included) == 0 {
		slog.Warn("No content available for curation")
		return nil, nil
	}

	key := blob.DigestKey(digestID)
	if err := s.blobs.Put(ctx, key, []byte(doc)); err != nil {
		return nil, fmt.Errorf("failed to store digest: %w", err)
	}
	if err := s.blobs.Put(ctx, blob.LatestDigestKey, []byte(doc)); err != nil {
		slog.Warn("Failed to update latest digest alias", "error", err)
	}

	guids := make([]string, 0, len(included))
	for _, item := range included {
		guids = append(guids, item.GUID)
	}

	digest := &database.Digest{
		ID:         digestID,
		ItemGUIDs:  guids,
		DigestPath: key,
		CreatedAt:  now,
	}
	if err := s.digests.Insert(ctx, digest); err != nil {
		return nil, fmt.Errorf("failed to store digest: %w", err)
	}

	for _, item := range included {
		if err := s.items.AppendDigestKey(ctx, item.GUID, digestID); err != nil {
			report.fail(item.GUID, fmt.Errorf("failed to record digest membership: %w", err))
			continue
		}
		report.success(item.GUID)
	}

	slog.Info("Digest created", "digest", digestID, "items", len(included))
	return digest, nil
}

func (s *CurateStage) renderDigest(ctx context.Context, now time.Time, selected []*database.ContentItem, report *Report) (string, []*database.ContentItem) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Content Digest: %s\n", now.Format("January 2, 2006"))

	included := make([]*database.ContentItem, 0, len(selected))
	for _, item := range selected {
		summary, err := s.blobs.Get(ctx, item.SummaryPath)
		if err != nil {
			report.fail(item.GUID, fmt.Errorf("failed to load summary: %w", err))
			continue
		}

		fmt.Fprintf(&b, "\n### %s\n\n", item.Title)
		if item.PublishedAt != nil {
			fmt.Fprintf(&b, "Published: %s\n", item.PublishedAt.Format("2006-01-02"))
		}
		fmt.Fprintf(&b, "Source: %s\n\n%s\n", item.Link, strings.TrimSpace(string(summary)))

		included = append(included, item)
	}

	return b.String(), included
}
