package stages

import (
	"context"
	"fmt"

	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/database"
)

// SummarizeStage produces LLM summaries of processed markdown. Each requested
// summary type is generated and persisted independently, so a failure of one
// type leaves the others committed.
type SummarizeStage struct {
	items      database.ItemRepository
	blobs      blob.Store
	summarizer Summarizer
	selector   *Selector
}

func NewSummarizeStage(items database.ItemRepository, blobs blob.Store, summarizer Summarizer) *SummarizeStage {
	return &SummarizeStage{
		items:      items,
		blobs:      blobs,
		summarizer: summarizer,
		selector:   NewSelector(items),
	}
}

func summarizeRule(types []database.SummaryType) rule {
	return rule{
		precondition: func(i *database.ContentItem) bool { return i.MarkdownPath != "" },
		done: func(i *database.ContentItem) bool {
			for _, t := range types {
				if i.SummaryPathFor(t) == "" {
					return false
				}
			}
			return true
		},
		// Paywalled items never reach the summarizer, overwrite or not.
		hard: func(i *database.ContentItem) bool { return i.IsPaywalled },
		filter: database.ItemFilter{
			HasMarkdown: boolPtr(true),
			Paywalled:   boolPtr(false),
		},
	}
}

// Run summarizes eligible items. An empty types slice defaults to the short
// summary only.
func (s *SummarizeStage) Run(ctx context.Context, sel Selection, types []database.SummaryType) (*Report, error) {
	report := NewReport("summarize")

	if len(types) == 0 {
		types = []database.SummaryType{database.SummaryTypeShort}
	}
	for _, t := range types {
		if !t.Valid() {
			return report, fmt.Errorf("unknown summary type: %s", t)
		}
	}

	items, err := s.selector.Select(ctx, sel, summarizeRule(types))
	if err != nil {
		return report, err
	}

	for _, item := range items {
		s.summarizeItem(ctx, item, types, sel.Overwrite, report)
	}

	report.Log()
	return report, nil
}

func (s *SummarizeStage) summarizeItem(ctx context.Context, item *database.ContentItem, types []database.SummaryType, overwrite bool, report *Report) {
	markdown, err := s.blobs.Get(ctx, item.MarkdownPath)
	if err != nil {
		report.fail(item.GUID, fmt.Errorf("failed to load markdown: %w", err))
		return
	}

	for _, typ := range types {
		if item.SummaryPathFor(typ) != "" && !overwrite {
			continue
		}

		text, err := s.summarizer.Summarize(ctx, string(markdown), typ)
		if err != nil {
			report.fail(item.GUID, fmt.Errorf("failed to summarize (%s): %w", typ, err))
			return
		}

		key := summaryKey(item.GUID, typ)
		if err := s.blobs.Put(ctx, key, []byte(text)); err != nil {
			report.fail(item.GUID, fmt.Errorf("failed to store summary (%s): %w", typ, err))
			return
		}

		item.SetSummaryPath(typ, key)
		if err := s.items.Put(ctx, item); err != nil {
			report.fail(item.GUID, fmt.Errorf("failed to store item: %w", err))
			return
		}
	}

	report.success(item.GUID)
}

func summaryKey(guid string, typ database.SummaryType) string {
	if typ == database.SummaryTypeShort {
		return blob.ShortSummaryKey(guid)
	}
	return blob.SummaryKey(guid)
}
