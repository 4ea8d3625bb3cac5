package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/content"
	"github.com/tlees/content-curator/app/database"
)

func boolPtr(v bool) *bool { return &v }

// ProcessStage converts fetched HTML into cleaned markdown. Items whose
// content is paywalled or too thin are flagged as paywalled, which is a
// terminal state for the default pipeline.
type ProcessStage struct {
	items     database.ItemRepository
	blobs     blob.Store
	converter *content.Converter
	selector  *Selector
}

func NewProcessStage(items database.ItemRepository, blobs blob.Store, converter *content.Converter) *ProcessStage {
	return &ProcessStage{
		items:     items,
		blobs:     blobs,
		converter: converter,
		selector:  NewSelector(items),
	}
}

func processRule() rule {
	return rule{
		precondition: func(i *database.ContentItem) bool { return i.HTMLPath != "" },
		done:         func(i *database.ContentItem) bool { return i.MarkdownPath != "" || i.IsPaywalled },
		filter:       database.ItemFilter{HasHTML: boolPtr(true)},
	}
}

func (s *ProcessStage) Run(ctx context.Context, sel Selection) (*Report, error) {
	report := NewReport("process")

	items, err := s.selector.Select(ctx, sel, processRule())
	if err != nil {
		return report, err
	}

	for _, item := range items {
		s.processItem(ctx, item, report)
	}

	report.Log()
	return report, nil
}

func (s *ProcessStage) processItem(ctx context.Context, item *database.ContentItem, report *Report) {
	raw, err := s.blobs.Get(ctx, item.HTMLPath)
	if err != nil {
		report.fail(item.GUID, fmt.Errorf("failed to load html: %w", err))
		return
	}

	result, err := s.converter.Run(raw, item.Link)
	if err != nil {
		report.fail(item.GUID, fmt.Errorf("failed to convert content: %w", err))
		return
	}

	if result.Rejected {
		item.IsPaywalled = true
		if err := s.items.Put(ctx, item); err != nil {
			report.fail(item.GUID, fmt.Errorf("failed to store item: %w", err))
			return
		}
		report.Succeeded++
		return
	}

	key := blob.MarkdownKey(item.GUID)
	if err := s.blobs.Put(ctx, key, []byte(markdownDocument(item, result.Markdown))); err != nil {
		report.fail(item.GUID, fmt.Errorf("failed to store markdown: %w", err))
		return
	}

	item.MarkdownPath = key
	item.IsPaywalled = false
	if err := s.items.Put(ctx, item); err != nil {
		report.fail(item.GUID, fmt.Errorf("failed to store item: %w", err))
		return
	}

	report.success(item.GUID)
}

// markdownDocument prepends the provenance header every stored markdown
// document carries.
func markdownDocument(item *database.ContentItem, markdown string) string {
	return fmt.Sprintf("Date Updated: %s\nTitle: %s\nURL Source: %s\nMarkdown Content:\n\n%s",
		time.Now().UTC().Format(time.RFC3339), item.Title, item.Link, markdown)
}
