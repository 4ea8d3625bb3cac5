package stages

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/content"
	"github.com/tlees/content-curator/app/database"
)

func longHTML() string {
	return "<article><p>" + strings.Repeat("solid paragraph content with several words here. ", 20) + "</p></article>"
}

func seedFetched(t *testing.T, repo *memRepo, blobs *memBlob, guid, html string) *database.ContentItem {
	t.Helper()

	item := testItem(guid, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	item.HTMLPath = blob.HTMLKey(guid)

	if err := blobs.Put(context.Background(), item.HTMLPath, []byte(html)); err != nil {
		t.Fatalf("seed blob put failed: %v", err)
	}
	if err := repo.Put(context.Background(), item); err != nil {
		t.Fatalf("seed item put failed: %v", err)
	}
	return item
}

func TestProcessConvertsToMarkdown(t *testing.T) {
	repo := newMemRepo()
	blobs := newMemBlob()

	seedFetched(t, repo, blobs, "a", longHTML())

	stage := NewProcessStage(repo, blobs, content.NewConverter(5))

	report, err := stage.Run(context.Background(), Selection{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("expected 1 success, got %+v", report)
	}

	item, err := repo.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("item missing: %v", err)
	}
	if item.MarkdownPath != blob.MarkdownKey("a") {
		t.Errorf("markdown path not recorded: %q", item.MarkdownPath)
	}
	if item.IsPaywalled {
		t.Errorf("item wrongly flagged paywalled")
	}

	doc, err := blobs.Get(context.Background(), item.MarkdownPath)
	if err != nil {
		t.Fatalf("markdown blob missing: %v", err)
	}
	text := string(doc)
	if !strings.Contains(text, "Title: Item a") || !strings.Contains(text, "URL Source: https://example.com/a") {
		t.Errorf("provenance header missing:\n%s", text)
	}
	if !strings.Contains(text, "solid paragraph content") {
		t.Errorf("converted body missing:\n%s", text)
	}
}

func TestProcessFlagsPaywalledContent(t *testing.T) {
	repo := newMemRepo()
	blobs := newMemBlob()

	seedFetched(t, repo, blobs, "p", "<p>This story is for paid subscribers. Subscribe to continue reading the rest.</p>")

	stage := NewProcessStage(repo, blobs, content.NewConverter(5))

	report, err := stage.Run(context.Background(), Selection{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("paywall classification should count as success, got %+v", report)
	}

	item, err := repo.Get(context.Background(), "p")
	if err != nil {
		t.Fatalf("item missing: %v", err)
	}
	if !item.IsPaywalled {
		t.Errorf("paywall flag not set")
	}
	if item.MarkdownPath != "" {
		t.Errorf("paywalled item should have no markdown path, got %q", item.MarkdownPath)
	}
}

func TestProcessFlagsTooShortContent(t *testing.T) {
	repo := newMemRepo()
	blobs := newMemBlob()

	seedFetched(t, repo, blobs, "s", "<p>barely anything here</p>")

	stage := NewProcessStage(repo, blobs, content.NewConverter(80))

	if _, err := stage.Run(context.Background(), Selection{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	item, err := repo.Get(context.Background(), "s")
	if err != nil {
		t.Fatalf("item missing: %v", err)
	}
	if !item.IsPaywalled {
		t.Errorf("too-short content should be flagged like a paywall")
	}
}

func TestProcessIdempotent(t *testing.T) {
	repo := newMemRepo()
	blobs := newMemBlob()

	seedFetched(t, repo, blobs, "a", longHTML())

	stage := NewProcessStage(repo, blobs, content.NewConverter(5))

	if _, err := stage.Run(context.Background(), Selection{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	report, err := stage.Run(context.Background(), Selection{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if report.Succeeded != 0 || report.Failed != 0 {
		t.Errorf("second run should be a no-op, got %+v", report)
	}
}

func TestProcessOverwriteReclassifies(t *testing.T) {
	repo := newMemRepo()
	blobs := newMemBlob()

	item := seedFetched(t, repo, blobs, "p", longHTML())
	item.IsPaywalled = true
	if err := repo.Put(context.Background(), item); err != nil {
		t.Fatalf("seed put failed: %v", err)
	}

	stage := NewProcessStage(repo, blobs, content.NewConverter(5))

	// without overwrite the paywall flag is terminal
	report, err := stage.Run(context.Background(), Selection{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Succeeded != 0 {
		t.Errorf("paywalled item reprocessed without overwrite")
	}

	// overwrite re-evaluates and clears the stale flag
	if _, err := stage.Run(context.Background(), Selection{Overwrite: true}); err != nil {
		t.Fatalf("overwrite run failed: %v", err)
	}

	got, err := repo.Get(context.Background(), "p")
	if err != nil {
		t.Fatalf("item missing: %v", err)
	}
	if got.IsPaywalled {
		t.Errorf("paywall flag not cleared on overwrite reprocess")
	}
	if got.MarkdownPath == "" {
		t.Errorf("markdown path missing after overwrite reprocess")
	}
}
