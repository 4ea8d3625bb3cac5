package stages

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/database"
)

func seedSummarized(t *testing.T, repo *memRepo, blobs *memBlob, guid string, published time.Time) *database.ContentItem {
	t.Helper()

	item := testItem(guid, published)
	item.PublishedAt = timePtr(published)
	item.HTMLPath = blob.HTMLKey(guid)
	item.MarkdownPath = blob.MarkdownKey(guid)
	item.ShortSummaryPath = blob.ShortSummaryKey(guid)

	for key, text := range map[string]string{
		item.MarkdownPath:     "markdown for " + guid,
		item.ShortSummaryPath: "short summary for " + guid,
	} {
		if err := blobs.Put(context.Background(), key, []byte(text)); err != nil {
			t.Fatalf("seed blob put failed: %v", err)
		}
	}
	if err := repo.Put(context.Background(), item); err != nil {
		t.Fatalf("seed item put failed: %v", err)
	}
	return item
}

func newCurateStage(repo *memRepo, digests *memDigests, blobs *memBlob, summarizer Summarizer, maxItems, skipRecent int) *CurateStage {
	summarize := NewSummarizeStage(repo, blobs, summarizer)
	return NewCurateStage(repo, digests, blobs, summarize, maxItems, skipRecent)
}

func TestCurateBuildsDigest(t *testing.T) {
	repo := newMemRepo()
	digests := newMemDigests()
	blobs := newMemBlob()
	summarizer := &fakeSummarizer{}

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	seedSummarized(t, repo, blobs, "a", base)
	seedSummarized(t, repo, blobs, "b", base.Add(time.Hour))

	stage := newCurateStage(repo, digests, blobs, summarizer, 10, 3)

	digest, report, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if digest == nil {
		t.Fatal("expected a digest")
	}
	if report.Succeeded != 2 {
		t.Errorf("expected 2 successes, got %+v", report)
	}

	// neither item had a standard summary; curation backfills exactly those
	if len(summarizer.calls) != 2 {
		t.Fatalf("expected 2 escalation calls, got %v", summarizer.calls)
	}
	for _, typ := range summarizer.calls {
		if typ != database.SummaryTypeStandard {
			t.Errorf("escalation must generate standard summaries only, got %v", typ)
		}
	}

	stored, err := digests.Get(context.Background(), digest.ID)
	if err != nil {
		t.Fatalf("digest not stored: %v", err)
	}
	if len(stored.ItemGUIDs) != 2 {
		t.Errorf("digest should reference both items, got %v", stored.ItemGUIDs)
	}

	doc, err := blobs.Get(context.Background(), digest.DigestPath)
	if err != nil {
		t.Fatalf("digest blob missing: %v", err)
	}
	text := string(doc)
	if !strings.Contains(text, "Item a") || !strings.Contains(text, "Item b") {
		t.Errorf("digest missing item titles:\n%s", text)
	}
	if !strings.Contains(text, "standard summary") {
		t.Errorf("digest should embed standard summaries:\n%s", text)
	}

	latest, err := blobs.Get(context.Background(), blob.LatestDigestKey)
	if err != nil || string(latest) != text {
		t.Errorf("latest alias not updated")
	}

	for _, guid := range []string{"a", "b"} {
		item, err := repo.Get(context.Background(), guid)
		if err != nil {
			t.Fatalf("item missing: %v", err)
		}
		if !item.InDigest(digest.ID) {
			t.Errorf("item %s missing digest membership", guid)
		}
	}
}

func TestCurateCapsAndOrdersByPublication(t *testing.T) {
	repo := newMemRepo()
	digests := newMemDigests()
	blobs := newMemBlob()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedSummarized(t, repo, blobs, "old", base)
	seedSummarized(t, repo, blobs, "mid", base.Add(time.Hour))
	seedSummarized(t, repo, blobs, "new", base.Add(2*time.Hour))

	stage := newCurateStage(repo, digests, blobs, &fakeSummarizer{}, 2, 3)

	digest, _, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if digest == nil {
		t.Fatal("expected a digest")
	}

	if len(digest.ItemGUIDs) != 2 || digest.ItemGUIDs[0] != "new" || digest.ItemGUIDs[1] != "mid" {
		t.Errorf("expected [new mid], got %v", digest.ItemGUIDs)
	}
}

func TestCurateSkipsRecentDigestMembers(t *testing.T) {
	repo := newMemRepo()
	digests := newMemDigests()
	blobs := newMemBlob()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	used := seedSummarized(t, repo, blobs, "used", base.Add(time.Hour))
	seedSummarized(t, repo, blobs, "fresh", base)

	prior := &database.Digest{
		ID:         "digest_prior",
		ItemGUIDs:  []string{"used"},
		DigestPath: blob.DigestKey("digest_prior"),
		CreatedAt:  base,
	}
	if err := digests.Insert(context.Background(), prior); err != nil {
		t.Fatalf("seed digest failed: %v", err)
	}
	used.DigestKeys = []string{"digest_prior"}
	if err := repo.Put(context.Background(), used); err != nil {
		t.Fatalf("seed put failed: %v", err)
	}

	stage := newCurateStage(repo, digests, blobs, &fakeSummarizer{}, 10, 3)

	digest, _, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if digest == nil {
		t.Fatal("expected a digest")
	}
	if len(digest.ItemGUIDs) != 1 || digest.ItemGUIDs[0] != "fresh" {
		t.Errorf("recently used item should be excluded, got %v", digest.ItemGUIDs)
	}
}

func TestCurateEmptyStoreProducesNoDigest(t *testing.T) {
	stage := newCurateStage(newMemRepo(), newMemDigests(), newMemBlob(), &fakeSummarizer{}, 10, 3)

	digest, report, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if digest != nil {
		t.Errorf("no digest expected for empty store, got %v", digest.ID)
	}
	if report.Succeeded != 0 {
		t.Errorf("unexpected successes: %+v", report)
	}
}

func TestCurateNeverModifiesPriorDigests(t *testing.T) {
	repo := newMemRepo()
	digests := newMemDigests()
	blobs := newMemBlob()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedSummarized(t, repo, blobs, "a", base)

	stage := newCurateStage(repo, digests, blobs, &fakeSummarizer{}, 10, 3)

	first, _, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first == nil {
		t.Fatal("expected a digest")
	}
	firstDoc, err := blobs.Get(context.Background(), first.DigestPath)
	if err != nil {
		t.Fatalf("digest blob missing: %v", err)
	}

	// second run: the only item was just used, so nothing is eligible
	second, _, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second != nil {
		t.Errorf("expected no digest on second run, got %v", second.ID)
	}

	// add fresh content and run again; the first digest must be untouched
	seedSummarized(t, repo, blobs, "b", base.Add(time.Hour))

	third, _, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	if third == nil {
		t.Fatal("expected a digest")
	}
	if third.ID == first.ID {
		t.Errorf("curation must mint a new digest id")
	}

	afterDoc, err := blobs.Get(context.Background(), first.DigestPath)
	if err != nil {
		t.Fatalf("first digest blob missing: %v", err)
	}
	if string(afterDoc) != string(firstDoc) {
		t.Errorf("prior digest content changed")
	}

	stored, err := digests.Get(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("first digest record missing: %v", err)
	}
	if len(stored.ItemGUIDs) != 1 || stored.ItemGUIDs[0] != "a" {
		t.Errorf("prior digest record changed: %v", stored.ItemGUIDs)
	}
}

func TestCurateDropsItemsWithoutSummary(t *testing.T) {
	repo := newMemRepo()
	digests := newMemDigests()
	blobs := newMemBlob()
	summarizer := &fakeSummarizer{failOn: "poison"}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedSummarized(t, repo, blobs, "good", base)

	bad := seedSummarized(t, repo, blobs, "bad", base.Add(time.Hour))
	if err := blobs.Put(context.Background(), bad.MarkdownPath, []byte("poison text")); err != nil {
		t.Fatalf("seed blob put failed: %v", err)
	}

	stage := newCurateStage(repo, digests, blobs, summarizer, 10, 3)

	digest, report, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if digest == nil {
		t.Fatal("expected a digest")
	}
	if len(digest.ItemGUIDs) != 1 || digest.ItemGUIDs[0] != "good" {
		t.Errorf("item without summary should be dropped, got %v", digest.ItemGUIDs)
	}
	if report.Failed != 1 {
		t.Errorf("dropped item should be reported failed, got %+v", report)
	}

	// the failed item keeps its state and stays eligible next time
	item, err := repo.Get(context.Background(), "bad")
	if err != nil {
		t.Fatalf("item missing: %v", err)
	}
	if item.InDigest(digest.ID) {
		t.Errorf("dropped item must not be recorded as curated")
	}
}
