package feeds

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFeedsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "feeds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write feeds file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFeedsFile(t, `
feeds:
  - name: Example Blog
    url: https://example.com/rss
    max_items: 3
  - name: Other Blog
    url: https://other.example/feed.xml
`)

	feeds, err := Load(path, 5)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("expected 2 feeds, got %d", len(feeds))
	}

	if feeds[0].MaxItems != 3 {
		t.Errorf("explicit max_items overridden: %d", feeds[0].MaxItems)
	}
	if feeds[1].MaxItems != 5 {
		t.Errorf("default max_items not applied: %d", feeds[1].MaxItems)
	}
}

func TestLoadRejectsMissingURL(t *testing.T) {
	path := writeFeedsFile(t, `
feeds:
  - name: Broken
`)

	if _, err := Load(path, 5); err == nil {
		t.Errorf("expected validation error for missing url")
	}
}

func TestLoadRejectsInvalidURL(t *testing.T) {
	path := writeFeedsFile(t, `
feeds:
  - name: Broken
    url: not-a-url
`)

	if _, err := Load(path, 5); err == nil {
		t.Errorf("expected validation error for invalid url")
	}
}

func TestLoadRejectsEmptyList(t *testing.T) {
	path := writeFeedsFile(t, "feeds: []\n")

	if _, err := Load(path, 5); err == nil {
		t.Errorf("expected validation error for empty feed list")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), 5); err == nil {
		t.Errorf("expected error for missing file")
	}
}
