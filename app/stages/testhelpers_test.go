package stages

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tlees/content-curator/app/database"
)

// memRepo is an in-memory ItemRepository for stage tests.
type memRepo struct {
	mu    sync.Mutex
	items map[string]*database.ContentItem
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[string]*database.ContentItem{}}
}

func copyItem(item *database.ContentItem) *database.ContentItem {
	dup := *item
	dup.DigestKeys = append([]string(nil), item.DigestKeys...)
	return &dup
}

func (r *memRepo) Get(ctx context.Context, guid string) (*database.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[guid]
	if !ok {
		return nil, database.ErrNotFound
	}
	return copyItem(item), nil
}

func (r *memRepo) Put(ctx context.Context, item *database.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.GUID] = copyItem(item)
	return nil
}

func (r *memRepo) Scan(ctx context.Context, filter database.ItemFilter) ([]*database.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*database.ContentItem
	for _, item := range r.items {
		if !matchPresence(filter.HasHTML, item.HTMLPath) ||
			!matchPresence(filter.HasMarkdown, item.MarkdownPath) ||
			!matchPresence(filter.HasShortSummary, item.ShortSummaryPath) ||
			!matchPresence(filter.HasSummary, item.SummaryPath) {
			continue
		}
		if filter.Paywalled != nil && item.IsPaywalled != *filter.Paywalled {
			continue
		}
		if filter.FetchedAfter != nil && item.FetchedAt.Before(*filter.FetchedAfter) {
			continue
		}
		if filter.PublishedAfter != nil && (item.PublishedAt == nil || item.PublishedAt.Before(*filter.PublishedAfter)) {
			continue
		}
		out = append(out, copyItem(item))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FetchedAt.After(out[j].FetchedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}

func matchPresence(want *bool, path string) bool {
	if want == nil {
		return true
	}
	return *want == (path != "")
}

func (r *memRepo) AppendDigestKey(ctx context.Context, guid, digestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[guid]
	if !ok {
		return database.ErrNotFound
	}
	if !item.InDigest(digestID) {
		item.DigestKeys = append(item.DigestKeys, digestID)
	}
	return nil
}

func (r *memRepo) Stats(ctx context.Context) (*database.ItemStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &database.ItemStats{}
	for _, item := range r.items {
		stats.Total++
		if item.HTMLPath != "" {
			stats.Fetched++
		}
		if item.MarkdownPath != "" {
			stats.Processed++
		}
		if item.IsPaywalled {
			stats.Paywalled++
		}
		if item.ShortSummaryPath != "" || item.SummaryPath != "" {
			stats.Summarized++
		}
	}
	return stats, nil
}

// memDigests is an in-memory DigestRepository.
type memDigests struct {
	mu      sync.Mutex
	digests []*database.Digest
}

func newMemDigests() *memDigests {
	return &memDigests{}
}

func (r *memDigests) Insert(ctx context.Context, digest *database.Digest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.digests {
		if d.ID == digest.ID {
			return fmt.Errorf("digest already exists: %s", digest.ID)
		}
	}
	dup := *digest
	dup.ItemGUIDs = append([]string(nil), digest.ItemGUIDs...)
	r.digests = append(r.digests, &dup)
	return nil
}

func (r *memDigests) Get(ctx context.Context, id string) (*database.Digest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.digests {
		if d.ID == id {
			dup := *d
			return &dup, nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *memDigests) List(ctx context.Context, limit int) ([]*database.Digest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*database.Digest, len(r.digests))
	copy(out, r.digests)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memBlob is an in-memory blob store.
type memBlob struct {
	mu    sync.Mutex
	data  map[string][]byte
	fail  map[string]error
	wrote []string
}

func newMemBlob() *memBlob {
	return &memBlob{data: map[string][]byte{}, fail: map[string]error{}}
}

func (b *memBlob) Put(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.fail[key]; ok {
		return err
	}
	b.data[key] = append([]byte(nil), data...)
	b.wrote = append(b.wrote, key)
	return nil
}

func (b *memBlob) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.data[key]
	if !ok {
		return nil, fmt.Errorf("key %s: not found", key)
	}
	return append([]byte(nil), data...), nil
}

func (b *memBlob) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.data[key]
	return ok, nil
}

// fakeSummarizer returns canned text per summary type and records calls.
type fakeSummarizer struct {
	mu    sync.Mutex
	calls []database.SummaryType
	err   error
	// failOn makes only calls containing this substring fail
	failOn string
}

func (s *fakeSummarizer) Summarize(ctx context.Context, text string, typ database.SummaryType) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return "", fmt.Errorf("summarization failed")
	}
	if s.err != nil {
		return "", s.err
	}
	s.calls = append(s.calls, typ)
	return fmt.Sprintf("%s summary", typ), nil
}

// fakeSource serves fixed entries per feed URL.
type fakeSource struct {
	entries map[string][]FeedEntry
	err     error
}

func (s *fakeSource) Fetch(ctx context.Context, url string) ([]FeedEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries[url], nil
}

func timePtr(t time.Time) *time.Time { return &t }

func testItem(guid string, fetched time.Time) *database.ContentItem {
	return &database.ContentItem{
		GUID:      guid,
		Title:     "Item " + guid,
		Link:      "https://example.com/" + guid,
		FetchedAt: fetched,
	}
}
