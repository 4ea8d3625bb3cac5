package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/database"
	"github.com/tlees/content-curator/app/feeds"
)

// FetchStage reads configured feeds and lands raw entry HTML in the blob
// store, registering each entry in the metadata store under a stable guid.
// Re-running is cheap: entries whose HTML is already present are skipped
// unless Overwrite is set.
type FetchStage struct {
	feeds  []feeds.Feed
	source FeedSource
	items  database.ItemRepository
	blobs  blob.Store
	pages  *resty.Client
}

func NewFetchStage(feedList []feeds.Feed, source FeedSource, items database.ItemRepository, blobs blob.Store, userAgent string) *FetchStage {
	pages := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &FetchStage{
		feeds:  feedList,
		source: source,
		items:  items,
		blobs:  blobs,
		pages:  pages,
	}
}

func (s *FetchStage) Run(ctx context.Context, sel Selection) (*Report, error) {
	report := NewReport("fetch")

	// A guid-targeted run doesn't re-read feeds; it just confirms the item
	// exists so downstream stages can be chained on the same guid.
	if sel.GUID != "" {
		_, err := s.items.Get(ctx, sel.GUID)
		if errors.Is(err, database.ErrNotFound) {
			slog.Warn("Requested item not found", "guid", sel.GUID)
			report.skip()
			report.Log()
			return report, nil
		}
		if err != nil {
			return report, fmt.Errorf("failed to load item %s: %w", sel.GUID, err)
		}
		report.success(sel.GUID)
		report.Log()
		return report, nil
	}

	for _, feed := range s.feeds {
		entries, err := s.source.Fetch(ctx, feed.URL)
		if err != nil {
			slog.Error("Feed fetch failed", "feed", feed.Name, "error", err)
			report.Failed++
			continue
		}

		for _, entry := range capEntries(entries, feed.MaxItems) {
			s.fetchEntry(ctx, feed, entry, sel.Overwrite, report)
		}
	}

	report.Log()
	return report, nil
}

func (s *FetchStage) fetchEntry(ctx context.Context, feed feeds.Feed, entry FeedEntry, overwrite bool, report *Report) {
	if entry.ID == "" && entry.Link == "" {
		report.skip()
		return
	}

	guid := deriveGUID(entry, feed.URL)

	existing, err := s.items.Get(ctx, guid)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		report.fail(guid, fmt.Errorf("failed to load item: %w", err))
		return
	}

	if existing != nil && existing.HTMLPath != "" && !overwrite {
		ok, err := s.blobs.Exists(ctx, existing.HTMLPath)
		if err != nil {
			report.fail(guid, fmt.Errorf("failed to check html blob: %w", err))
			return
		}
		if ok {
			report.skip()
			return
		}
		// recorded path without a blob behind it, refetch
	}

	html := entry.HTML
	if html == "" {
		html, err = s.fetchPage(ctx, entry.Link)
		if err != nil {
			report.fail(guid, fmt.Errorf("failed to fetch page: %w", err))
			return
		}
	}

	key := blob.HTMLKey(guid)
	if err := s.blobs.Put(ctx, key, []byte(html)); err != nil {
		report.fail(guid, fmt.Errorf("failed to store html: %w", err))
		return
	}

	item := existing
	if item == nil {
		item = &database.ContentItem{GUID: guid}
	}
	item.Title = entry.Title
	item.Link = entry.Link
	item.SourceFeed = feed.Name
	item.PublishedAt = entry.PublishedAt
	item.FetchedAt = time.Now().UTC()
	item.HTMLPath = key

	if err := s.items.Put(ctx, item); err != nil {
		report.fail(guid, fmt.Errorf("failed to store item: %w", err))
		return
	}

	report.success(guid)
}

func (s *FetchStage) fetchPage(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", errors.New("entry has no content and no link")
	}

	resp, err := s.pages.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode(), url)
	}

	return resp.String(), nil
}

// capEntries keeps the max most recent entries, newest first. Entries without
// a publication date sort last.
func capEntries(entries []FeedEntry, max int) []FeedEntry {
	sorted := make([]FeedEntry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PublishedAt, sorted[j].PublishedAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})

	if max > 0 && len(sorted) > max {
		sorted = sorted[:max]
	}

	return sorted
}

// deriveGUID builds a stable item identity from the entry. Preference order:
// the feed-provided id, then the entry link, then feed URL plus title.
func deriveGUID(entry FeedEntry, feedURL string) string {
	source := entry.ID
	if source == "" {
		source = entry.Link
	}
	if source == "" {
		source = feedURL + "::" + entry.Title
	}

	hash := sha256.Sum256([]byte(source))
	return hex.EncodeToString(hash[:])
}
