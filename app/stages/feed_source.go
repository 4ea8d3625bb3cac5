package stages

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// RSSSource reads RSS/Atom feeds over HTTP using gofeed.
type RSSSource struct {
	parser *gofeed.Parser
}

func NewRSSSource(userAgent string) *RSSSource {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: 30 * time.Second}

	return &RSSSource{parser: parser}
}

func (s *RSSSource) Fetch(ctx context.Context, url string) ([]FeedEntry, error) {
	feed, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", url, err)
	}

	entries := make([]FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entries = append(entries, FeedEntry{
			ID:          item.GUID,
			Title:       item.Title,
			Link:        item.Link,
			PublishedAt: item.PublishedParsed,
			HTML:        entryHTML(item),
		})
	}

	return entries, nil
}

// entryHTML prefers full entry content over the description teaser.
func entryHTML(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}
