package stages

import (
	"context"
	"time"

	"github.com/tlees/content-curator/app/database"
)

// Summarizer produces one summary of the requested type. A failed call must
// return an error and no text; there is no partial output.
type Summarizer interface {
	Summarize(ctx context.Context, text string, summaryType database.SummaryType) (string, error)
}

// FeedEntry is one entry read from a feed source.
type FeedEntry struct {
	ID          string
	Title       string
	Link        string
	PublishedAt *time.Time
	HTML        string
}

// FeedSource reads all current entries of a feed URL. Each call re-reads the
// whole feed; filtering already-seen entries is the caller's job via guid.
type FeedSource interface {
	Fetch(ctx context.Context, url string) ([]FeedEntry, error)
}

// Message is a rendered digest ready for delivery.
type Message struct {
	Subject  string
	HTML     string
	Markdown string
}

// Transport ships a rendered digest to one destination (email, chat, ...).
type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
