package database

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by point reads when no record exists for the key.
var ErrNotFound = errors.New("record not found")

// ItemFilter selects items by field presence, paywall classification and time
// ranges. Nil pointer fields are not filtered on. The store itself guarantees
// no ordering; when Limit is set, the most recently fetched items are taken.
type ItemFilter struct {
	HasHTML         *bool
	HasMarkdown     *bool
	HasShortSummary *bool
	HasSummary      *bool
	Paywalled       *bool

	FetchedAfter   *time.Time
	PublishedAfter *time.Time

	Limit int
}

// ItemStats summarizes how many items sit at each point of the lifecycle.
type ItemStats struct {
	Total      int
	Fetched    int
	Processed  int
	Paywalled  int
	Summarized int
}

// ItemRepository is the metadata store for ContentItem records, keyed by guid.
// Put is an idempotent upsert; repeated calls with identical data are no-ops
// from an external-observation standpoint.
type ItemRepository interface {
	Get(ctx context.Context, guid string) (*ContentItem, error)
	Put(ctx context.Context, item *ContentItem) error
	Scan(ctx context.Context, filter ItemFilter) ([]*ContentItem, error)
	AppendDigestKey(ctx context.Context, guid, digestID string) error
	Stats(ctx context.Context) (*ItemStats, error)
}

// DigestRepository persists generated digests. Digests are insert-only.
type DigestRepository interface {
	Insert(ctx context.Context, digest *Digest) error
	Get(ctx context.Context, id string) (*Digest, error)
	List(ctx context.Context, limit int) ([]*Digest, error)
}
