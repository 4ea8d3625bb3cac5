package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var itemColumns = []string{
	"guid", "title", "link", "source_feed", "published_at", "fetched_at",
	"html_path", "md_path", "short_summary_path", "summary_path",
	"is_paywalled", "digest_keys", "created_at", "updated_at",
}

// SQLItemRepository implements ItemRepository on sqlite.
type SQLItemRepository struct {
	db *DB
}

var _ ItemRepository = (*SQLItemRepository)(nil)

func NewItemRepository(db *DB) *SQLItemRepository {
	return &SQLItemRepository{db: db}
}

func (r *SQLItemRepository) Get(ctx context.Context, guid string) (*ContentItem, error) {
	query, args, err := builder.
		Select(itemColumns...).
		From("items").
		Where(sq.Eq{"guid": guid}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", guid, err)
	}

	return item, nil
}

// Put upserts the item by guid. created_at is preserved across re-puts so
// re-fetching an entry never resets its creation time.
func (r *SQLItemRepository) Put(ctx context.Context, item *ContentItem) error {
	digestKeys, err := json.Marshal(emptyIfNil(item.DigestKeys))
	if err != nil {
		return fmt.Errorf("failed to marshal digest keys: %w", err)
	}

	now := time.Now().UTC()
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query, args, err := builder.
		Insert("items").
		Columns(itemColumns...).
		Values(
			item.GUID, item.Title, item.Link, item.SourceFeed,
			nullableTime(item.PublishedAt), item.FetchedAt,
			item.HTMLPath, item.MarkdownPath, item.ShortSummaryPath, item.SummaryPath,
			item.IsPaywalled, string(digestKeys), createdAt, now,
		).
		Suffix(`ON CONFLICT (guid) DO UPDATE SET
			title = excluded.title,
			link = excluded.link,
			source_feed = excluded.source_feed,
			published_at = excluded.published_at,
			fetched_at = excluded.fetched_at,
			html_path = excluded.html_path,
			md_path = excluded.md_path,
			short_summary_path = excluded.short_summary_path,
			summary_path = excluded.summary_path,
			is_paywalled = excluded.is_paywalled,
			digest_keys = excluded.digest_keys,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to put item %s: %w", item.GUID, err)
	}

	return nil
}

func (r *SQLItemRepository) Scan(ctx context.Context, filter ItemFilter) ([]*ContentItem, error) {
	b := builder.Select(itemColumns...).From("items")

	b = wherePresence(b, "html_path", filter.HasHTML)
	b = wherePresence(b, "md_path", filter.HasMarkdown)
	b = wherePresence(b, "short_summary_path", filter.HasShortSummary)
	b = wherePresence(b, "summary_path", filter.HasSummary)

	if filter.Paywalled != nil {
		b = b.Where(sq.Eq{"is_paywalled": *filter.Paywalled})
	}
	if filter.FetchedAfter != nil {
		b = b.Where(sq.GtOrEq{"fetched_at": *filter.FetchedAfter})
	}
	if filter.PublishedAfter != nil {
		b = b.Where(sq.GtOrEq{"published_at": *filter.PublishedAfter})
	}

	// Capped scans take the most recently fetched items first.
	if filter.Limit > 0 {
		b = b.OrderBy("fetched_at DESC").Limit(uint64(filter.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan items: %w", err)
	}
	defer rows.Close()

	var items []*ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// AppendDigestKey adds digestID to the item's digest membership. The set is
// append-only; re-appending an existing key is a no-op.
func (r *SQLItemRepository) AppendDigestKey(ctx context.Context, guid, digestID string) error {
	item, err := r.Get(ctx, guid)
	if err != nil {
		return err
	}

	if item.InDigest(digestID) {
		return nil
	}

	item.DigestKeys = append(item.DigestKeys, digestID)
	return r.Put(ctx, item)
}

func (r *SQLItemRepository) Stats(ctx context.Context) (*ItemStats, error) {
	var stats ItemStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN html_path != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN md_path != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_paywalled THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN short_summary_path != '' OR summary_path != '' THEN 1 ELSE 0 END), 0)
		FROM items
	`).Scan(&stats.Total, &stats.Fetched, &stats.Processed, &stats.Paywalled, &stats.Summarized)
	if err != nil {
		return nil, fmt.Errorf("failed to get item stats: %w", err)
	}

	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*ContentItem, error) {
	var item ContentItem
	var publishedAt sql.NullTime
	var digestKeys string

	err := row.Scan(
		&item.GUID, &item.Title, &item.Link, &item.SourceFeed,
		&publishedAt, &item.FetchedAt,
		&item.HTMLPath, &item.MarkdownPath, &item.ShortSummaryPath, &item.SummaryPath,
		&item.IsPaywalled, &digestKeys, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		t := publishedAt.Time
		item.PublishedAt = &t
	}

	if err := json.Unmarshal([]byte(digestKeys), &item.DigestKeys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal digest keys: %w", err)
	}

	return &item, nil
}

func wherePresence(b sq.SelectBuilder, column string, present *bool) sq.SelectBuilder {
	if present == nil {
		return b
	}
	if *present {
		return b.Where(sq.NotEq{column: ""})
	}
	return b.Where(sq.Eq{column: ""})
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func emptyIfNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
