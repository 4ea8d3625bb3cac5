package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// SQLDigestRepository implements DigestRepository on sqlite.
type SQLDigestRepository struct {
	db *DB
}

var _ DigestRepository = (*SQLDigestRepository)(nil)

func NewDigestRepository(db *DB) *SQLDigestRepository {
	return &SQLDigestRepository{db: db}
}

// Insert persists a new digest. Digests are never updated afterwards, so a
// duplicate id is an error rather than an upsert.
func (r *SQLDigestRepository) Insert(ctx context.Context, digest *Digest) error {
	itemGUIDs, err := json.Marshal(emptyIfNil(digest.ItemGUIDs))
	if err != nil {
		return fmt.Errorf("failed to marshal item guids: %w", err)
	}

	createdAt := digest.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query, args, err := builder.
		Insert("digests").
		Columns("id", "item_guids", "digest_path", "created_at").
		Values(digest.ID, string(itemGUIDs), digest.DigestPath, createdAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert digest %s: %w", digest.ID, err)
	}

	return nil
}

func (r *SQLDigestRepository) Get(ctx context.Context, id string) (*Digest, error) {
	query, args, err := builder.
		Select("id", "item_guids", "digest_path", "created_at").
		From("digests").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	digest, err := scanDigest(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get digest %s: %w", id, err)
	}

	return digest, nil
}

// List returns the most recent digests, newest first.
func (r *SQLDigestRepository) List(ctx context.Context, limit int) ([]*Digest, error) {
	b := builder.
		Select("id", "item_guids", "digest_path", "created_at").
		From("digests").
		OrderBy("created_at DESC")

	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list digests: %w", err)
	}
	defer rows.Close()

	var digests []*Digest
	for rows.Next() {
		digest, err := scanDigest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan digest row: %w", err)
		}
		digests = append(digests, digest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating digest rows: %w", err)
	}

	return digests, nil
}

func scanDigest(row rowScanner) (*Digest, error) {
	var digest Digest
	var itemGUIDs string

	if err := row.Scan(&digest.ID, &itemGUIDs, &digest.DigestPath, &digest.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(itemGUIDs), &digest.ItemGUIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item guids: %w", err)
	}

	return &digest, nil
}
