package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/database"
)

// DistributeStage renders a stored digest and ships it through the configured
// transports. The digest document itself is read back from the blob store,
// never rebuilt, so what goes out is exactly what curation produced.
type DistributeStage struct {
	digests       database.DigestRepository
	blobs         blob.Store
	transports    []Transport
	subjectPrefix string
}

func NewDistributeStage(digests database.DigestRepository, blobs blob.Store, transports []Transport, subjectPrefix string) *DistributeStage {
	return &DistributeStage{
		digests:       digests,
		blobs:         blobs,
		transports:    transports,
		subjectPrefix: subjectPrefix,
	}
}

// Run distributes the digest with the given id, or the most recent digest
// when id is empty.
func (s *DistributeStage) Run(ctx context.Context, digestID string) (*Report, error) {
	report := NewReport("distribute")

	digest, err := s.loadDigest(ctx, digestID)
	if err != nil {
		return report, err
	}
	if digest == nil {
		slog.Warn("No digest available for distribution")
		report.Log()
		return report, nil
	}

	markdown, err := s.blobs.Get(ctx, digest.DigestPath)
	if err != nil {
		return report, fmt.Errorf("failed to load digest %s: %w", digest.ID, err)
	}

	html, err := renderHTML(markdown)
	if err != nil {
		return report, fmt.Errorf("failed to render digest %s: %w", digest.ID, err)
	}

	msg := Message{
		Subject:  s.subjectPrefix + digestDate(digest),
		HTML:     html,
		Markdown: string(markdown),
	}

	for _, t := range s.transports {
		if err := t.Send(ctx, msg); err != nil {
			report.fail(digest.ID, fmt.Errorf("transport %s: %w", t.Name(), err))
			continue
		}
		slog.Info("Digest delivered", "digest", digest.ID, "transport", t.Name())
		report.success(digest.ID)
	}

	report.Log()
	return report, nil
}

func (s *DistributeStage) loadDigest(ctx context.Context, digestID string) (*database.Digest, error) {
	if digestID != "" {
		digest, err := s.digests.Get(ctx, digestID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("digest not found: %s", digestID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load digest %s: %w", digestID, err)
		}
		return digest, nil
	}

	recent, err := s.digests.List(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to list digests: %w", err)
	}
	if len(recent) == 0 {
		return nil, nil
	}
	return recent[0], nil
}

func digestDate(digest *database.Digest) string {
	return digest.CreatedAt.Format("January 2, 2006")
}
