package stages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/database"
)

type fakeTransport struct {
	name string
	err  error
	sent []Message
}

func (t *fakeTransport) Name() string { return t.name }

func (t *fakeTransport) Send(ctx context.Context, msg Message) error {
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, msg)
	return nil
}

func seedDigest(t *testing.T, digests *memDigests, blobs *memBlob, id string, created time.Time, markdown string) *database.Digest {
	t.Helper()

	digest := &database.Digest{
		ID:         id,
		ItemGUIDs:  []string{"a"},
		DigestPath: blob.DigestKey(id),
		CreatedAt:  created,
	}
	if err := blobs.Put(context.Background(), digest.DigestPath, []byte(markdown)); err != nil {
		t.Fatalf("seed blob put failed: %v", err)
	}
	if err := digests.Insert(context.Background(), digest); err != nil {
		t.Fatalf("seed digest failed: %v", err)
	}
	return digest
}

func TestDistributeLatestDigest(t *testing.T) {
	digests := newMemDigests()
	blobs := newMemBlob()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedDigest(t, digests, blobs, "digest_old", base, "# Old Digest\n")
	seedDigest(t, digests, blobs, "digest_new", base.Add(time.Hour), "# New Digest\n\nSome content.\n")

	email := &fakeTransport{name: "email"}
	slack := &fakeTransport{name: "slack"}

	stage := NewDistributeStage(digests, blobs, []Transport{email, slack}, "[Digest] ")

	report, err := stage.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Succeeded != 2 {
		t.Fatalf("expected both transports to deliver, got %+v", report)
	}

	if len(email.sent) != 1 {
		t.Fatal("email transport not called")
	}
	msg := email.sent[0]
	if !strings.HasPrefix(msg.Subject, "[Digest] ") {
		t.Errorf("subject prefix missing: %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "<h1") || !strings.Contains(msg.HTML, "New Digest") {
		t.Errorf("html rendering missing heading:\n%s", msg.HTML)
	}
	if !strings.Contains(msg.Markdown, "# New Digest") {
		t.Errorf("markdown body should be the stored digest verbatim:\n%s", msg.Markdown)
	}
}

func TestDistributeSpecificDigest(t *testing.T) {
	digests := newMemDigests()
	blobs := newMemBlob()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedDigest(t, digests, blobs, "digest_old", base, "# Old Digest\n")
	seedDigest(t, digests, blobs, "digest_new", base.Add(time.Hour), "# New Digest\n")

	email := &fakeTransport{name: "email"}
	stage := NewDistributeStage(digests, blobs, []Transport{email}, "")

	if _, err := stage.Run(context.Background(), "digest_old"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(email.sent) != 1 || !strings.Contains(email.sent[0].Markdown, "Old Digest") {
		t.Errorf("wrong digest distributed")
	}
}

func TestDistributeUnknownDigest(t *testing.T) {
	stage := NewDistributeStage(newMemDigests(), newMemBlob(), []Transport{&fakeTransport{name: "email"}}, "")

	if _, err := stage.Run(context.Background(), "digest_missing"); err == nil {
		t.Errorf("expected error for unknown digest id")
	}
}

func TestDistributeNoDigestsIsNoop(t *testing.T) {
	email := &fakeTransport{name: "email"}
	stage := NewDistributeStage(newMemDigests(), newMemBlob(), []Transport{email}, "")

	report, err := stage.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Succeeded != 0 || len(email.sent) != 0 {
		t.Errorf("nothing should be sent when no digest exists")
	}
}

func TestDistributeTransportFailureIsolated(t *testing.T) {
	digests := newMemDigests()
	blobs := newMemBlob()
	seedDigest(t, digests, blobs, "digest_a", time.Now().UTC(), "# Digest\n")

	broken := &fakeTransport{name: "email", err: errors.New("smtp down")}
	working := &fakeTransport{name: "slack"}

	stage := NewDistributeStage(digests, blobs, []Transport{broken, working}, "")

	report, err := stage.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Failed != 1 || report.Succeeded != 1 {
		t.Errorf("expected one failure and one delivery, got %+v", report)
	}
	if len(working.sent) != 1 {
		t.Errorf("healthy transport should still deliver")
	}
}
