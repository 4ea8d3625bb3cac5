package database

import (
	"slices"
	"time"
)

// SummaryType identifies one of the independently generated summary variants.
type SummaryType string

const (
	SummaryTypeShort    SummaryType = "short"
	SummaryTypeStandard SummaryType = "standard"
)

func (t SummaryType) Valid() bool {
	return t == SummaryTypeShort || t == SummaryTypeStandard
}

// ContentItem is the authoritative record for one fetched piece of content.
// Stage completion is signalled exclusively by the presence of the blob path
// written by that stage; an empty path means "not done yet".
type ContentItem struct {
	GUID        string
	Title       string
	Link        string
	SourceFeed  string
	PublishedAt *time.Time
	FetchedAt   time.Time

	HTMLPath         string
	MarkdownPath     string
	ShortSummaryPath string
	SummaryPath      string

	IsPaywalled bool

	// DigestKeys lists the digests this item has been curated into. Append-only.
	DigestKeys []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SummaryPathFor returns the blob path recorded for the given summary type.
func (i *ContentItem) SummaryPathFor(t SummaryType) string {
	if t == SummaryTypeShort {
		return i.ShortSummaryPath
	}
	return i.SummaryPath
}

// SetSummaryPath records the blob path for the given summary type.
func (i *ContentItem) SetSummaryPath(t SummaryType, path string) {
	if t == SummaryTypeShort {
		i.ShortSummaryPath = path
		return
	}
	i.SummaryPath = path
}

// InDigest reports whether the item was already curated into the given digest.
func (i *ContentItem) InDigest(digestID string) bool {
	return slices.Contains(i.DigestKeys, digestID)
}

// Digest is one generated newsletter instance. Immutable after creation:
// re-running curation produces a new digest, never edits a prior one.
type Digest struct {
	ID         string
	ItemGUIDs  []string // presentation order
	DigestPath string
	CreatedAt  time.Time
}
