package blob

import "fmt"

// Blob key layout: one namespace per content kind, keyed by item guid or
// digest id. The layout is a pipeline convention, not a store contract.

func HTMLKey(guid string) string {
	return fmt.Sprintf("html/%s.html", guid)
}

func MarkdownKey(guid string) string {
	return fmt.Sprintf("markdown/%s.md", guid)
}

func SummaryKey(guid string) string {
	return fmt.Sprintf("summaries/%s.md", guid)
}

func ShortSummaryKey(guid string) string {
	return fmt.Sprintf("short_summaries/%s.md", guid)
}

func DigestKey(digestID string) string {
	return fmt.Sprintf("digests/%s.md", digestID)
}

// LatestDigestKey is a fixed alias overwritten on every curation run.
const LatestDigestKey = "digests/latest.md"
