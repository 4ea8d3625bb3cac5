package api

import (
	"time"

	"github.com/tlees/content-curator/app/database"
)

type itemResponse struct {
	GUID             string     `json:"guid"`
	Title            string     `json:"title"`
	Link             string     `json:"link"`
	SourceFeed       string     `json:"source_feed"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	FetchedAt        time.Time  `json:"fetched_at"`
	HTMLPath         string     `json:"html_path,omitempty"`
	MarkdownPath     string     `json:"md_path,omitempty"`
	ShortSummaryPath string     `json:"short_summary_path,omitempty"`
	SummaryPath      string     `json:"summary_path,omitempty"`
	IsPaywalled      bool       `json:"is_paywalled"`
	DigestKeys       []string   `json:"digest_keys,omitempty"`
}

func toItemResponse(item *database.ContentItem) itemResponse {
	return itemResponse{
		GUID:             item.GUID,
		Title:            item.Title,
		Link:             item.Link,
		SourceFeed:       item.SourceFeed,
		PublishedAt:      item.PublishedAt,
		FetchedAt:        item.FetchedAt,
		HTMLPath:         item.HTMLPath,
		MarkdownPath:     item.MarkdownPath,
		ShortSummaryPath: item.ShortSummaryPath,
		SummaryPath:      item.SummaryPath,
		IsPaywalled:      item.IsPaywalled,
		DigestKeys:       item.DigestKeys,
	}
}

type digestResponse struct {
	ID        string    `json:"id"`
	ItemGUIDs []string  `json:"item_guids"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
}

func toDigestResponse(d *database.Digest) digestResponse {
	return digestResponse{
		ID:        d.ID,
		ItemGUIDs: d.ItemGUIDs,
		ItemCount: len(d.ItemGUIDs),
		CreatedAt: d.CreatedAt,
	}
}

type reportResponse struct {
	Stage     string   `json:"stage"`
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	GUIDs     []string `json:"guids,omitempty"`
}
