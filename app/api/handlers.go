package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/cfg"
	"github.com/tlees/content-curator/app/database"
	"github.com/tlees/content-curator/app/stages"
)

type Handler struct {
	items   database.ItemRepository
	digests database.DigestRepository
	blobs   blob.Store
	runner  *stages.Runner
}

func NewHandler(items database.ItemRepository, digests database.DigestRepository, blobs blob.Store, runner *stages.Runner) *Handler {
	return &Handler{
		items:   items,
		digests: digests,
		blobs:   blobs,
		runner:  runner,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   cfg.GetVersion(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.items.Stats(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "stats", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	digests, err := h.digests.List(c.Request.Context(), 0)
	if err != nil {
		slog.Error("Database error", "operation", "list_digests", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": gin.H{
			"total":      stats.Total,
			"fetched":    stats.Fetched,
			"processed":  stats.Processed,
			"paywalled":  stats.Paywalled,
			"summarized": stats.Summarized,
		},
		"digests": len(digests),
	})
}

func (h *Handler) ListItems(c *gin.Context) {
	filter, err := itemFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.items.Scan(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "scan_items", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	responses := make([]itemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}

	c.JSON(http.StatusOK, gin.H{"items": responses, "count": len(responses)})
}

func (h *Handler) GetItem(c *gin.Context) {
	guid := c.Param("guid")

	item, err := h.items.Get(c.Request.Context(), guid)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "guid", guid, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *Handler) ListDigests(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	digests, err := h.digests.List(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_digests", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	responses := make([]digestResponse, 0, len(digests))
	for _, d := range digests {
		responses = append(responses, toDigestResponse(d))
	}

	c.JSON(http.StatusOK, gin.H{"digests": responses, "count": len(responses)})
}

func (h *Handler) GetDigestContent(c *gin.Context) {
	id := c.Param("id")

	digest, err := h.digests.Get(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "digest not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_digest", "digest", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	content, err := h.blobs.Get(c.Request.Context(), digest.DigestPath)
	if err != nil {
		slog.Error("Blob store error", "operation", "get_digest_content", "digest", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("X-Digest-Id", digest.ID)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", content)
}

func (h *Handler) RunStage(c *gin.Context) {
	stage := c.Param("name")

	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sel := stages.Selection{
		GUID:      c.Query("guid"),
		Overwrite: c.Query("overwrite") == "true",
		Limit:     limit,
	}

	var types []database.SummaryType
	for _, t := range c.QueryArray("summary_type") {
		types = append(types, database.SummaryType(t))
	}

	report, err := h.runner.Run(c.Request.Context(), stage, sel, types)
	if err != nil {
		slog.Error("Stage run failed", "stage", stage, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, reportResponse{
		Stage:     report.Stage,
		Succeeded: report.Succeeded,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
		GUIDs:     report.GUIDs,
	})
}

func itemFilter(c *gin.Context) (database.ItemFilter, error) {
	limit, err := intQuery(c, "limit", 100)
	if err != nil {
		return database.ItemFilter{}, err
	}

	filter := database.ItemFilter{Limit: limit}

	truth := func(v bool) *bool { return &v }

	switch state := c.Query("state"); state {
	case "":
	case "fetched":
		filter.HasHTML = truth(true)
	case "processed":
		filter.HasMarkdown = truth(true)
	case "paywalled":
		filter.Paywalled = truth(true)
	case "summarized":
		filter.HasShortSummary = truth(true)
	case "curatable":
		filter.HasShortSummary = truth(true)
		filter.Paywalled = truth(false)
	default:
		return database.ItemFilter{}, errors.New("unknown state: " + state)
	}

	fetchedAfter, err := timeQuery(c, "fetched_after")
	if err != nil {
		return database.ItemFilter{}, err
	}
	filter.FetchedAfter = fetchedAfter

	publishedAfter, err := timeQuery(c, "published_after")
	if err != nil {
		return database.ItemFilter{}, err
	}
	filter.PublishedAfter = publishedAfter

	return filter, nil
}

func timeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}

	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New("invalid " + name + " parameter, expected RFC3339")
	}
	return &value, nil
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return value, nil
}
