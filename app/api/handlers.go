package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veritas-media/veritas/app/database"
	"github.com/veritas-media/veritas/app/feed"
	"github.com/veritas-media/veritas/app/source"
)

func NewHandler(articles database.ArticleRepository, feedback database.FeedbackRepository,
	ingester Ingester, claims ClaimAnalyzer, stats StatsProvider, sectors SectorLister) *Handler {
	return &Handler{
		articles:  articles,
		feedback:  feedback,
		ingester:  ingester,
		claims:    claims,
		stats:     stats,
		sectors:   sectors,
		generator: feed.NewGenerator(),
	}
}

// sectorParam maps the "all" selector to no filter.
func sectorParam(c *gin.Context) string {
	sector := strings.TrimSpace(c.Query("sector"))
	if sector == "all" {
		return ""
	}
	return sector
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"dashboard": h.stats.Current(),
	}

	if count, err := h.articles.GetArticleCount(c.Request.Context()); err == nil {
		health["articles"] = count
	}

	health["sectors"] = h.sectors.GetSectorNames()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetFeed(c *gin.Context) {
	sector := c.Param("sector")

	rows, err := h.articles.GetSnapshot(c.Request.Context(), database.ArticleFilter{Sector: sector})
	if err != nil {
		slog.Error("Database error", "operation", "get_snapshot", "sector", sector, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(sector, rows)
	if err != nil {
		slog.Error("RSS generation error", "sector", sector, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(rows)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListArticles(c *gin.Context) {
	filter := database.ArticleFilter{Sector: sectorParam(c)}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	rows, err := h.articles.GetSnapshot(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "sector", filter.Sector, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	articles := make([]articleDetailResponse, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, toDetailResponse(row))
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"total":    len(articles),
	})
}

func (h *Handler) APIGetArticle(c *gin.Context) {
	id := c.Param("id")

	row, err := h.articles.GetArticleWithChecks(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	detail := gin.H{"article": toDetailResponse(*row)}
	if summary, err := h.feedback.GetFeedbackSummary(c.Request.Context(), id); err == nil {
		detail["feedback"] = gin.H{
			"total":      summary.Total,
			"helpful":    summary.Helpful,
			"avg_rating": summary.AvgRating,
		}
	}

	c.JSON(http.StatusOK, detail)
}

func (h *Handler) APIGetDashboard(c *gin.Context) {
	sector := sectorParam(c)

	stats, err := h.stats.Stats(c.Request.Context(), sector)
	if err != nil {
		slog.Error("Database error", "operation", "dashboard_stats", "sector", sector, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sector": sector,
		"stats":  stats,
	})
}

func (h *Handler) APIListSectors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":    source.DefaultSector,
		"configured": h.sectors.GetSectorNames(),
	})
}

func (h *Handler) APIIngest(c *gin.Context) {
	var req ingestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	ids, err := h.ingester.Ingest(c.Request.Context(), req.Sector)
	if errors.Is(err, source.ErrSourceUnavailable) {
		slog.Warn("Ingestion failed, headline source unavailable", "sector", req.Sector, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Headline source unavailable", "details": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Ingestion failed", "sector", req.Sector, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ingestion failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"created":  ids,
		"count":    len(ids),
		"message":  "Articles stored; verification checks are running in the background",
		"sector":   req.Sector,
		"snapshot": h.stats.Current(),
	})
}

func (h *Handler) APIVerifyClaim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Claim text is required"})
		return
	}

	verdict, plan := h.claims.VerifyClaim(c.Request.Context(), req.Text)

	c.JSON(http.StatusOK, gin.H{
		"verification": verdict,
		"strategy":     plan,
	})
}

func (h *Handler) APISubmitFeedback(c *gin.Context) {
	id := c.Param("id")

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field 'helpful' is required"})
		return
	}

	article, err := h.articles.GetArticle(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	rating := 1
	if *req.Helpful {
		rating = 5
	}

	feedbackID, err := h.feedback.InsertFeedback(c.Request.Context(), database.Feedback{
		ArticleID:    id,
		UserRating:   rating,
		FeedbackText: req.Text,
		Helpful:      *req.Helpful,
	})
	if err != nil {
		slog.Error("Failed to store feedback", "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store feedback"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"id":      feedbackID,
		"rating":  rating,
	})
}
