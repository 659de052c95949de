package api

import (
	"context"
	"time"

	"github.com/veritas-media/veritas/app/dashboard"
	"github.com/veritas-media/veritas/app/database"
	"github.com/veritas-media/veritas/app/feed"
	"github.com/veritas-media/veritas/app/verify"
)

type GeneratorInterface interface {
	Run(sector string, rows []database.ArticleWithChecks) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Ingester interface {
	Ingest(ctx context.Context, sector string) ([]string, error)
}

type ClaimAnalyzer interface {
	VerifyClaim(ctx context.Context, text string) (verify.ClaimVerdict, verify.StrategyPlan)
}

type StatsProvider interface {
	Stats(ctx context.Context, sector string) (dashboard.Stats, error)
	Current() dashboard.Stats
}

type SectorLister interface {
	GetSectorNames() []string
}

type Handler struct {
	articles  database.ArticleRepository
	feedback  database.FeedbackRepository
	ingester  Ingester
	claims    ClaimAnalyzer
	stats     StatsProvider
	sectors   SectorLister
	generator GeneratorInterface
}

// Request bodies

type ingestRequest struct {
	Sector string `json:"sector"`
}

type claimRequest struct {
	Text string `json:"text" binding:"required"`
}

type feedbackRequest struct {
	Helpful *bool  `json:"helpful" binding:"required"`
	Text    string `json:"text"`
}

// Response bodies

type articleResponse struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ImageURL    string    `json:"image_url,omitempty"`
	Sector      string    `json:"sector"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type imageCheckResponse struct {
	ImageURL        string     `json:"image_url"`
	MatchCount      int        `json:"match_count"`
	EarliestDate    *time.Time `json:"earliest_date"`
	ContextURLs     []string   `json:"context_urls"`
	ConfidenceScore int        `json:"confidence_score"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

type textCheckResponse struct {
	ClaimText          string    `json:"claim_text"`
	VerificationStatus string    `json:"verification_status"`
	ConfidenceScore    int       `json:"confidence_score"`
	Citations          []string  `json:"citations"`
	Reasoning          string    `json:"reasoning"`
	CreatedAt          time.Time `json:"created_at"`
}

type strategyResponse struct {
	Summary       string    `json:"summary"`
	ActionSteps   []string  `json:"action_steps"`
	PriorityLevel string    `json:"priority_level"`
	Timeframe     string    `json:"timeframe"`
	Stakeholders  []string  `json:"stakeholders"`
	CreatedAt     time.Time `json:"created_at"`
}

type articleDetailResponse struct {
	articleResponse
	ImageCheck *imageCheckResponse `json:"image_check"`
	TextCheck  *textCheckResponse  `json:"text_check"`
	Strategy   *strategyResponse   `json:"strategy"`
}

func toArticleResponse(article database.Article) articleResponse {
	return articleResponse{
		ID:          article.ID,
		URL:         article.URL,
		Title:       article.Title,
		Content:     article.Content,
		ImageURL:    article.ImageURL,
		Sector:      article.Sector,
		PublishedAt: article.PublishedAt,
		CreatedAt:   article.CreatedAt,
	}
}

func toDetailResponse(row database.ArticleWithChecks) articleDetailResponse {
	detail := articleDetailResponse{articleResponse: toArticleResponse(row.Article)}

	if ic := row.ImageCheck; ic != nil {
		detail.ImageCheck = &imageCheckResponse{
			ImageURL:        ic.ImageURL,
			MatchCount:      ic.MatchCount,
			EarliestDate:    ic.EarliestDate,
			ContextURLs:     ic.ContextURLs,
			ConfidenceScore: ic.ConfidenceScore,
			Status:          ic.Status,
			CreatedAt:       ic.CreatedAt,
		}
	}
	if tc := row.TextCheck; tc != nil {
		detail.TextCheck = &textCheckResponse{
			ClaimText:          tc.ClaimText,
			VerificationStatus: tc.VerificationStatus,
			ConfidenceScore:    tc.ConfidenceScore,
			Citations:          tc.Citations,
			Reasoning:          tc.Reasoning,
			CreatedAt:          tc.CreatedAt,
		}
	}
	if s := row.Strategy; s != nil {
		detail.Strategy = &strategyResponse{
			Summary:       s.Summary,
			ActionSteps:   s.ActionSteps,
			PriorityLevel: s.PriorityLevel,
			Timeframe:     s.Timeframe,
			Stakeholders:  s.Stakeholders,
			CreatedAt:     s.CreatedAt,
		}
	}

	return detail
}
