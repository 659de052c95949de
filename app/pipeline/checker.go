package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/veritas-media/veritas/app/database"
	"github.com/veritas-media/veritas/app/verify"
)

const (
	MaxClaimRunes = 500

	defaultImageConfidence = 85
	defaultImageStatus     = verify.ImageVerified
	defaultTextConfidence  = 75
	defaultTextStatus      = verify.ClaimUnverified
	defaultReasoning       = "Automated verification completed"
	defaultPriority        = verify.PriorityMedium
)

// Checker runs the image and text checks of one article and persists their
// results. The strategy is derived only after the text check row exists.
type Checker struct {
	checks    database.CheckRepository
	providers verify.Providers
}

func NewChecker(checks database.CheckRepository, providers verify.Providers) *Checker {
	return &Checker{checks: checks, providers: providers}
}

// Run returns the first persistence error after both paths finished.
// A failure in one path never cancels the other.
func (c *Checker) Run(ctx context.Context, article database.Article) error {
	var g errgroup.Group

	if article.HasImage() {
		g.Go(func() error {
			return c.checkImage(ctx, article)
		})
	}
	g.Go(func() error {
		return c.checkText(ctx, article)
	})

	return g.Wait()
}

func (c *Checker) checkImage(ctx context.Context, article database.Article) error {
	verdict := c.providers.Image.CheckImage(ctx, article.ImageURL)

	check := database.ImageCheck{
		ArticleID:       article.ID,
		ImageURL:        article.ImageURL,
		MatchCount:      max(verdict.MatchCount, 0),
		EarliestDate:    verdict.EarliestDate,
		ContextURLs:     verdict.ContextURLs,
		ConfidenceScore: cmp.Or(verify.Clamp(verdict.Confidence), defaultImageConfidence),
		Status:          string(cmp.Or(verdict.Status, defaultImageStatus)),
	}
	if check.ContextURLs == nil {
		check.ContextURLs = []string{}
	}

	if _, err := c.checks.InsertImageCheck(ctx, check); err != nil {
		slog.Error("Failed to store image check", "article_id", article.ID, "error", err)
		return fmt.Errorf("failed to store image check: %w", err)
	}

	slog.Debug("Image check stored", "article_id", article.ID, "status", check.Status, "matches", check.MatchCount, "mocked", verdict.Mocked)
	return nil
}

func (c *Checker) checkText(ctx context.Context, article database.Article) error {
	claim := ClaimText(article.Title, article.Content)
	verdict := withClaimDefaults(c.providers.Claim.CheckClaim(ctx, claim))

	textCheck := database.TextCheck{
		ArticleID:          article.ID,
		ClaimText:          truncateRunes(claim, MaxClaimRunes),
		VerificationStatus: string(verdict.VerificationStatus),
		ConfidenceScore:    verdict.ConfidenceScore,
		Citations:          verdict.Citations,
		Reasoning:          verdict.Reasoning,
	}
	if _, err := c.checks.InsertTextCheck(ctx, textCheck); err != nil {
		slog.Error("Failed to store text check", "article_id", article.ID, "error", err)
		return fmt.Errorf("failed to store text check: %w", err)
	}

	plan := c.providers.Strategy.Strategize(ctx, verdict)
	strategy := database.Strategy{
		ArticleID:     article.ID,
		Summary:       plan.Summary,
		ActionSteps:   plan.ActionSteps,
		PriorityLevel: string(cmp.Or(plan.PriorityLevel, defaultPriority)),
		Timeframe:     plan.Timeframe,
		Stakeholders:  plan.Stakeholders,
	}
	if _, err := c.checks.InsertStrategy(ctx, strategy); err != nil {
		slog.Error("Failed to store strategy", "article_id", article.ID, "error", err)
		return fmt.Errorf("failed to store strategy: %w", err)
	}

	slog.Debug("Text check stored",
		"article_id", article.ID,
		"status", textCheck.VerificationStatus,
		"confidence", textCheck.ConfidenceScore,
		"priority", strategy.PriorityLevel,
		"mocked", verdict.Mocked)
	return nil
}

// VerifyClaim analyses free text without storing anything.
func (c *Checker) VerifyClaim(ctx context.Context, text string) (verify.ClaimVerdict, verify.StrategyPlan) {
	claim := norm.NFC.String(strings.TrimSpace(text))
	verdict := withClaimDefaults(c.providers.Claim.CheckClaim(ctx, claim))
	plan := c.providers.Strategy.Strategize(ctx, verdict)
	plan.PriorityLevel = cmp.Or(plan.PriorityLevel, defaultPriority)
	return verdict, plan
}

// ClaimText joins title and body into the text sent for claim analysis.
func ClaimText(title, content string) string {
	return norm.NFC.String(strings.TrimSpace(title + " " + content))
}

func withClaimDefaults(verdict verify.ClaimVerdict) verify.ClaimVerdict {
	verdict.VerificationStatus = cmp.Or(verdict.VerificationStatus, defaultTextStatus)
	verdict.ConfidenceScore = cmp.Or(verify.Clamp(verdict.ConfidenceScore), defaultTextConfidence)
	verdict.Reasoning = cmp.Or(verdict.Reasoning, defaultReasoning)
	if verdict.Citations == nil {
		verdict.Citations = []string{}
	}
	if verdict.RedFlags == nil {
		verdict.RedFlags = []string{}
	}
	return verdict
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
