package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var _ CheckRepository = (*SQLCheckRepository)(nil)

// SQLCheckRepository persists per-article check results. Rows are append-only;
// each kind is unique per article.
type SQLCheckRepository struct {
	db *DB
}

func NewCheckRepository(db *DB) *SQLCheckRepository {
	return &SQLCheckRepository{db: db}
}

func (r *SQLCheckRepository) InsertImageCheck(ctx context.Context, check ImageCheck) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	contextURLs, err := encodeList(check.ContextURLs)
	if err != nil {
		return "", err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO image_checks (
			id, article_id, image_url, match_count, earliest_date,
			context_urls, confidence_score, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, check.ArticleID, check.ImageURL, check.MatchCount, formatNullTime(check.EarliestDate),
		contextURLs, check.ConfidenceScore, check.Status, formatTime(now))
	if err != nil {
		return "", r.insertError(TableImageChecks, check.ArticleID, err)
	}

	r.db.Changes.Publish(Change{Table: TableImageChecks, Event: EventInsert, RowID: id, ArticleID: check.ArticleID, At: now})

	return id, nil
}

func (r *SQLCheckRepository) InsertTextCheck(ctx context.Context, check TextCheck) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	citations, err := encodeList(check.Citations)
	if err != nil {
		return "", err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO text_checks (
			id, article_id, claim_text, verification_status, confidence_score,
			citations, reasoning, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, check.ArticleID, check.ClaimText, check.VerificationStatus, check.ConfidenceScore,
		citations, check.Reasoning, formatTime(now))
	if err != nil {
		return "", r.insertError(TableTextChecks, check.ArticleID, err)
	}

	r.db.Changes.Publish(Change{Table: TableTextChecks, Event: EventInsert, RowID: id, ArticleID: check.ArticleID, At: now})

	return id, nil
}

// InsertStrategy stores a strategy only if the article's text check exists.
func (r *SQLCheckRepository) InsertStrategy(ctx context.Context, strategy Strategy) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	steps, err := encodeList(strategy.ActionSteps)
	if err != nil {
		return "", err
	}
	stakeholders, err := encodeList(strategy.Stakeholders)
	if err != nil {
		return "", err
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO strategies (
			id, article_id, summary, action_steps, priority_level,
			timeframe, stakeholders, created_at
		)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM text_checks WHERE article_id = ?)
	`, id, strategy.ArticleID, strategy.Summary, steps, strategy.PriorityLevel,
		strategy.Timeframe, stakeholders, formatTime(now), strategy.ArticleID)
	if err != nil {
		return "", r.insertError(TableStrategies, strategy.ArticleID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to read strategy insert result: %w", err)
	}
	if affected == 0 {
		return "", fmt.Errorf("%w: article %s", ErrMissingTextCheck, strategy.ArticleID)
	}

	r.db.Changes.Publish(Change{Table: TableStrategies, Event: EventInsert, RowID: id, ArticleID: strategy.ArticleID, At: now})

	return id, nil
}

func (r *SQLCheckRepository) insertError(table, articleID string, err error) error {
	if isUniqueViolation(err) {
		// The dispatch flow never produces two checks of a kind for one article.
		slog.Error("Duplicate check insert rejected", "table", table, "article_id", articleID)
		return fmt.Errorf("%w: %s for article %s", ErrDuplicateCheck, table, articleID)
	}
	return fmt.Errorf("failed to insert into %s: %w", table, err)
}
