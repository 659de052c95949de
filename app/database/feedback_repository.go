package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var _ FeedbackRepository = (*SQLFeedbackRepository)(nil)

type SQLFeedbackRepository struct {
	db *DB
}

func NewFeedbackRepository(db *DB) *SQLFeedbackRepository {
	return &SQLFeedbackRepository{db: db}
}

func (r *SQLFeedbackRepository) InsertFeedback(ctx context.Context, feedback Feedback) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	var text sql.NullString
	if feedback.FeedbackText != "" {
		text = sql.NullString{String: feedback.FeedbackText, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback (id, article_id, user_rating, feedback_text, helpful, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, feedback.ArticleID, feedback.UserRating, text, feedback.Helpful, formatTime(now))
	if err != nil {
		return "", fmt.Errorf("failed to insert feedback: %w", err)
	}

	r.db.Changes.Publish(Change{Table: TableFeedback, Event: EventInsert, RowID: id, ArticleID: feedback.ArticleID, At: now})

	return id, nil
}

func (r *SQLFeedbackRepository) GetFeedbackSummary(ctx context.Context, articleID string) (FeedbackSummary, error) {
	query, args, err := sq.Select(
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN helpful = 1 THEN 1 ELSE 0 END), 0)",
		"COALESCE(AVG(user_rating), 0)",
	).From("feedback").Where(sq.Eq{"article_id": articleID}).ToSql()
	if err != nil {
		return FeedbackSummary{}, fmt.Errorf("failed to build feedback query: %w", err)
	}

	var summary FeedbackSummary
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&summary.Total, &summary.Helpful, &summary.AvgRating)
	if err != nil {
		return FeedbackSummary{}, fmt.Errorf("failed to get feedback summary: %w", err)
	}

	return summary, nil
}
