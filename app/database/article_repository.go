package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var _ ArticleRepository = (*SQLArticleRepository)(nil)

// SQLArticleRepository handles database operations for articles
type SQLArticleRepository struct {
	db *DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *SQLArticleRepository {
	return &SQLArticleRepository{db: db}
}

var articleColumns = []string{
	"a.id", "a.url", "a.title", "a.content", "COALESCE(a.image_url, '')",
	"a.sector", "a.published_at", "a.created_at",
}

// ExistsByURL checks if an article with the given URL is already stored
func (r *SQLArticleRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM articles WHERE url = ? LIMIT 1`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check article URL: %w", err)
	}
	return true, nil
}

// InsertArticle stores a new article and returns its generated ID.
// A URL that is already stored yields ErrDuplicateURL.
func (r *SQLArticleRepository) InsertArticle(ctx context.Context, article Article) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	if article.PublishedAt.IsZero() {
		article.PublishedAt = now
	}

	var imageURL sql.NullString
	if article.ImageURL != "" {
		imageURL = sql.NullString{String: article.ImageURL, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (id, url, title, content, image_url, sector, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, article.URL, article.Title, article.Content, imageURL, article.Sector,
		formatTime(article.PublishedAt), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateURL, article.URL)
		}
		return "", fmt.Errorf("failed to insert article: %w", err)
	}

	r.db.Changes.Publish(Change{Table: TableArticles, Event: EventInsert, RowID: id, ArticleID: id, At: now})

	return id, nil
}

// GetArticle retrieves an article by ID, nil when absent
func (r *SQLArticleRepository) GetArticle(ctx context.Context, id string) (*Article, error) {
	query, args, err := sq.Select(articleColumns...).
		From("articles a").
		Where(sq.Eq{"a.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article query: %w", err)
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return article, nil
}

// ListArticles returns the most recently ingested articles
func (r *SQLArticleRepository) ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, error) {
	query, args, err := filtered(sq.Select(articleColumns...).From("articles a"), filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := []Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

// GetSnapshot returns the most recent articles joined with their checks
func (r *SQLArticleRepository) GetSnapshot(ctx context.Context, filter ArticleFilter) ([]ArticleWithChecks, error) {
	query, args, err := filtered(snapshotQuery(), filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := []ArticleWithChecks{}
	for rows.Next() {
		row, err := scanArticleWithChecks(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snapshot = append(snapshot, *row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return snapshot, nil
}

// GetArticleWithChecks returns one article joined with its checks, nil when absent
func (r *SQLArticleRepository) GetArticleWithChecks(ctx context.Context, id string) (*ArticleWithChecks, error) {
	query, args, err := snapshotQuery().Where(sq.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article query: %w", err)
	}

	row, err := scanArticleWithChecks(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article with checks: %w", err)
	}

	return row, nil
}

// GetArticleCount returns the total number of articles
func (r *SQLArticleRepository) GetArticleCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

func filtered(q sq.SelectBuilder, filter ArticleFilter) sq.SelectBuilder {
	if filter.Sector != "" {
		q = q.Where(sq.Eq{"a.sector": filter.Sector})
	}
	return q.OrderBy("a.created_at DESC", "a.rowid DESC").Limit(filter.limit())
}

func snapshotQuery() sq.SelectBuilder {
	columns := append([]string{}, articleColumns...)
	columns = append(columns,
		"ic.id", "ic.image_url", "ic.match_count", "ic.earliest_date", "ic.context_urls",
		"ic.confidence_score", "ic.status", "ic.created_at",
		"tc.id", "tc.claim_text", "tc.verification_status", "tc.confidence_score",
		"tc.citations", "tc.reasoning", "tc.created_at",
		"s.id", "s.summary", "s.action_steps", "s.priority_level", "s.timeframe",
		"s.stakeholders", "s.created_at",
	)

	return sq.Select(columns...).
		From("articles a").
		LeftJoin("image_checks ic ON ic.article_id = a.id").
		LeftJoin("text_checks tc ON tc.article_id = a.id").
		LeftJoin("strategies s ON s.article_id = a.id")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var article Article
	var publishedAt, createdAt string

	err := row.Scan(
		&article.ID, &article.URL, &article.Title, &article.Content, &article.ImageURL,
		&article.Sector, &publishedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if article.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, err
	}
	if article.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	return &article, nil
}

func scanArticleWithChecks(row rowScanner) (*ArticleWithChecks, error) {
	var out ArticleWithChecks
	var publishedAt, createdAt string

	var (
		icID, icImageURL, icEarliest, icContext, icStatus, icCreated sql.NullString
		icMatches, icConfidence                                      sql.NullInt64

		tcID, tcClaim, tcStatus, tcCitations, tcReasoning, tcCreated sql.NullString
		tcConfidence                                                 sql.NullInt64

		sID, sSummary, sSteps, sPriority, sTimeframe, sStakeholders, sCreated sql.NullString
	)

	err := row.Scan(
		&out.ID, &out.URL, &out.Title, &out.Content, &out.ImageURL,
		&out.Sector, &publishedAt, &createdAt,
		&icID, &icImageURL, &icMatches, &icEarliest, &icContext, &icConfidence, &icStatus, &icCreated,
		&tcID, &tcClaim, &tcStatus, &tcConfidence, &tcCitations, &tcReasoning, &tcCreated,
		&sID, &sSummary, &sSteps, &sPriority, &sTimeframe, &sStakeholders, &sCreated,
	)
	if err != nil {
		return nil, err
	}

	if out.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, err
	}
	if out.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	if icID.Valid {
		check := &ImageCheck{
			ID:              icID.String,
			ArticleID:       out.ID,
			ImageURL:        icImageURL.String,
			MatchCount:      int(icMatches.Int64),
			ConfidenceScore: int(icConfidence.Int64),
			Status:          icStatus.String,
		}
		if check.EarliestDate, err = parseNullTime(icEarliest); err != nil {
			return nil, err
		}
		if check.ContextURLs, err = decodeList(icContext.String); err != nil {
			return nil, err
		}
		if check.CreatedAt, err = parseTime(icCreated.String); err != nil {
			return nil, err
		}
		out.ImageCheck = check
	}

	if tcID.Valid {
		check := &TextCheck{
			ID:                 tcID.String,
			ArticleID:          out.ID,
			ClaimText:          tcClaim.String,
			VerificationStatus: tcStatus.String,
			ConfidenceScore:    int(tcConfidence.Int64),
			Reasoning:          tcReasoning.String,
		}
		if check.Citations, err = decodeList(tcCitations.String); err != nil {
			return nil, err
		}
		if check.CreatedAt, err = parseTime(tcCreated.String); err != nil {
			return nil, err
		}
		out.TextCheck = check
	}

	if sID.Valid {
		strategy := &Strategy{
			ID:            sID.String,
			ArticleID:     out.ID,
			Summary:       sSummary.String,
			PriorityLevel: sPriority.String,
			Timeframe:     sTimeframe.String,
		}
		if strategy.ActionSteps, err = decodeList(sSteps.String); err != nil {
			return nil, err
		}
		if strategy.Stakeholders, err = decodeList(sStakeholders.String); err != nil {
			return nil, err
		}
		if strategy.CreatedAt, err = parseTime(sCreated.String); err != nil {
			return nil, err
		}
		out.Strategy = strategy
	}

	return &out, nil
}
