package database

import (
	"context"
	"errors"
)

var (
	ErrDuplicateURL     = errors.New("article with this URL already exists")
	ErrDuplicateCheck   = errors.New("check of this kind already exists for article")
	ErrMissingTextCheck = errors.New("strategy requires an existing text check")
	ErrArticleNotFound  = errors.New("article not found")
)

type ArticleRepository interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
	InsertArticle(ctx context.Context, article Article) (string, error)
	GetArticle(ctx context.Context, id string) (*Article, error)
	GetArticleWithChecks(ctx context.Context, id string) (*ArticleWithChecks, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, error)
	GetSnapshot(ctx context.Context, filter ArticleFilter) ([]ArticleWithChecks, error)
	GetArticleCount(ctx context.Context) (int, error)
}

type CheckRepository interface {
	InsertImageCheck(ctx context.Context, check ImageCheck) (string, error)
	InsertTextCheck(ctx context.Context, check TextCheck) (string, error)
	InsertStrategy(ctx context.Context, strategy Strategy) (string, error)
}

type FeedbackRepository interface {
	InsertFeedback(ctx context.Context, feedback Feedback) (string, error)
	GetFeedbackSummary(ctx context.Context, articleID string) (FeedbackSummary, error)
}
