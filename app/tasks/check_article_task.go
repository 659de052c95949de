package tasks

import (
	"context"
	"log/slog"

	"github.com/veritas-media/veritas/app/database"
)

// CheckArticleTask runs the image and text checks of one stored article.
// It is never retried: a check that failed stays pending until the article
// is ingested again.
type CheckArticleTask struct {
	Task
	Article database.Article
	checker ArticleChecker
}

func NewCheckArticleTask(article database.Article, checker ArticleChecker) *CheckArticleTask {
	task := &CheckArticleTask{
		Task:    NewTask(TaskTypeCheckArticle, article.ID),
		Article: article,
		checker: checker,
	}
	task.MaxRetries = 0
	return task
}

func (t *CheckArticleTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.checker.Run(ctx, t.Article); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "CheckedArticle",
		"article_id", t.Article.ID,
		"with_image", t.Article.HasImage(),
		"duration", t.GetDuration())

	return nil
}
