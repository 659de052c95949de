package tasks

import (
	"context"

	"github.com/veritas-media/veritas/app/database"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background check and ingestion work.
// Example usage:
//
//	scheduler := NewScheduler(SchedulerOptions{WorkerCount: 4, QueueSize: 100})
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewCheckArticleTask(article, checker))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type Ingester interface {
	Ingest(ctx context.Context, sector string) ([]string, error)
}

type ArticleChecker interface {
	Run(ctx context.Context, article database.Article) error
}
