package tasks

import (
	"github.com/veritas-media/veritas/app/database"
)

// Dispatcher turns each newly stored article into a queued CheckArticleTask.
type Dispatcher struct {
	scheduler TaskSchedulerInterface
	checker   ArticleChecker
}

func NewDispatcher(scheduler TaskSchedulerInterface, checker ArticleChecker) *Dispatcher {
	return &Dispatcher{scheduler: scheduler, checker: checker}
}

func (d *Dispatcher) Dispatch(article database.Article) error {
	return d.scheduler.EnqueueTask(NewCheckArticleTask(article, d.checker))
}
