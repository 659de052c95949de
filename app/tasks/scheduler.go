package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrQueueFull = errors.New("task queue is full")

const (
	taskTimeout   = 5 * time.Minute
	maxRetryDelay = 30 * time.Second
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type SchedulerOptions struct {
	WorkerCount int
	QueueSize   int
	Location    *time.Location
}

type Scheduler struct {
	workerCount int
	cron        *cron.Cron
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	location := opts.Location
	if location == nil {
		location = time.UTC
	}

	return &Scheduler{
		workerCount: max(opts.WorkerCount, 1),
		cron:        cron.New(cron.WithLocation(location)),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, max(opts.QueueSize, 1)),
	}
}

// ScheduleIngestion enqueues an IngestSectorTask per sector on every tick of
// the cron spec.
func (s *Scheduler) ScheduleIngestion(spec string, sectors []string, ingester Ingester) error {
	_, err := s.cron.AddFunc(spec, func() {
		for _, sector := range sectors {
			if err := s.EnqueueTask(NewIngestSectorTask(sector, ingester)); err != nil {
				slog.Warn("Failed to enqueue IngestSectorTask", "sector", sector, "error", err)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("invalid ingest schedule %q: %w", spec, err)
	}

	slog.Info("Scheduled ingestion", "schedule", spec, "sectors", sectors)
	return nil
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.cron.Start()
}

// Stop waits for running tasks and pending retries. Queued tasks are dropped.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
		return
	}

	task.IncrementRetryCount()
	retryDelay := min(time.Duration(1<<uint(task.GetRetryCount()-1))*time.Second, maxRetryDelay)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
