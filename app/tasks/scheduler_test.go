package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/veritas-media/veritas/app/database"
)

type recordingChecker struct {
	mu       sync.Mutex
	articles []string
	err      error
}

func (c *recordingChecker) Run(_ context.Context, article database.Article) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.articles = append(c.articles, article.ID)
	return c.err
}

func (c *recordingChecker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.articles)
}

type flakyIngester struct {
	calls    atomic.Int32
	failures int32
}

func (i *flakyIngester) Ingest(_ context.Context, sector string) ([]string, error) {
	if i.calls.Add(1) <= i.failures {
		return nil, errors.New("upstream unreachable")
	}
	return []string{sector + "-1"}, nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDispatcherRunsChecks(t *testing.T) {
	defer goleak.VerifyNone(t)

	checker := &recordingChecker{}
	scheduler := NewScheduler(SchedulerOptions{WorkerCount: 2, QueueSize: 10})
	scheduler.Start()
	defer scheduler.Stop()

	dispatcher := NewDispatcher(scheduler, checker)
	for _, id := range []string{"a", "b", "c"} {
		if err := dispatcher.Dispatch(database.Article{ID: id}); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
	}

	waitFor(t, 2*time.Second, func() bool { return checker.count() == 3 })
}

func TestCheckArticleTaskIsNotRetried(t *testing.T) {
	defer goleak.VerifyNone(t)

	checker := &recordingChecker{err: errors.New("store unavailable")}
	scheduler := NewScheduler(SchedulerOptions{WorkerCount: 1, QueueSize: 10})
	scheduler.Start()

	task := NewCheckArticleTask(database.Article{ID: "a"}, checker)
	if task.CanRetry() {
		t.Fatal("Expected check task to have no retries")
	}
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool { return checker.count() == 1 })
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	if checker.count() != 1 {
		t.Errorf("Expected exactly one run, got %d", checker.count())
	}
}

func TestIngestSectorTaskRetriesWholeCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	ingester := &flakyIngester{failures: 1}
	scheduler := NewScheduler(SchedulerOptions{WorkerCount: 1, QueueSize: 10})
	scheduler.Start()
	defer scheduler.Stop()

	if err := scheduler.EnqueueTask(NewIngestSectorTask("health", ingester)); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 3*time.Second, func() bool { return ingester.calls.Load() == 2 })
}

func TestEnqueueTaskQueueFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	scheduler := NewScheduler(SchedulerOptions{WorkerCount: 1, QueueSize: 1})
	defer scheduler.Stop()

	checker := &recordingChecker{}
	if err := scheduler.EnqueueTask(NewCheckArticleTask(database.Article{ID: "a"}, checker)); err != nil {
		t.Fatal(err)
	}
	err := scheduler.EnqueueTask(NewCheckArticleTask(database.Article{ID: "b"}, checker))
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	scheduler := NewScheduler(SchedulerOptions{WorkerCount: 1, QueueSize: 1})
	scheduler.Start()
	scheduler.Stop()

	err := scheduler.EnqueueTask(NewCheckArticleTask(database.Article{ID: "a"}, &recordingChecker{}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestScheduleIngestionRejectsBadSpec(t *testing.T) {
	scheduler := NewScheduler(SchedulerOptions{})
	defer scheduler.Stop()

	if err := scheduler.ScheduleIngestion("not a cron", []string{"general"}, &flakyIngester{}); err == nil {
		t.Error("Expected invalid cron spec to be rejected")
	}
	if err := scheduler.ScheduleIngestion("@every 1h", []string{"general"}, &flakyIngester{}); err != nil {
		t.Errorf("Expected valid spec, got %v", err)
	}
}
