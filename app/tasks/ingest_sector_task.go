package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// IngestSectorTask is the scheduled form of an ingestion call. An upstream
// failure fails the task, and the scheduler retries the whole call.
type IngestSectorTask struct {
	Task
	ingester Ingester
}

func NewIngestSectorTask(sector string, ingester Ingester) *IngestSectorTask {
	return &IngestSectorTask{
		Task:     NewTask(TaskTypeIngestSector, sector),
		ingester: ingester,
	}
}

func (t *IngestSectorTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	created, err := t.ingester.Ingest(ctx, t.Subject)
	if err != nil {
		return fmt.Errorf("failed to ingest sector: %w", err)
	}

	slog.Info("Task completed",
		"type", "IngestedSector",
		"sector", t.Subject,
		"duration", t.GetDuration(),
		"new", len(created))

	return nil
}
