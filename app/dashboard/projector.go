package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/veritas-media/veritas/app/database"
)

type SnapshotReader interface {
	GetSnapshot(ctx context.Context, filter database.ArticleFilter) ([]database.ArticleWithChecks, error)
}

var watchedTables = []string{
	database.TableArticles,
	database.TableImageChecks,
	database.TableTextChecks,
}

// Projector keeps the all-sector stats current by recomputing them from the
// store on every article or check insert.
type Projector struct {
	articles SnapshotReader
	changes  *database.ChangeFeed

	recompute sync.Mutex
	latest    atomic.Pointer[Stats]

	mu           sync.Mutex
	unsubscribes []func()
}

func NewProjector(articles SnapshotReader, changes *database.ChangeFeed) *Projector {
	p := &Projector{articles: articles, changes: changes}
	p.latest.Store(&Stats{})
	return p
}

// Start computes the initial stats and subscribes to store changes.
func (p *Projector) Start(ctx context.Context) error {
	if _, err := p.Refresh(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, table := range watchedTables {
		p.unsubscribes = append(p.unsubscribes, p.changes.Subscribe(table, database.EventInsert, p.handleChange))
	}

	slog.Debug("Dashboard projector started", "tables", watchedTables)
	return nil
}

func (p *Projector) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, unsubscribe := range p.unsubscribes {
		unsubscribe()
	}
	p.unsubscribes = nil
}

func (p *Projector) handleChange(change database.Change) {
	if _, err := p.Refresh(context.Background()); err != nil {
		slog.Error("Failed to recompute dashboard stats", "table", change.Table, "row_id", change.RowID, "error", err)
	}
}

// Refresh recomputes the all-sector stats. Recomputes are serialised, so the
// last one to finish saw the newest committed state.
func (p *Projector) Refresh(ctx context.Context) (Stats, error) {
	p.recompute.Lock()
	defer p.recompute.Unlock()

	stats, err := p.Stats(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	p.latest.Store(&stats)
	return stats, nil
}

// Current returns the stats of the last completed recompute.
func (p *Projector) Current() Stats {
	return *p.latest.Load()
}

// Stats recomputes on demand for one sector, or all when sector is empty.
func (p *Projector) Stats(ctx context.Context, sector string) (Stats, error) {
	snapshot, err := p.articles.GetSnapshot(ctx, database.ArticleFilter{Sector: sector, Limit: database.DefaultListLimit})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return Project(snapshot), nil
}
