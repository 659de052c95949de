package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/veritas-media/veritas/app/database"
	"github.com/veritas-media/veritas/app/source"
)

// Dispatcher hands a freshly stored article to the check workers. It must
// not block on the checks themselves.
type Dispatcher interface {
	Dispatch(article database.Article) error
}

type Ingestor struct {
	source     source.HeadlineSource
	articles   database.ArticleRepository
	dispatcher Dispatcher
	now        func() time.Time
}

func NewIngestor(src source.HeadlineSource, articles database.ArticleRepository, dispatcher Dispatcher) *Ingestor {
	return &Ingestor{
		source:     src,
		articles:   articles,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Ingest stores the new headlines of a sector and returns the IDs of the
// articles it created. An unreachable source fails the whole call; a failed
// write only skips that headline.
func (i *Ingestor) Ingest(ctx context.Context, sector string) ([]string, error) {
	sector = cmp.Or(strings.TrimSpace(sector), source.DefaultSector)

	headlines, err := i.source.Headlines(ctx, sector)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch headlines for sector %s: %w", sector, err)
	}

	created := make([]string, 0, len(headlines))
	malformedCount := 0
	duplicateCount := 0
	failedCount := 0

	for _, headline := range headlines {
		if strings.TrimSpace(headline.Title) == "" || strings.TrimSpace(headline.Description) == "" || headline.URL == "" {
			malformedCount++
			continue
		}

		exists, err := i.articles.ExistsByURL(ctx, headline.URL)
		if err != nil {
			slog.Error("Failed to check article URL", "url", headline.URL, "error", err)
			failedCount++
			continue
		}
		if exists {
			duplicateCount++
			continue
		}

		article := database.Article{
			URL:         headline.URL,
			Title:       headline.Title,
			Content:     cmp.Or(headline.Description, headline.Content),
			ImageURL:    headline.ImageURL,
			Sector:      sector,
			PublishedAt: i.now().UTC(),
		}
		if headline.PublishedAt != nil {
			article.PublishedAt = headline.PublishedAt.UTC()
		}

		id, err := i.articles.InsertArticle(ctx, article)
		if errors.Is(err, database.ErrDuplicateURL) {
			duplicateCount++
			continue
		}
		if err != nil {
			slog.Error("Failed to insert article", "url", headline.URL, "error", err)
			failedCount++
			continue
		}
		article.ID = id
		created = append(created, id)

		if err := i.dispatcher.Dispatch(article); err != nil {
			slog.Warn("Failed to dispatch checks", "article_id", id, "error", err)
		}
	}

	slog.Info("Ingestion completed",
		"sector", sector,
		"source", i.source.Name(),
		"total", len(headlines),
		"new", len(created),
		"duplicates", duplicateCount,
		"malformed", malformedCount,
		"failed", failedCount)

	return created, nil
}
