package source

import (
	"context"
	"log/slog"
)

var _ HeadlineSource = (*Router)(nil)

// Router picks a source per call: the headline API when configured, the
// sector's RSS feeds when present, otherwise the generated set.
type Router struct {
	api  HeadlineSource
	rss  *RSSSource
	mock *MockSource
}

// NewRouter accepts a nil api when no credential is configured, and a nil
// rss when no sector files were loaded.
func NewRouter(api HeadlineSource, rss *RSSSource, mock *MockSource) *Router {
	return &Router{api: api, rss: rss, mock: mock}
}

func (r *Router) Name() string {
	return "router"
}

func (r *Router) Headlines(ctx context.Context, sector string) ([]Headline, error) {
	selected := r.pick(sector)
	slog.Debug("Headline source selected", "sector", sector, "source", selected.Name())
	return selected.Headlines(ctx, sector)
}

func (r *Router) pick(sector string) HeadlineSource {
	switch {
	case r.api != nil:
		return r.api
	case r.rss != nil && r.rss.HasSector(sector):
		return r.rss
	default:
		return r.mock
	}
}
