package source

import (
	"context"
	"errors"
	"time"
)

// ErrSourceUnavailable marks an upstream that could not be reached or
// answered with an error. Ingestion of the whole sector fails on it.
var ErrSourceUnavailable = errors.New("headline source unavailable")

const DefaultSector = "general"

type Headline struct {
	Title       string
	Description string
	Content     string
	URL         string
	ImageURL    string
	PublishedAt *time.Time
	SourceName  string
}

// HeadlineSource returns a bounded list of candidate items for a sector.
type HeadlineSource interface {
	Headlines(ctx context.Context, sector string) ([]Headline, error)
	Name() string
}

// Sector configuration types

type SectorConfig struct {
	Name     string         // Derived from filename (without .yml extension)
	Feeds    []string       `yaml:"feeds"`
	Settings SectorSettings `yaml:"settings"`
	Filters  []SectorFilter `yaml:"filters"`
}

type SectorSettings struct {
	Enabled  bool `yaml:"enabled"`
	MaxItems int  `yaml:"max_items"`
	Timeout  int  `yaml:"timeout"` // seconds
	Enrich   bool `yaml:"enrich"`  // fetch article pages for missing image/description
}

type SectorFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
