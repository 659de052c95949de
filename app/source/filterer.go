package source

import (
	"fmt"
	"log/slog"
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run drops headlines rejected by the sector's include/exclude rules.
func (f *Filterer) Run(headlines []Headline, filters []SectorFilter) []Headline {
	if len(filters) == 0 {
		return headlines
	}

	kept := make([]Headline, 0, len(headlines))
	for _, headline := range headlines {
		if reason, excluded := f.applyFilters(headline, filters); excluded {
			slog.Debug("Headline filtered out", "url", headline.URL, "reason", reason)
			continue
		}
		kept = append(kept, headline)
	}

	return kept
}

func (f *Filterer) applyFilters(headline Headline, filters []SectorFilter) (string, bool) {
	for _, filter := range filters {
		value := f.getFieldValue(headline, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude), true
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes), true
			}
		}
	}

	return "", false
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(headline Headline, field string) string {
	switch field {
	case "title":
		return headline.Title
	case "description":
		return headline.Description
	case "content":
		return headline.Content
	case "link":
		return headline.URL
	case "source":
		return headline.SourceName
	default:
		return ""
	}
}
