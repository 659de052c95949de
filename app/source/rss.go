package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

var _ HeadlineSource = (*RSSSource)(nil)

// RSSSource reads the feeds configured for a sector in sectors/<name>.yml.
type RSSSource struct {
	sectors    *SectorCache
	httpClient *http.Client
	parser     *gofeed.Parser
	filterer   *Filterer
	enricher   *Enricher
	userAgent  string
}

func NewRSSSource(sectors *SectorCache, httpClient *http.Client, userAgent string) *RSSSource {
	return &RSSSource{
		sectors:    sectors,
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		filterer:   NewFilterer(),
		enricher:   NewEnricher(httpClient, userAgent),
		userAgent:  userAgent,
	}
}

func (s *RSSSource) Name() string {
	return "rss"
}

func (s *RSSSource) HasSector(sector string) bool {
	return s.sectors.GetConfig(sector) != nil
}

func (s *RSSSource) Headlines(ctx context.Context, sector string) ([]Headline, error) {
	sectorConfig := s.sectors.GetConfig(sector)
	if sectorConfig == nil {
		return nil, fmt.Errorf("%w: no feeds configured for sector %q", ErrSourceUnavailable, sector)
	}

	timeout := time.Duration(sectorConfig.Settings.Timeout) * time.Second

	var headlines []Headline
	var errs []error
	for _, feedURL := range sectorConfig.Feeds {
		items, err := s.readFeed(ctx, feedURL, timeout)
		if err != nil {
			slog.Warn("Failed to read sector feed", "sector", sector, "url", feedURL, "error", err)
			errs = append(errs, err)
			continue
		}
		headlines = append(headlines, items...)
	}

	if len(errs) == len(sectorConfig.Feeds) {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, errors.Join(errs...))
	}

	headlines = s.filterer.Run(headlines, sectorConfig.Filters)
	if len(headlines) > sectorConfig.Settings.MaxItems {
		headlines = headlines[:sectorConfig.Settings.MaxItems]
	}

	if sectorConfig.Settings.Enrich {
		for i := range headlines {
			s.enricher.Run(ctx, &headlines[i], timeout)
		}
	}

	return headlines, nil
}

func (s *RSSSource) readFeed(ctx context.Context, feedURL string, timeout time.Duration) ([]Headline, error) {
	data, err := fetch(ctx, s.httpClient, feedURL, s.userAgent, timeout)
	if err != nil {
		return nil, err
	}

	return s.parse(data)
}

func (s *RSSSource) parse(data []byte) ([]Headline, error) {
	feed, err := s.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	headlines := make([]Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		headlines = append(headlines, normalizeItem(feed, item))
	}
	return headlines, nil
}

func normalizeItem(feed *gofeed.Feed, item *gofeed.Item) Headline {
	headline := Headline{
		Title:       strings.TrimSpace(item.Title),
		Description: plainText(item.Description),
		Content:     plainText(item.Content),
		URL:         item.Link,
		SourceName:  feed.Title,
	}

	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		headline.PublishedAt = &published
	}

	if item.Image != nil {
		headline.ImageURL = item.Image.URL
	}
	if headline.ImageURL == "" {
		for _, enclosure := range item.Enclosures {
			if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") {
				headline.ImageURL = enclosure.URL
				break
			}
		}
	}

	return headline
}

// plainText strips markup from feed descriptions.
func plainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func fetch(ctx context.Context, client *http.Client, pageURL, userAgent string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
