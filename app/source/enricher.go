package source

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Enricher fills a missing image or description from the article page.
// Failures leave the headline unchanged.
type Enricher struct {
	httpClient *http.Client
	userAgent  string
}

func NewEnricher(httpClient *http.Client, userAgent string) *Enricher {
	return &Enricher{httpClient: httpClient, userAgent: userAgent}
}

func (e *Enricher) Run(ctx context.Context, headline *Headline, timeout time.Duration) {
	if headline.URL == "" || (headline.ImageURL != "" && headline.Description != "") {
		return
	}

	data, err := fetch(ctx, e.httpClient, headline.URL, e.userAgent, timeout)
	if err != nil {
		slog.Debug("Article page fetch failed", "url", headline.URL, "error", err)
		return
	}

	if headline.ImageURL == "" {
		if image, err := openGraphImage(data, headline.URL); err == nil {
			headline.ImageURL = image
		} else {
			slog.Debug("No og:image found", "url", headline.URL, "error", err)
		}
	}

	if headline.Description == "" {
		if text, err := extractText(data, headline.URL); err == nil {
			headline.Description = text
		} else {
			slog.Debug("Content extraction failed", "url", headline.URL, "error", err)
		}
	}
}

func openGraphImage(data []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	for _, selector := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		content, ok := doc.Find(selector).First().Attr("content")
		content = strings.TrimSpace(content)
		if !ok || content == "" {
			continue
		}
		return resolveURL(pageURL, content), nil
	}

	return "", fmt.Errorf("no image meta tag")
}

const maxExtractedRunes = 1000

func extractText(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	base, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := cmp.Or(strings.TrimSpace(article.Excerpt), strings.Join(strings.Fields(article.TextContent), " "))
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	runes := []rune(text)
	if len(runes) > maxExtractedRunes {
		text = string(runes[:maxExtractedRunes])
	}
	return text, nil
}

func resolveURL(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return resolved.String()
}
