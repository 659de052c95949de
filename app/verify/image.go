package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	LiveSuspiciousLimit = 5
	MockSuspiciousLimit = 3
	maxContextURLs      = 5
)

// ClassifyImage maps a reverse-image match count to a status. Counts in
// [1, upperThreshold) are suspicious.
func ClassifyImage(matchCount, upperThreshold int) ImageStatus {
	switch {
	case matchCount <= 0:
		return ImageVerified
	case matchCount < upperThreshold:
		return ImageSuspicious
	default:
		return ImageManipulated
	}
}

var mockDomains = []string{
	"news.example.com",
	"media.sample.org",
	"photos.demo.net",
	"images.test.com",
	"content.mock.io",
}

var _ ImageVerifier = (*MockImageVerifier)(nil)

type MockImageVerifier struct {
	rnd Rand
	now func() time.Time
}

func NewMockImageVerifier(rnd Rand) *MockImageVerifier {
	if rnd == nil {
		rnd = DefaultRand()
	}
	return &MockImageVerifier{rnd: rnd, now: time.Now}
}

func (v *MockImageVerifier) CheckImage(_ context.Context, _ string) ImageVerdict {
	now := v.now().UTC()
	matchCount := v.rnd.IntN(10)
	confidence := v.rnd.IntN(30) + 70

	var earliest *time.Time
	if matchCount > 0 {
		age := time.Duration(v.rnd.Float64() * float64(365*24*time.Hour))
		date := now.Add(-age)
		earliest = &date
	}

	contextURLs := make([]string, min(matchCount, maxContextURLs))
	copy(contextURLs, mockDomains)

	return ImageVerdict{
		MatchCount:   matchCount,
		EarliestDate: earliest,
		ContextURLs:  contextURLs,
		Confidence:   confidence,
		Status:       ClassifyImage(matchCount, MockSuspiciousLimit),
		Details: ImageDetails{
			TotalMatches:      matchCount,
			UniqueDomains:     min(matchCount, 3),
			AnalysisTimestamp: now,
		},
		Mocked: true,
	}
}

var _ ImageVerifier = (*TinEyeVerifier)(nil)

// TinEyeVerifier performs a reverse-image lookup against the TinEye REST API.
type TinEyeVerifier struct {
	apiKey     string
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	fallback   *MockImageVerifier
}

func NewTinEyeVerifier(apiKey, baseURL, userAgent string, timeout time.Duration, fallback *MockImageVerifier) *TinEyeVerifier {
	return &TinEyeVerifier{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		timeout:    timeout,
		httpClient: &http.Client{},
		fallback:   fallback,
	}
}

type tinEyeResponse struct {
	Code    int      `json:"code"`
	Message []string `json:"messages"`
	Results struct {
		Matches []tinEyeMatch `json:"matches"`
	} `json:"results"`
}

type tinEyeMatch struct {
	Domain    string `json:"domain"`
	CrawlDate string `json:"crawl_date"`
	Backlinks []struct {
		CrawlDate string `json:"crawl_date"`
	} `json:"backlinks"`
}

func (v *TinEyeVerifier) CheckImage(ctx context.Context, imageURL string) ImageVerdict {
	verdict, err := v.search(ctx, imageURL)
	if err != nil {
		slog.Warn("Reverse image lookup failed, using generated analysis", "image_url", imageURL, "error", err)
		return v.fallback.CheckImage(ctx, imageURL)
	}
	return verdict
}

func (v *TinEyeVerifier) search(ctx context.Context, imageURL string) (ImageVerdict, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	query := url.Values{}
	query.Set("image_url", imageURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/search/?"+query.Encode(), nil)
	if err != nil {
		return ImageVerdict{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", v.apiKey)
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return ImageVerdict{}, fmt.Errorf("failed to query TinEye: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ImageVerdict{}, fmt.Errorf("TinEye returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded tinEyeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ImageVerdict{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return liveVerdict(decoded.Results.Matches, time.Now().UTC()), nil
}

func liveVerdict(matches []tinEyeMatch, now time.Time) ImageVerdict {
	matchCount := len(matches)

	var earliest *time.Time
	contextURLs := make([]string, 0, maxContextURLs)
	seen := make(map[string]struct{})
	for _, match := range matches {
		dates := []string{match.CrawlDate}
		for _, backlink := range match.Backlinks {
			dates = append(dates, backlink.CrawlDate)
		}
		for _, raw := range dates {
			date, ok := parseCrawlDate(raw)
			if ok && (earliest == nil || date.Before(*earliest)) {
				earliest = &date
			}
		}

		if match.Domain == "" || len(contextURLs) == maxContextURLs {
			continue
		}
		if _, dup := seen[match.Domain]; dup {
			continue
		}
		seen[match.Domain] = struct{}{}
		contextURLs = append(contextURLs, match.Domain)
	}

	status := ClassifyImage(matchCount, LiveSuspiciousLimit)
	confidence := 95
	switch status {
	case ImageSuspicious:
		confidence = 70
	case ImageManipulated:
		confidence = 85
	}

	return ImageVerdict{
		MatchCount:   matchCount,
		EarliestDate: earliest,
		ContextURLs:  contextURLs,
		Confidence:   confidence,
		Status:       status,
		Details: ImageDetails{
			TotalMatches:      matchCount,
			UniqueDomains:     len(contextURLs),
			AnalysisTimestamp: now,
		},
	}
}

var crawlDateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseCrawlDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range crawlDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
