package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var _ HeadlineSource = (*NewsAPISource)(nil)

// NewsAPISource reads top headlines from newsapi.org.
type NewsAPISource struct {
	apiKey     string
	baseURL    string
	pageSize   int
	userAgent  string
	httpClient *http.Client
}

func NewNewsAPISource(apiKey, baseURL string, pageSize int, userAgent string, timeout time.Duration) *NewsAPISource {
	return &NewsAPISource{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		pageSize:  pageSize,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

func (s *NewsAPISource) Name() string {
	return "newsapi"
}

func (s *NewsAPISource) Headlines(ctx context.Context, sector string) ([]Headline, error) {
	query := url.Values{}
	if sector != DefaultSector {
		query.Set("category", sector)
	}
	query.Set("language", "en")
	query.Set("pageSize", strconv.Itoa(s.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v2/top-headlines?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", s.apiKey)
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrSourceUnavailable, err)
	}

	var decoded newsAPIResponse
	decodeErr := json.Unmarshal(body, &decoded)

	if resp.StatusCode != http.StatusOK || decoded.Status == "error" {
		msg := decoded.Message
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("%w: HTTP %d %s", ErrSourceUnavailable, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrSourceUnavailable, decodeErr)
	}

	headlines := make([]Headline, 0, len(decoded.Articles))
	for _, article := range decoded.Articles {
		headline := Headline{
			Title:       article.Title,
			Description: article.Description,
			Content:     article.Content,
			URL:         article.URL,
			ImageURL:    article.URLToImage,
			SourceName:  article.Source.Name,
		}
		if published, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
			published = published.UTC()
			headline.PublishedAt = &published
		}
		headlines = append(headlines, headline)
	}

	return headlines, nil
}
