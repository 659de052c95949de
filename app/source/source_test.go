package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewsAPISource(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/top-headlines", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"Wire"},"title":"T1","description":"D1","url":"https://n/1","urlToImage":"https://n/1.jpg","publishedAt":"2025-01-02T03:04:05Z"},
			{"source":{"name":"Wire"},"title":"T2","description":null,"url":"https://n/2","urlToImage":null,"publishedAt":"bad"}
		]}`))
	}))
	defer server.Close()

	src := NewNewsAPISource("key", server.URL, 20, "test", time.Second)

	headlines, err := src.Headlines(context.Background(), "technology")
	require.NoError(t, err)
	require.Len(t, headlines, 2)
	assert.Equal(t, []string{"technology"}, gotQuery["category"])
	assert.Equal(t, []string{"en"}, gotQuery["language"])
	assert.Equal(t, []string{"20"}, gotQuery["pageSize"])
	assert.Equal(t, "https://n/1.jpg", headlines[0].ImageURL)
	require.NotNil(t, headlines[0].PublishedAt)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), *headlines[0].PublishedAt)
	assert.Empty(t, headlines[1].Description)
	assert.Nil(t, headlines[1].PublishedAt)

	_, err = src.Headlines(context.Background(), DefaultSector)
	require.NoError(t, err)
	assert.NotContains(t, gotQuery, "category")
}

func TestNewsAPISourceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`))
	}))
	defer server.Close()

	_, err := NewNewsAPISource("bad", server.URL, 20, "", time.Second).Headlines(context.Background(), "general")
	require.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "Your API key is invalid")

	server.Close()
	_, err = NewNewsAPISource("bad", server.URL, 20, "", time.Second).Headlines(context.Background(), "general")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

const testFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Desk</title>
<item><title>With image</title><link>%[1]s/a</link><description>&lt;p&gt;Rich &lt;b&gt;text&lt;/b&gt;&lt;/p&gt;</description>
<enclosure url="%[1]s/a.jpg" type="image/jpeg" length="10"/></item>
<item><title>Needs enrichment</title><link>%[1]s/b</link><description></description></item>
<item><title>Sponsored post</title><link>%[1]s/c</link><description>ad</description></item>
</channel></rss>`

const testPage = `<html><head><meta property="og:image" content="/img/b.png"><title>B</title></head>
<body><article><h1>Needs enrichment</h1><p>` + "Body text of the article that readability should find and return as plain text for the headline description." + `</p></article></body></html>`

func TestRSSSource(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, testFeed, server.URL)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testPage))
	})

	tempDir := t.TempDir()
	writeSector(t, tempDir, "technology", fmt.Sprintf(`
feeds: ["%s/feed.xml", "%s/missing.xml"]
settings:
  enrich: true
filters:
  - field: title
    excludes: ["sponsored"]
`, server.URL, server.URL))

	sectors := NewSectorCache(tempDir)
	require.NoError(t, sectors.Run())

	src := NewRSSSource(sectors, server.Client(), "test")
	headlines, err := src.Headlines(context.Background(), "technology")
	require.NoError(t, err)
	require.Len(t, headlines, 2)

	assert.Equal(t, "Rich text", headlines[0].Description)
	assert.Equal(t, server.URL+"/a.jpg", headlines[0].ImageURL)
	assert.Equal(t, "Desk", headlines[0].SourceName)

	assert.Equal(t, server.URL+"/img/b.png", headlines[1].ImageURL)
	assert.True(t, strings.Contains(headlines[1].Description, "Body text"), "description: %q", headlines[1].Description)
}

func TestRSSSourceAllFeedsDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	tempDir := t.TempDir()
	writeSector(t, tempDir, "health", fmt.Sprintf(`feeds: ["%s/feed.xml"]`, server.URL))
	sectors := NewSectorCache(tempDir)
	require.NoError(t, sectors.Run())

	_, err := NewRSSSource(sectors, server.Client(), "test").Headlines(context.Background(), "health")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestMockSource(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &MockSource{now: func() time.Time { return now }, jitter: func() float64 { return 0.25 }}

	headlines, err := src.Headlines(context.Background(), "technology")
	require.NoError(t, err)
	require.Len(t, headlines, 5)

	for _, headline := range headlines {
		assert.True(t, strings.HasPrefix(headline.Title, "[TECHNOLOGY] "), headline.Title)
		assert.NotEmpty(t, headline.Description)
		assert.NotEmpty(t, headline.ImageURL)
		require.NotNil(t, headline.PublishedAt)
		assert.Equal(t, now.Add(-6*time.Hour), *headline.PublishedAt)
	}
	assert.Equal(t, "AI-Generated Content Detection Reaches New Milestone", mockHeadlines[0].Title, "shared table must stay unprefixed")
}

func TestRouterPick(t *testing.T) {
	tempDir := t.TempDir()
	writeSector(t, tempDir, "science", `feeds: ["https://example.com/sci.xml"]`)
	sectors := NewSectorCache(tempDir)
	require.NoError(t, sectors.Run())

	rss := NewRSSSource(sectors, http.DefaultClient, "test")
	mock := NewMockSource()
	api := NewNewsAPISource("key", "https://newsapi.invalid", 20, "", time.Second)

	withoutAPI := NewRouter(nil, rss, mock)
	assert.Equal(t, "rss", withoutAPI.pick("science").Name())
	assert.Equal(t, "mock", withoutAPI.pick("sports").Name())

	withAPI := NewRouter(api, rss, mock)
	assert.Equal(t, "newsapi", withAPI.pick("science").Name())

	assert.Equal(t, "mock", NewRouter(nil, nil, mock).pick("science").Name())
}
