package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-media/veritas/app/dashboard"
	"github.com/veritas-media/veritas/app/database"
	"github.com/veritas-media/veritas/app/source"
	"github.com/veritas-media/veritas/app/verify"
)

type fakeSource struct {
	headlines []source.Headline
	err       error
	sectors   []string
}

func (s *fakeSource) Headlines(_ context.Context, sector string) ([]source.Headline, error) {
	s.sectors = append(s.sectors, sector)
	return s.headlines, s.err
}

func (s *fakeSource) Name() string { return "fake" }

type collectingDispatcher struct {
	mu       sync.Mutex
	articles []database.Article
	err      error
}

func (d *collectingDispatcher) Dispatch(article database.Article) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.articles = append(d.articles, article)
	return d.err
}

type fixedRand struct{ n int }

func (r fixedRand) IntN(n int) int   { return r.n % n }
func (r fixedRand) Float64() float64 { return 0.5 }

func newTestStore(t *testing.T) (*database.DB, *database.SQLArticleRepository, *database.SQLCheckRepository) {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, dirty, err := database.RunMigrations(db)
	require.NoError(t, err)
	require.False(t, dirty)

	return db, database.NewArticleRepository(db), database.NewCheckRepository(db)
}

func headline(url, image string) source.Headline {
	published := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	return source.Headline{
		Title:       "Title " + url,
		Description: "Description " + url,
		URL:         url,
		ImageURL:    image,
		PublishedAt: &published,
	}
}

func TestIngestIsIdempotentByURL(t *testing.T) {
	_, articles, _ := newTestStore(t)
	src := &fakeSource{headlines: []source.Headline{
		headline("https://example.com/1", ""),
		headline("https://example.com/1", ""),
		headline("https://example.com/2", "https://example.com/2.jpg"),
	}}
	dispatcher := &collectingDispatcher{}
	ingestor := NewIngestor(src, articles, dispatcher)
	ctx := context.Background()

	first, err := ingestor.Ingest(ctx, "technology")
	require.NoError(t, err)
	second, err := ingestor.Ingest(ctx, "technology")
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Empty(t, second)
	assert.Len(t, dispatcher.articles, 2)

	count, err := articles.GetArticleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestSkipsMalformedAndDefaultsSector(t *testing.T) {
	_, articles, _ := newTestStore(t)
	noTitle := headline("https://example.com/no-title", "")
	noTitle.Title = ""
	noDescription := headline("https://example.com/no-desc", "")
	noDescription.Description = "  "

	src := &fakeSource{headlines: []source.Headline{noTitle, noDescription, headline("https://example.com/ok", "")}}
	dispatcher := &collectingDispatcher{err: errors.New("queue full")}

	created, err := NewIngestor(src, articles, dispatcher).Ingest(context.Background(), "  ")
	require.NoError(t, err, "dispatch failures must not abort ingestion")
	require.Len(t, created, 1)
	assert.Equal(t, []string{source.DefaultSector}, src.sectors)

	article, err := articles.GetArticle(context.Background(), created[0])
	require.NoError(t, err)
	require.NotNil(t, article)
	assert.Equal(t, source.DefaultSector, article.Sector)
	assert.Equal(t, "Description https://example.com/ok", article.Content)
}

func TestIngestFailsWhenSourceUnavailable(t *testing.T) {
	_, articles, _ := newTestStore(t)
	src := &fakeSource{err: source.ErrSourceUnavailable}

	created, err := NewIngestor(src, articles, &collectingDispatcher{}).Ingest(context.Background(), "general")
	assert.ErrorIs(t, err, source.ErrSourceUnavailable)
	assert.Nil(t, created)
}

type failingArticles struct {
	database.ArticleRepository
	failURL string
}

func (f failingArticles) InsertArticle(ctx context.Context, article database.Article) (string, error) {
	if article.URL == f.failURL {
		return "", errors.New("disk full")
	}
	return f.ArticleRepository.InsertArticle(ctx, article)
}

func TestIngestContinuesAfterWriteFailure(t *testing.T) {
	_, articles, _ := newTestStore(t)
	src := &fakeSource{headlines: []source.Headline{
		headline("https://example.com/bad", ""),
		headline("https://example.com/good", ""),
	}}

	repo := failingArticles{ArticleRepository: articles, failURL: "https://example.com/bad"}
	created, err := NewIngestor(src, repo, &collectingDispatcher{}).Ingest(context.Background(), "general")
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

// recordingChecks logs the order in which check rows are written.
type recordingChecks struct {
	database.CheckRepository
	mu       sync.Mutex
	order    []string
	failText bool
}

func (r *recordingChecks) record(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, kind)
}

func (r *recordingChecks) InsertImageCheck(ctx context.Context, check database.ImageCheck) (string, error) {
	r.record("image")
	return r.CheckRepository.InsertImageCheck(ctx, check)
}

func (r *recordingChecks) InsertTextCheck(ctx context.Context, check database.TextCheck) (string, error) {
	if r.failText {
		return "", errors.New("write failed")
	}
	r.record("text")
	return r.CheckRepository.InsertTextCheck(ctx, check)
}

func (r *recordingChecks) InsertStrategy(ctx context.Context, strategy database.Strategy) (string, error) {
	r.record("strategy")
	return r.CheckRepository.InsertStrategy(ctx, strategy)
}

func mockProviders(n int) verify.Providers {
	return verify.NewProviders(verify.Options{Rand: fixedRand{n: n}})
}

func TestStrategyNeverPrecedesTextCheck(t *testing.T) {
	db, articles, checks := newTestStore(t)
	ctx := context.Background()

	var violations []string
	var mu sync.Mutex
	seen := make(chan struct{}, 10)
	unsubscribe := db.Changes.Subscribe(database.TableStrategies, database.EventInsert, func(change database.Change) {
		row, err := articles.GetArticleWithChecks(ctx, change.ArticleID)
		mu.Lock()
		if err != nil || row == nil || row.TextCheck == nil {
			violations = append(violations, change.ArticleID)
		}
		mu.Unlock()
		seen <- struct{}{}
	})
	defer unsubscribe()

	recorder := &recordingChecks{CheckRepository: checks}
	checker := NewChecker(recorder, mockProviders(1))

	const articleCount = 5
	for i := range articleCount {
		url := "https://example.com/" + string(rune('a'+i))
		id, err := articles.InsertArticle(ctx, database.Article{URL: url, Title: "T", Content: "C", ImageURL: url + ".jpg", Sector: "general", PublishedAt: time.Now()})
		require.NoError(t, err)
		require.NoError(t, checker.Run(ctx, database.Article{ID: id, URL: url, Title: "T", Content: "C", ImageURL: url + ".jpg"}))
	}

	for range articleCount {
		select {
		case <-seen:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for strategy notifications")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, violations)

	textSeen := 0
	for _, kind := range recorder.order {
		switch kind {
		case "text":
			textSeen++
		case "strategy":
			textSeen--
			assert.GreaterOrEqual(t, textSeen, 0, "strategy written before its text check: %v", recorder.order)
		}
	}
}

func TestTextFailureSkipsStrategyButNotImage(t *testing.T) {
	_, articles, checks := newTestStore(t)
	ctx := context.Background()

	id, err := articles.InsertArticle(ctx, database.Article{URL: "https://example.com/x", Title: "T", Content: "C", ImageURL: "https://example.com/x.jpg", Sector: "general", PublishedAt: time.Now()})
	require.NoError(t, err)

	recorder := &recordingChecks{CheckRepository: checks, failText: true}
	err = NewChecker(recorder, mockProviders(0)).Run(ctx, database.Article{ID: id, Title: "T", Content: "C", ImageURL: "https://example.com/x.jpg"})

	assert.Error(t, err)
	assert.Equal(t, []string{"image"}, recorder.order)

	row, err := articles.GetArticleWithChecks(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, row.ImageCheck)
	assert.Nil(t, row.TextCheck)
	assert.Nil(t, row.Strategy)
}

func TestCheckerAppliesDefaults(t *testing.T) {
	_, articles, checks := newTestStore(t)
	ctx := context.Background()

	id, err := articles.InsertArticle(ctx, database.Article{URL: "https://example.com/d", Title: "T", Content: "C", ImageURL: "https://example.com/d.jpg", Sector: "general", PublishedAt: time.Now()})
	require.NoError(t, err)

	providers := verify.Providers{
		Image:    emptyImage{},
		Claim:    emptyClaim{},
		Strategy: verify.MockStrategist{},
	}
	long := strings.Repeat("é", 600)
	require.NoError(t, NewChecker(checks, providers).Run(ctx, database.Article{ID: id, Title: "T", Content: long, ImageURL: "https://example.com/d.jpg"}))

	row, err := articles.GetArticleWithChecks(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, row.ImageCheck)
	require.NotNil(t, row.TextCheck)
	require.NotNil(t, row.Strategy)

	assert.Equal(t, 85, row.ImageCheck.ConfidenceScore)
	assert.Equal(t, "verified", row.ImageCheck.Status)
	assert.Equal(t, 75, row.TextCheck.ConfidenceScore)
	assert.Equal(t, "unverified", row.TextCheck.VerificationStatus)
	assert.Equal(t, "Automated verification completed", row.TextCheck.Reasoning)
	assert.Equal(t, MaxClaimRunes, len([]rune(row.TextCheck.ClaimText)))
	assert.Equal(t, "medium", row.Strategy.PriorityLevel)
}

type emptyImage struct{}

func (emptyImage) CheckImage(context.Context, string) verify.ImageVerdict {
	return verify.ImageVerdict{}
}

type emptyClaim struct{}

func (emptyClaim) CheckClaim(context.Context, string) verify.ClaimVerdict {
	return verify.ClaimVerdict{}
}

func TestClaimTextNormalizesAndJoins(t *testing.T) {
	assert.Equal(t, "Caf\u00e9 opens", ClaimText("Cafe\u0301", "opens"))
	assert.Equal(t, "Title", ClaimText("Title", ""))
}

func TestScenarioThreeArticles(t *testing.T) {
	_, articles, checks := newTestStore(t)
	ctx := context.Background()

	src := &fakeSource{headlines: []source.Headline{
		headline("https://example.com/s1", "https://example.com/s1.jpg"),
		headline("https://example.com/s2", "https://example.com/s2.jpg"),
		headline("https://example.com/s3", ""),
	}}
	dispatcher := &collectingDispatcher{}

	created, err := NewIngestor(src, articles, dispatcher).Ingest(ctx, "general")
	require.NoError(t, err)
	require.Len(t, created, 3)

	snapshot, err := articles.GetSnapshot(ctx, database.ArticleFilter{})
	require.NoError(t, err)
	before := dashboard.Project(snapshot)
	assert.Equal(t, 3, before.Total)
	assert.Equal(t, 3, before.Processing)

	checker := NewChecker(checks, mockProviders(2))
	for _, article := range dispatcher.articles {
		require.NoError(t, checker.Run(ctx, article))
	}

	snapshot, err = articles.GetSnapshot(ctx, database.ArticleFilter{})
	require.NoError(t, err)

	images, texts, strategies := 0, 0, 0
	for _, row := range snapshot {
		if row.ImageCheck != nil {
			images++
		}
		if row.TextCheck != nil {
			texts++
		}
		if row.Strategy != nil {
			strategies++
		}
	}
	assert.Equal(t, 2, images)
	assert.Equal(t, 3, texts)
	assert.Equal(t, 3, strategies)

	after := dashboard.Project(snapshot)
	assert.Equal(t, 3, after.Total)
	assert.Equal(t, 0, after.Processing)
}

func TestVerifyClaimUsesTrueRow(t *testing.T) {
	providers := verify.Providers{
		Claim:    trueClaim{},
		Strategy: verify.MockStrategist{},
	}

	verdict, plan := NewChecker(nil, providers).VerifyClaim(context.Background(), "The sky is blue")

	assert.Equal(t, verify.ClaimTrue, verdict.VerificationStatus)
	assert.Equal(t, verify.PriorityLow, plan.PriorityLevel)
	assert.Equal(t, "long-term", plan.Timeframe)
}

type trueClaim struct{}

func (trueClaim) CheckClaim(context.Context, string) verify.ClaimVerdict {
	return verify.ClaimVerdict{VerificationStatus: verify.ClaimTrue, ConfidenceScore: 60}
}
