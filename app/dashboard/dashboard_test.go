package dashboard

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/veritas-media/veritas/app/database"
)

func row(imageURL string, image *database.ImageCheck, text *database.TextCheck) database.ArticleWithChecks {
	return database.ArticleWithChecks{
		Article:    database.Article{ImageURL: imageURL},
		ImageCheck: image,
		TextCheck:  text,
	}
}

func imageCheck(status string) *database.ImageCheck { return &database.ImageCheck{Status: status} }
func textCheck(status string) *database.TextCheck {
	return &database.TextCheck{VerificationStatus: status}
}

func TestProject(t *testing.T) {
	snapshot := []database.ArticleWithChecks{
		row("img", imageCheck("verified"), textCheck("true")),       // verified
		row("img", imageCheck("suspicious"), textCheck("true")),     // suspicious
		row("img", imageCheck("manipulated"), textCheck("mixed")),   // suspicious
		row("img", imageCheck("verified"), textCheck("false")),      // suspicious
		row("img", nil, textCheck("true")),                          // processing
		row("img", imageCheck("suspicious"), nil),                   // suspicious + processing
		row("", nil, textCheck("true")),                             // verified, no image
		row("", nil, nil),                                           // processing
		row("img", imageCheck("verified"), textCheck("unverified")), // settled, neither
	}

	want := Stats{Total: 9, Verified: 2, Suspicious: 4, Processing: 3}

	first := Project(snapshot)
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("Project mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, Project(snapshot)); diff != "" {
		t.Errorf("Project is not deterministic (-first +second):\n%s", diff)
	}
}

func TestProjectEmpty(t *testing.T) {
	if diff := cmp.Diff(Stats{}, Project(nil)); diff != "" {
		t.Errorf("unexpected stats for empty snapshot:\n%s", diff)
	}
}

func TestProjectorFollowsChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "dashboard.db"))
	require.NoError(t, err)
	defer db.Close()
	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	ctx := context.Background()
	articles := database.NewArticleRepository(db)
	checks := database.NewCheckRepository(db)

	projector := NewProjector(articles, db.Changes)
	require.NoError(t, projector.Start(ctx))
	defer projector.Stop()

	id, err := articles.InsertArticle(ctx, database.Article{
		URL:         "https://example.com/a",
		Title:       "A",
		Content:     "body",
		Sector:      "technology",
		PublishedAt: time.Now(),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return projector.Current() == Stats{Total: 1, Processing: 1}
	}, 2*time.Second, 10*time.Millisecond)

	_, err = checks.InsertTextCheck(ctx, database.TextCheck{
		ArticleID:          id,
		ClaimText:          "A body",
		VerificationStatus: "true",
		ConfidenceScore:    80,
		Reasoning:          "ok",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return projector.Current() == Stats{Total: 1, Verified: 1}
	}, 2*time.Second, 10*time.Millisecond)

	other, err := projector.Stats(ctx, "sports")
	require.NoError(t, err)
	require.Equal(t, Stats{}, other)
}
