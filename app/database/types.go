package database

import (
	"time"
)

type Article struct {
	ID          string // generated UUID
	URL         string // dedupe key
	Title       string
	Content     string
	ImageURL    string // empty when the headline carried no image
	Sector      string
	PublishedAt time.Time
	CreatedAt   time.Time
}

func (a Article) HasImage() bool {
	return a.ImageURL != ""
}

type ImageCheck struct {
	ID              string
	ArticleID       string
	ImageURL        string
	MatchCount      int
	EarliestDate    *time.Time
	ContextURLs     []string
	ConfidenceScore int
	Status          string // verified, suspicious, manipulated
	CreatedAt       time.Time
}

type TextCheck struct {
	ID                 string
	ArticleID          string
	ClaimText          string
	VerificationStatus string // true, false, mixed, unverified
	ConfidenceScore    int
	Citations          []string
	Reasoning          string
	CreatedAt          time.Time
}

type Strategy struct {
	ID            string
	ArticleID     string
	Summary       string
	ActionSteps   []string
	PriorityLevel string // low, medium, high, critical
	Timeframe     string
	Stakeholders  []string
	CreatedAt     time.Time
}

type Feedback struct {
	ID           string
	ArticleID    string
	UserRating   int
	FeedbackText string
	Helpful      bool
	CreatedAt    time.Time
}

type FeedbackSummary struct {
	Total     int
	Helpful   int
	AvgRating float64
}

// ArticleWithChecks is one row of a snapshot: an article joined with the
// checks that have landed so far. Absent checks are nil.
type ArticleWithChecks struct {
	Article
	ImageCheck *ImageCheck
	TextCheck  *TextCheck
	Strategy   *Strategy
}

// ArticleFilter narrows listings. A zero Limit means DefaultListLimit.
type ArticleFilter struct {
	Sector string
	Limit  int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 50
)

func (f ArticleFilter) limit() uint64 {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return uint64(f.Limit)
	}
}
