package verify

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

var ErrMalformedResponse = errors.New("malformed provider response")

type ImageStatus string

const (
	ImageVerified    ImageStatus = "verified"
	ImageSuspicious  ImageStatus = "suspicious"
	ImageManipulated ImageStatus = "manipulated"
)

type ClaimStatus string

const (
	ClaimTrue       ClaimStatus = "true"
	ClaimFalse      ClaimStatus = "false"
	ClaimMixed      ClaimStatus = "mixed"
	ClaimUnverified ClaimStatus = "unverified"
)

var claimStatuses = []ClaimStatus{ClaimTrue, ClaimFalse, ClaimMixed, ClaimUnverified}

// ParseClaimStatus returns "" for anything outside the four known statuses.
func ParseClaimStatus(s string) ClaimStatus {
	for _, status := range claimStatuses {
		if string(status) == s {
			return status
		}
	}
	return ""
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func ParsePriority(s string) Priority {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p
	}
	return ""
}

type ImageDetails struct {
	TotalMatches      int       `json:"totalMatches"`
	UniqueDomains     int       `json:"uniqueDomains"`
	AnalysisTimestamp time.Time `json:"analysisTimestamp"`
}

type ImageVerdict struct {
	MatchCount   int          `json:"matchCount"`
	EarliestDate *time.Time   `json:"earliestDate"`
	ContextURLs  []string     `json:"contextUrls"`
	Confidence   int          `json:"confidence"`
	Status       ImageStatus  `json:"status"`
	Details      ImageDetails `json:"details"`
	Mocked       bool         `json:"mocked"`
}

type ClaimVerdict struct {
	VerificationStatus ClaimStatus `json:"verificationStatus"`
	ConfidenceScore    int         `json:"confidenceScore"`
	Reasoning          string      `json:"reasoning"`
	Citations          []string    `json:"citations"`
	RedFlags           []string    `json:"redFlags"`
	FactCheckSources   []string    `json:"factCheckSources"`
	Mocked             bool        `json:"mocked"`
}

type StrategyPlan struct {
	Summary       string   `json:"summary"`
	ActionSteps   []string `json:"actionSteps"`
	PriorityLevel Priority `json:"priorityLevel"`
	Timeframe     string   `json:"timeframe"`
	Stakeholders  []string `json:"stakeholders"`
	Mocked        bool     `json:"mocked"`
}

// ImageVerifier never fails: live lookups that error out fall back to a
// generated verdict.
type ImageVerifier interface {
	CheckImage(ctx context.Context, imageURL string) ImageVerdict
}

type ClaimVerifier interface {
	CheckClaim(ctx context.Context, text string) ClaimVerdict
}

type Strategist interface {
	Strategize(ctx context.Context, verdict ClaimVerdict) StrategyPlan
}

// Rand is the randomness source of the mock providers.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand is safe for concurrent use.
func DefaultRand() Rand {
	return globalRand{}
}

// Clamp bounds a score to [0,100].
func Clamp(score int) int {
	return max(0, min(100, score))
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
