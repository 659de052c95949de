package verify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/veritas-media/veritas/app/reasoning"
)

const claimSystemPrompt = `You are an expert fact-checker. Analyze the given text claim using chain-of-thought reasoning.

Your analysis should:
1. Break down the claim into verifiable components
2. Consider the credibility of implicit assertions
3. Identify any potential red flags or inconsistencies
4. Provide a confidence score (0-100)
5. Classify as: true, false, mixed, or unverified

Respond in JSON format:
{
  "verificationStatus": "true|false|mixed|unverified",
  "confidenceScore": 85,
  "reasoning": "Step-by-step analysis...",
  "citations": ["source1", "source2"],
  "redFlags": ["flag1", "flag2"]
}`

var mockReasonings = map[ClaimStatus]string{
	ClaimTrue:       "Analysis indicates the core claims are supported by credible sources and align with established facts. No significant red flags detected.",
	ClaimFalse:      "Multiple inconsistencies found with verified information. Claims contradict established facts from reliable sources.",
	ClaimMixed:      "Some elements of the claim are accurate while others are misleading or lack sufficient evidence for verification.",
	ClaimUnverified: "Insufficient reliable sources available to confirm or deny the claims. Requires additional investigation.",
}

var _ ClaimVerifier = (*MockClaimVerifier)(nil)

type MockClaimVerifier struct {
	rnd Rand
}

func NewMockClaimVerifier(rnd Rand) *MockClaimVerifier {
	if rnd == nil {
		rnd = DefaultRand()
	}
	return &MockClaimVerifier{rnd: rnd}
}

func (v *MockClaimVerifier) CheckClaim(_ context.Context, _ string) ClaimVerdict {
	status := claimStatuses[v.rnd.IntN(len(claimStatuses))]
	confidence := v.rnd.IntN(40) + 60

	redFlags := []string{}
	if status == ClaimFalse {
		redFlags = []string{"Contradicts verified data", "Lacks credible sources"}
	}

	return ClaimVerdict{
		VerificationStatus: status,
		ConfidenceScore:    confidence,
		Reasoning:          mockReasonings[status],
		Citations: []string{
			"https://example-factcheck.org/analysis",
			"https://verification-source.com/report",
		},
		RedFlags:         redFlags,
		FactCheckSources: []string{"Example Fact Check", "Verification Source"},
		Mocked:           true,
	}
}

var _ ClaimVerifier = (*ModelClaimVerifier)(nil)

// ModelClaimVerifier asks a reasoning model for a verdict and unions its
// citations with a fact-check lookup.
type ModelClaimVerifier struct {
	client      reasoning.Client
	factChecker FactChecker
	timeout     time.Duration
	fallback    *MockClaimVerifier
}

func NewModelClaimVerifier(client reasoning.Client, factChecker FactChecker, timeout time.Duration, fallback *MockClaimVerifier) *ModelClaimVerifier {
	return &ModelClaimVerifier{
		client:      client,
		factChecker: factChecker,
		timeout:     timeout,
		fallback:    fallback,
	}
}

type modelClaim struct {
	VerificationStatus string   `json:"verificationStatus"`
	ConfidenceScore    float64  `json:"confidenceScore"`
	Reasoning          string   `json:"reasoning"`
	Citations          []string `json:"citations"`
	RedFlags           []string `json:"redFlags"`
}

func (v *ModelClaimVerifier) CheckClaim(ctx context.Context, text string) ClaimVerdict {
	verdict, err := v.analyze(ctx, text)
	if err != nil {
		slog.Warn("Claim analysis failed, using generated verdict", "model", v.client.Name(), "error", err)
		return v.fallback.CheckClaim(ctx, text)
	}
	return verdict
}

func (v *ModelClaimVerifier) analyze(ctx context.Context, text string) (ClaimVerdict, error) {
	callCtx := ctx
	if v.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	answer, err := v.client.Complete(callCtx, reasoning.Request{
		System:      claimSystemPrompt,
		User:        fmt.Sprintf("Analyze this claim: %q", text),
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		return ClaimVerdict{}, err
	}

	var parsed modelClaim
	if err := reasoning.DecodeJSON(answer, &parsed); err != nil {
		return ClaimVerdict{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	facts := v.factChecker.Lookup(ctx, text)

	return ClaimVerdict{
		VerificationStatus: ParseClaimStatus(strings.ToLower(strings.TrimSpace(parsed.VerificationStatus))),
		ConfidenceScore:    Clamp(int(math.Round(parsed.ConfidenceScore))),
		Reasoning:          parsed.Reasoning,
		Citations:          append(nonNil(parsed.Citations), facts.Citations...),
		RedFlags:           nonNil(parsed.RedFlags),
		FactCheckSources:   facts.Sources,
	}, nil
}
