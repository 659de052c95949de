package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/veritas-media/veritas/app/reasoning"
)

// DowngradeConfidence is the score below which a critical priority is
// lowered to high.
const DowngradeConfidence = 70

const strategySystemPrompt = `You are a strategic advisor for information integrity. Based on verification results, create actionable strategies.

Generate a response in JSON format:
{
  "summary": "Clear 2-sentence summary of the core issue",
  "actionSteps": [
    "Specific actionable step 1",
    "Specific actionable step 2",
    "Specific actionable step 3",
    "Specific actionable step 4"
  ],
  "priorityLevel": "low|medium|high|critical",
  "timeframe": "immediate|short-term|long-term",
  "stakeholders": ["stakeholder1", "stakeholder2"]
}`

var strategyTable = map[ClaimStatus]StrategyPlan{
	ClaimFalse: {
		Summary: "False information detected with high confidence. Immediate action required to prevent spread and correct misinformation.",
		ActionSteps: []string{
			"Flag content for review and potential removal",
			"Notify relevant fact-checking organizations",
			"Prepare corrective information with credible sources",
			"Monitor for additional instances of this misinformation",
		},
		PriorityLevel: PriorityCritical,
		Timeframe:     "immediate",
		Stakeholders:  []string{"Content moderators", "Fact-checkers", "Platform administrators"},
	},
	ClaimMixed: {
		Summary: "Content contains both accurate and misleading elements. Requires nuanced approach to address inaccuracies while preserving valid information.",
		ActionSteps: []string{
			"Add contextual information to clarify misleading aspects",
			"Provide additional sources for verification",
			"Engage with content creator for clarification",
			"Monitor public response and engagement patterns",
		},
		PriorityLevel: PriorityHigh,
		Timeframe:     "short-term",
		Stakeholders:  []string{"Editorial team", "Subject matter experts", "Community managers"},
	},
	ClaimUnverified: {
		Summary: "Claims require additional investigation due to insufficient evidence. Approach with caution until verification is complete.",
		ActionSteps: []string{
			"Conduct deeper research using additional sources",
			"Consult with domain experts for specialized knowledge",
			"Implement temporary content labeling pending verification",
			"Establish timeline for follow-up investigation",
		},
		PriorityLevel: PriorityMedium,
		Timeframe:     "short-term",
		Stakeholders:  []string{"Research team", "Domain experts", "Editorial oversight"},
	},
	ClaimTrue: {
		Summary: "Information appears accurate based on current verification. Continue monitoring for any new developments or contradictory evidence.",
		ActionSteps: []string{
			"Maintain regular monitoring for updates",
			"Ensure sources remain credible and current",
			"Document verification process for future reference",
			"Share verification results with relevant stakeholders",
		},
		PriorityLevel: PriorityLow,
		Timeframe:     "long-term",
		Stakeholders:  []string{"Content team", "Quality assurance", "Archive managers"},
	},
}

// tableStrategy returns a private copy of the row for status, falling back to
// the unverified row.
func tableStrategy(status ClaimStatus) StrategyPlan {
	row, ok := strategyTable[status]
	if !ok {
		row = strategyTable[ClaimUnverified]
	}
	row.ActionSteps = append([]string(nil), row.ActionSteps...)
	row.Stakeholders = append([]string(nil), row.Stakeholders...)
	return row
}

// applyDowngrade lowers critical to high when confidence is under
// DowngradeConfidence. No other field is touched.
func applyDowngrade(plan StrategyPlan, confidence int) StrategyPlan {
	if plan.PriorityLevel == PriorityCritical && confidence < DowngradeConfidence {
		plan.PriorityLevel = PriorityHigh
	}
	return plan
}

var _ Strategist = MockStrategist{}

type MockStrategist struct{}

func (MockStrategist) Strategize(_ context.Context, verdict ClaimVerdict) StrategyPlan {
	plan := applyDowngrade(tableStrategy(verdict.VerificationStatus), verdict.ConfidenceScore)
	plan.Mocked = true
	return plan
}

var _ Strategist = (*ModelStrategist)(nil)

type ModelStrategist struct {
	client   reasoning.Client
	timeout  time.Duration
	fallback MockStrategist
}

func NewModelStrategist(client reasoning.Client, timeout time.Duration) *ModelStrategist {
	return &ModelStrategist{client: client, timeout: timeout}
}

type modelStrategy struct {
	Summary       string   `json:"summary"`
	ActionSteps   []string `json:"actionSteps"`
	PriorityLevel string   `json:"priorityLevel"`
	Timeframe     string   `json:"timeframe"`
	Stakeholders  []string `json:"stakeholders"`
}

func (s *ModelStrategist) Strategize(ctx context.Context, verdict ClaimVerdict) StrategyPlan {
	plan, err := s.generate(ctx, verdict)
	if err != nil {
		slog.Warn("Strategy generation failed, using strategy table", "model", s.client.Name(), "status", verdict.VerificationStatus, "error", err)
		return s.fallback.Strategize(ctx, verdict)
	}
	return applyDowngrade(plan, verdict.ConfidenceScore)
}

func (s *ModelStrategist) generate(ctx context.Context, verdict ClaimVerdict) (StrategyPlan, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	redFlags := "None"
	if len(verdict.RedFlags) > 0 {
		redFlags = strings.Join(verdict.RedFlags, ", ")
	}
	prompt := fmt.Sprintf("Create a strategy based on this verification result:\nStatus: %s\nConfidence: %d%%\nReasoning: %s\nRed Flags: %s",
		verdict.VerificationStatus, verdict.ConfidenceScore, verdict.Reasoning, redFlags)

	answer, err := s.client.Complete(ctx, reasoning.Request{
		System:      strategySystemPrompt,
		User:        prompt,
		Temperature: 0.4,
		MaxTokens:   800,
	})
	if err != nil {
		return StrategyPlan{}, err
	}

	var parsed modelStrategy
	if err := reasoning.DecodeJSON(answer, &parsed); err != nil {
		return StrategyPlan{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return StrategyPlan{}, fmt.Errorf("%w: missing summary", ErrMalformedResponse)
	}

	priority := ParsePriority(strings.ToLower(strings.TrimSpace(parsed.PriorityLevel)))
	if priority == "" {
		priority = PriorityMedium
	}
	timeframe := parsed.Timeframe
	if timeframe == "" {
		timeframe = "short-term"
	}

	return StrategyPlan{
		Summary:       parsed.Summary,
		ActionSteps:   nonNil(parsed.ActionSteps),
		PriorityLevel: priority,
		Timeframe:     timeframe,
		Stakeholders:  nonNil(parsed.Stakeholders),
	}, nil
}
