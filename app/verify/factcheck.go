package verify

import "context"

type FactCheckResult struct {
	Sources   []string
	Citations []string
}

// FactChecker is the secondary lookup merged into live claim verdicts.
type FactChecker interface {
	Lookup(ctx context.Context, text string) FactCheckResult
}

var factCheckSources = []string{
	"Snopes.com",
	"PolitiFact",
	"FactCheck.org",
	"Reuters Fact Check",
	"AP Fact Check",
}

var factCheckCitations = []string{
	"https://www.snopes.com/fact-check/example",
	"https://www.politifact.com/factchecks/example",
	"https://www.factcheck.org/example",
}

var _ FactChecker = (*MockFactChecker)(nil)

type MockFactChecker struct {
	rnd Rand
}

func NewMockFactChecker(rnd Rand) *MockFactChecker {
	if rnd == nil {
		rnd = DefaultRand()
	}
	return &MockFactChecker{rnd: rnd}
}

func (f *MockFactChecker) Lookup(_ context.Context, _ string) FactCheckResult {
	return FactCheckResult{
		Sources:   append([]string(nil), factCheckSources[:f.rnd.IntN(3)+1]...),
		Citations: append([]string(nil), factCheckCitations[:f.rnd.IntN(2)+1]...),
	}
}
