package verify

import (
	"log/slog"
	"time"

	"github.com/veritas-media/veritas/app/cfg"
	"github.com/veritas-media/veritas/app/reasoning"
)

type Providers struct {
	Image    ImageVerifier
	Claim    ClaimVerifier
	Strategy Strategist
}

type Options struct {
	TinEyeAPIKey  string
	TinEyeBaseURL string
	UserAgent     string
	Timeout       time.Duration
	// Reasoning is nil when no model credential is configured.
	Reasoning reasoning.Client
	Rand      Rand
}

// NewProviders picks live or generated variants by credential presence.
func NewProviders(opts Options) Providers {
	rnd := opts.Rand
	if rnd == nil {
		rnd = DefaultRand()
	}

	mockImage := NewMockImageVerifier(rnd)
	mockClaim := NewMockClaimVerifier(rnd)

	providers := Providers{
		Image:    mockImage,
		Claim:    mockClaim,
		Strategy: MockStrategist{},
	}

	imageLive := cfg.HasCredential(opts.TinEyeAPIKey)
	if imageLive {
		providers.Image = NewTinEyeVerifier(opts.TinEyeAPIKey, opts.TinEyeBaseURL, opts.UserAgent, opts.Timeout, mockImage)
	}
	if opts.Reasoning != nil {
		providers.Claim = NewModelClaimVerifier(opts.Reasoning, NewMockFactChecker(rnd), opts.Timeout, mockClaim)
		providers.Strategy = NewModelStrategist(opts.Reasoning, opts.Timeout)
	}

	slog.Info("Verification providers configured",
		"image_live", imageLive,
		"reasoning_live", opts.Reasoning != nil)

	return providers
}
