package fallback

import (
	"context"
	"time"

	"github.com/dmehra/oddsradar/internal/logging"
	"github.com/dmehra/oddsradar/internal/providers"
)

// Orchestrator wraps the configured provider chains and degrades through
// them in priority order. Exhausting a chain is not an error: absence of
// data is a valid outcome, reported as a nil slice.
type Orchestrator struct {
	odds     []providers.OddsProvider
	fixtures []providers.FixtureProvider
	timeout  time.Duration

	// onFallback is invoked with the provider name whenever a provider is
	// skipped over; used for metrics.
	onFallback func(provider string)
}

type Config struct {
	OddsProviders    []providers.OddsProvider
	FixtureProviders []providers.FixtureProvider
	CallTimeout      time.Duration
	OnFallback       func(provider string)
}

func New(cfg Config) *Orchestrator {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Orchestrator{
		odds:       cfg.OddsProviders,
		fixtures:   cfg.FixtureProviders,
		timeout:    timeout,
		onFallback: cfg.OnFallback,
	}
}

// FetchOdds tries each odds provider in priority order until one returns a
// non-empty result. A provider failing or coming back empty never prevents
// trying the next one. Retries belong to the provider clients, not here.
func (o *Orchestrator) FetchOdds(ctx context.Context, sportKey string) []providers.RawOddsEvent {
	for _, p := range o.odds {
		events, err := o.fetchOddsFrom(ctx, p, sportKey)
		if err != nil {
			logging.Errorf("[fallback] %s odds fetch for %s failed: %v", p.Name(), sportKey, err)
			o.fellBack(string(p.Name()))
			continue
		}
		if len(events) == 0 {
			logging.Infof("[fallback] %s returned no odds for %s, trying next provider", p.Name(), sportKey)
			o.fellBack(string(p.Name()))
			continue
		}
		return events
	}
	logging.Infof("[fallback] odds provider chain exhausted for %s", sportKey)
	return nil
}

// FetchFixtures mirrors FetchOdds for the fixture chain.
func (o *Orchestrator) FetchFixtures(ctx context.Context, sport string, params providers.FixtureParams) []providers.RawFixture {
	for _, p := range o.fixtures {
		fixtures, err := o.fetchFixturesFrom(ctx, p, sport, params)
		if err != nil {
			logging.Errorf("[fallback] %s fixture fetch for %s failed: %v", p.Name(), sport, err)
			o.fellBack(string(p.Name()))
			continue
		}
		if len(fixtures) == 0 {
			logging.Infof("[fallback] %s returned no fixtures for %s, trying next provider", p.Name(), sport)
			o.fellBack(string(p.Name()))
			continue
		}
		return fixtures
	}
	logging.Infof("[fallback] fixture provider chain exhausted for %s", sport)
	return nil
}

// Each attempt gets its own deadline so a hung provider cannot stall the
// rest of the chain; timeout is treated like any other provider failure.
func (o *Orchestrator) fetchOddsFrom(ctx context.Context, p providers.OddsProvider, sportKey string) ([]providers.RawOddsEvent, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return p.FetchOdds(callCtx, sportKey)
}

func (o *Orchestrator) fetchFixturesFrom(ctx context.Context, p providers.FixtureProvider, sport string, params providers.FixtureParams) ([]providers.RawFixture, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return p.FetchFixtures(callCtx, sport, params)
}

func (o *Orchestrator) fellBack(provider string) {
	if o.onFallback != nil {
		o.onFallback(provider)
	}
}
