package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra/oddsradar/internal/providers"
)

type stubOddsProvider struct {
	name   providers.Name
	events []providers.RawOddsEvent
	err    error
	hang   bool
	calls  int
}

func (s *stubOddsProvider) Name() providers.Name { return s.name }

func (s *stubOddsProvider) FetchOdds(ctx context.Context, sportKey string) ([]providers.RawOddsEvent, error) {
	s.calls++
	if s.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.events, s.err
}

type stubFixtureProvider struct {
	name     providers.Name
	fixtures []providers.RawFixture
	err      error
}

func (s *stubFixtureProvider) Name() providers.Name { return s.name }

func (s *stubFixtureProvider) FetchFixtures(ctx context.Context, sport string, params providers.FixtureParams) ([]providers.RawFixture, error) {
	return s.fixtures, s.err
}

func oddsEvent(id string) providers.RawOddsEvent {
	return providers.RawOddsEvent{ID: id, HomeTeam: "A", AwayTeam: "B"}
}

func TestFetchOddsPrimaryWins(t *testing.T) {
	primary := &stubOddsProvider{name: "primary", events: []providers.RawOddsEvent{oddsEvent("1")}}
	secondary := &stubOddsProvider{name: "secondary", events: []providers.RawOddsEvent{oddsEvent("2")}}

	o := New(Config{OddsProviders: []providers.OddsProvider{primary, secondary}})
	got := o.FetchOdds(context.Background(), "soccer_epl")

	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected primary's event, got %v", got)
	}
	if secondary.calls != 0 {
		t.Error("secondary must not be called when the primary succeeds")
	}
}

func TestFetchOddsFallsBackOnError(t *testing.T) {
	var fallbacks []string
	primary := &stubOddsProvider{name: "primary", err: errors.New("boom")}
	secondary := &stubOddsProvider{name: "secondary", events: []providers.RawOddsEvent{oddsEvent("2")}}

	o := New(Config{
		OddsProviders: []providers.OddsProvider{primary, secondary},
		OnFallback:    func(p string) { fallbacks = append(fallbacks, p) },
	})
	got := o.FetchOdds(context.Background(), "soccer_epl")

	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected secondary's event, got %v", got)
	}
	if len(fallbacks) != 1 || fallbacks[0] != "primary" {
		t.Errorf("fallback hook got %v, want [primary]", fallbacks)
	}
}

func TestFetchOddsFallsBackOnEmpty(t *testing.T) {
	// An empty result is a fallback trigger, same as an error.
	primary := &stubOddsProvider{name: "primary"}
	secondary := &stubOddsProvider{name: "secondary", events: []providers.RawOddsEvent{oddsEvent("2")}}

	o := New(Config{OddsProviders: []providers.OddsProvider{primary, secondary}})
	got := o.FetchOdds(context.Background(), "soccer_epl")
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected secondary's event, got %v", got)
	}
}

func TestFetchOddsExhaustedReturnsNil(t *testing.T) {
	primary := &stubOddsProvider{name: "primary", err: errors.New("down")}
	secondary := &stubOddsProvider{name: "secondary", err: errors.New("also down")}

	o := New(Config{OddsProviders: []providers.OddsProvider{primary, secondary}})
	if got := o.FetchOdds(context.Background(), "soccer_epl"); got != nil {
		t.Fatalf("exhausted chain must return nil, got %v", got)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Error("every provider in the chain gets exactly one attempt")
	}
}

func TestFetchOddsHungProviderTimesOut(t *testing.T) {
	primary := &stubOddsProvider{name: "primary", hang: true}
	secondary := &stubOddsProvider{name: "secondary", events: []providers.RawOddsEvent{oddsEvent("2")}}

	o := New(Config{
		OddsProviders: []providers.OddsProvider{primary, secondary},
		CallTimeout:   20 * time.Millisecond,
	})

	start := time.Now()
	got := o.FetchOdds(context.Background(), "soccer_epl")
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected secondary after timeout, got %v", got)
	}
	if time.Since(start) > time.Second {
		t.Error("hung provider stalled the chain past its deadline")
	}
}

func TestFetchFixturesFallback(t *testing.T) {
	primary := &stubFixtureProvider{name: "primary", err: errors.New("down")}
	secondary := &stubFixtureProvider{name: "secondary", fixtures: []providers.RawFixture{{ID: "f1", HomeTeam: "A", AwayTeam: "B"}}}

	o := New(Config{FixtureProviders: []providers.FixtureProvider{primary, secondary}})
	got := o.FetchFixtures(context.Background(), "soccer_epl", providers.FixtureParams{})
	if len(got) != 1 || got[0].ID != "f1" {
		t.Fatalf("expected secondary's fixture, got %v", got)
	}
}
