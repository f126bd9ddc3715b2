package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmehra/oddsradar/internal/providers"
)

type fakeSource struct {
	odds     map[string][]providers.RawOddsEvent
	fixtures map[string][]providers.RawFixture
}

func (f *fakeSource) FetchOdds(ctx context.Context, sportKey string) []providers.RawOddsEvent {
	return f.odds[sportKey]
}

func (f *fakeSource) FetchFixtures(ctx context.Context, sport string, params providers.FixtureParams) []providers.RawFixture {
	return f.fixtures[sport]
}

func primaryEvent() providers.RawOddsEvent {
	return providers.RawOddsEvent{
		Provider:     providers.NameTheOddsAPI,
		ID:           "ev1",
		SportKey:     "soccer_epl",
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
		CommenceTime: time.Now().Add(24 * time.Hour),
		Bookmakers: []providers.RawBookmaker{{
			Key: "bet365",
			Markets: []providers.RawMarket{{
				Key: "h2h",
				Outcomes: []providers.RawOutcome{
					{Name: "Arsenal", Price: 2.1},
					{Name: "Chelsea", Price: 3.4},
					{Name: "Draw", Price: 3.2},
				},
			}},
		}},
	}
}

func newTestAggregator(t *testing.T, src OddsSource) *Aggregator {
	t.Helper()
	return New(Config{
		Source:    src,
		SportKeys: []string{"soccer_epl"},
		Path:      filepath.Join(t.TempDir(), "snapshot.json"),
	})
}

func TestRefreshTierOnePrimaryOdds(t *testing.T) {
	src := &fakeSource{odds: map[string][]providers.RawOddsEvent{
		"soccer_epl": {primaryEvent()},
	}}
	a := newTestAggregator(t, src)

	snaps, err := a.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}

	s := snaps[0]
	if s.Source != SourcePrimary {
		t.Errorf("source = %s, want %s", s.Source, SourcePrimary)
	}
	if len(s.Odds) != 1 {
		t.Fatalf("got %d bookmaker rows, want 1", len(s.Odds))
	}
	o := s.Odds[0]
	if o.Home != 2.1 || o.Away != 3.4 || o.Draw != 3.2 {
		t.Errorf("odds = %+v, want 2.1/3.4/3.2", o)
	}
}

func TestRefreshTierTwoSynthesizesFromFixtures(t *testing.T) {
	src := &fakeSource{fixtures: map[string][]providers.RawFixture{
		"soccer_epl": {{
			ID: "fx1", SportKey: "soccer_epl",
			HomeTeam: "Arsenal", AwayTeam: "Chelsea",
			StartTime: time.Now().Add(48 * time.Hour),
		}},
	}}
	a := newTestAggregator(t, src)

	snaps, err := a.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	s := snaps[0]
	if s.Source != SourceScraped {
		t.Errorf("source = %s, want %s", s.Source, SourceScraped)
	}
	if len(s.Odds) == 0 {
		t.Fatal("expected synthesized bookmaker odds")
	}

	for _, o := range s.Odds {
		if o.Home <= 1.0 || o.Away <= 1.0 {
			t.Errorf("%s synthesized invalid odds %f/%f", o.Bookmaker, o.Home, o.Away)
		}
		// Margin must land in the 5-10% band.
		implied := 1.0/o.Home + 1.0/o.Away
		if implied < 1.04 || implied > 1.11 {
			t.Errorf("%s overround %f outside the 5-10%% margin band", o.Bookmaker, implied)
		}
	}
}

func TestSynthesizedOddsDeterministic(t *testing.T) {
	a := synthesizeOdds("fx1", "bet365")
	b := synthesizeOdds("fx1", "bet365")
	if a != b {
		t.Errorf("same fixture/bookmaker synthesized different odds: %+v vs %+v", a, b)
	}
	c := synthesizeOdds("fx1", "pinnacle")
	if a == c {
		t.Error("different bookmakers should not synthesize identical odds")
	}
}

func TestRefreshTierThreeFallback(t *testing.T) {
	a := newTestAggregator(t, &fakeSource{})

	snaps, err := a.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	s := snaps[0]
	if s.Source != SourceFallback {
		t.Errorf("source = %s, want %s", s.Source, SourceFallback)
	}
	if s.EventID != "fallback-soccer_epl" {
		t.Errorf("event id = %s", s.EventID)
	}
	if len(s.Odds) != 1 || s.Odds[0].Home != 1.95 {
		t.Errorf("fallback odds = %+v", s.Odds)
	}
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	src := &fakeSource{odds: map[string][]providers.RawOddsEvent{
		"soccer_epl": {primaryEvent()},
	}}
	a := newTestAggregator(t, src)

	snaps, err := a.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	doc, err := a.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.TotalEvents != len(snaps) {
		t.Errorf("totalEvents = %d, want %d", doc.TotalEvents, len(snaps))
	}
	if len(doc.Odds) != 1 || doc.Odds[0].EventID != "ev1" {
		t.Errorf("loaded odds = %+v", doc.Odds)
	}
	if doc.LastUpdated.IsZero() {
		t.Error("lastUpdated missing from persisted document")
	}
}

func TestStaleness(t *testing.T) {
	a := newTestAggregator(t, &fakeSource{})

	// No file yet: stale by definition.
	if !a.Stale() {
		t.Error("missing snapshot should report stale")
	}

	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if a.Stale() {
		t.Error("fresh snapshot reported stale")
	}
	if age := a.Age(); age < 0 || age > time.Minute {
		t.Errorf("unexpected age %s", age)
	}
}
