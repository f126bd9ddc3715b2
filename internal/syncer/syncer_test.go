package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
	"github.com/dmehra/oddsradar/internal/fallback"
	"github.com/dmehra/oddsradar/internal/providers"
)

type memStore struct {
	mu         sync.Mutex
	sports     map[string]canonical.Sport
	leagues    map[string]canonical.League
	teams      map[string]canonical.Team
	events     map[string]canonical.Event
	bookmakers map[string]canonical.Bookmaker
	markets    map[string]canonical.Market
	quotes     []canonical.OddsQuote
}

func newMemStore() *memStore {
	return &memStore{
		sports:     make(map[string]canonical.Sport),
		leagues:    make(map[string]canonical.League),
		teams:      make(map[string]canonical.Team),
		events:     make(map[string]canonical.Event),
		bookmakers: make(map[string]canonical.Bookmaker),
		markets:    make(map[string]canonical.Market),
	}
}

func (m *memStore) UpsertSport(ctx context.Context, s canonical.Sport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sports[s.Key] = s
	return nil
}

func (m *memStore) UpsertLeague(ctx context.Context, l canonical.League) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leagues[l.ID] = l
	return nil
}

func (m *memStore) UpsertTeam(ctx context.Context, t canonical.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[t.ID] = t
	return nil
}

func (m *memStore) UpsertEvent(ctx context.Context, ev canonical.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.events[ev.ID]; ok && ev.Status.Rank() < existing.Status.Rank() {
		ev.Status = existing.Status
	}
	m.events[ev.ID] = ev
	return nil
}

func (m *memStore) GetEvent(ctx context.Context, id string) (*canonical.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.events[id]; ok {
		return &ev, nil
	}
	return nil, nil
}

func (m *memStore) UpsertBookmaker(ctx context.Context, b canonical.Bookmaker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookmakers[b.Key] = b
	return nil
}

func (m *memStore) UpsertMarket(ctx context.Context, mk canonical.Market) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markets[mk.Key] = mk
	return nil
}

func (m *memStore) InsertQuotes(ctx context.Context, quotes []canonical.OddsQuote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes = append(m.quotes, quotes...)
	return nil
}

type stubProvider struct {
	events []providers.RawOddsEvent
}

func (s *stubProvider) Name() providers.Name { return providers.NameTheOddsAPI }

func (s *stubProvider) FetchOdds(ctx context.Context, sportKey string) ([]providers.RawOddsEvent, error) {
	return s.events, nil
}

type recordingHooks struct {
	mu        sync.Mutex
	newEvents []string
	quotes    int
}

func (r *recordingHooks) OnQuote(ctx context.Context, sportKey, homeTeam, awayTeam string, quote canonical.OddsQuote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes++
}

func (r *recordingHooks) OnNewEvent(ctx context.Context, ev canonical.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newEvents = append(r.newEvents, ev.ID)
}

func rawEvent() providers.RawOddsEvent {
	return providers.RawOddsEvent{
		Provider:     providers.NameTheOddsAPI,
		ID:           "abc123",
		SportKey:     "soccer_epl",
		SportTitle:   "EPL",
		CommenceTime: time.Now().Add(24 * time.Hour),
		HomeTeam:     "Manchester United",
		AwayTeam:     "Arsenal",
		Confidence:   0.9,
		Bookmakers: []providers.RawBookmaker{{
			Key:        "bet365",
			LastUpdate: time.Now(),
			Markets: []providers.RawMarket{{
				Key: "h2h",
				Outcomes: []providers.RawOutcome{
					{Name: "Manchester United", Price: 2.4},
					{Name: "Arsenal", Price: 2.9},
					{Name: "Draw", Price: 3.3},
				},
			}},
		}},
	}
}

func newTestSyncer(store *memStore, hooks Hooks, events ...providers.RawOddsEvent) *Syncer {
	orch := fallback.New(fallback.Config{
		OddsProviders: []providers.OddsProvider{&stubProvider{events: events}},
	})
	return New(Config{
		Store:        store,
		Orchestrator: orch,
		Hooks:        hooks,
		SportKeys:    []string{"soccer_epl"},
		Concurrency:  2,
	})
}

func TestSyncOddsCanonicalizes(t *testing.T) {
	store := newMemStore()
	s := newTestSyncer(store, nil, rawEvent())

	if err := s.SyncOdds(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if _, ok := store.sports["soccer"]; !ok {
		t.Error("sport soccer not upserted")
	}
	if _, ok := store.leagues["soccer-epl"]; !ok {
		t.Error("league soccer-epl not upserted")
	}
	if _, ok := store.teams["soccer-epl-manchester-united"]; !ok {
		t.Errorf("home team id missing, have %v", keysOf(store.teams))
	}
	ev, ok := store.events["theoddsapi-abc123"]
	if !ok {
		t.Fatalf("event missing, have %v", keysOf(store.events))
	}
	if ev.Status != canonical.StatusUpcoming {
		t.Errorf("status = %s, want upcoming", ev.Status)
	}

	if len(store.quotes) != 3 {
		t.Fatalf("got %d quotes, want 3", len(store.quotes))
	}
	outcomes := map[string]bool{}
	for _, q := range store.quotes {
		outcomes[q.OutcomeKey] = true
		if q.EventID != "theoddsapi-abc123" || q.BookmakerKey != "bet365" {
			t.Errorf("quote misattributed: %+v", q)
		}
	}
	for _, want := range []string{"home", "away", "draw"} {
		if !outcomes[want] {
			t.Errorf("missing normalized outcome %s", want)
		}
	}
}

func TestSyncOddsIdempotent(t *testing.T) {
	store := newMemStore()
	hooks := &recordingHooks{}
	s := newTestSyncer(store, hooks, rawEvent())
	ctx := context.Background()

	if err := s.SyncOdds(ctx); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if err := s.SyncOdds(ctx); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	// Entities converge on the same rows; quote facts accumulate.
	if len(store.events) != 1 {
		t.Errorf("got %d events, want 1", len(store.events))
	}
	if len(store.teams) != 2 {
		t.Errorf("got %d teams, want 2", len(store.teams))
	}
	if len(store.quotes) != 6 {
		t.Errorf("got %d quotes, want 6 (observations are append-only)", len(store.quotes))
	}
	if len(hooks.newEvents) != 1 {
		t.Errorf("new-event hook fired %d times, want 1", len(hooks.newEvents))
	}
	if hooks.quotes != 6 {
		t.Errorf("quote hook fired %d times, want 6", hooks.quotes)
	}
}

func TestQuoteHookSkippedWhenPublished(t *testing.T) {
	store := newMemStore()
	hooks := &recordingHooks{}
	s := newTestSyncer(store, hooks, rawEvent())

	var published int
	s.publish = func(ctx context.Context, ev canonical.Event, quotes []canonical.OddsQuote) error {
		published += len(quotes)
		return nil
	}

	if err := s.SyncOdds(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if published != 3 {
		t.Errorf("published %d quotes, want 3", published)
	}
	// The topic consumer owns rule evaluation now; firing the in-process hook
	// too would evaluate every quote twice.
	if hooks.quotes != 0 {
		t.Errorf("quote hook fired %d times despite publish, want 0", hooks.quotes)
	}
	if len(hooks.newEvents) != 1 {
		t.Errorf("new-event hook fired %d times, want 1 (stays in-process)", len(hooks.newEvents))
	}
}

func TestQuoteHookFallsBackWhenPublishFails(t *testing.T) {
	store := newMemStore()
	hooks := &recordingHooks{}
	s := newTestSyncer(store, hooks, rawEvent())

	s.publish = func(ctx context.Context, ev canonical.Event, quotes []canonical.OddsQuote) error {
		return errors.New("broker down")
	}

	if err := s.SyncOdds(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if hooks.quotes != 3 {
		t.Errorf("quote hook fired %d times after failed publish, want 3", hooks.quotes)
	}
	if len(store.quotes) != 3 {
		t.Errorf("got %d persisted quotes, want 3 (publish failure must not block storage)", len(store.quotes))
	}
}

func TestSyncOddsSkipsBadEvents(t *testing.T) {
	bad := rawEvent()
	bad.ID = "bad1"
	bad.AwayTeam = bad.HomeTeam // violates home != away

	store := newMemStore()
	s := newTestSyncer(store, nil, bad, rawEvent())
	if err := s.SyncOdds(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if len(store.events) != 1 {
		t.Errorf("got %d events, want 1 (bad event skipped, good one kept)", len(store.events))
	}
	if _, ok := store.events["theoddsapi-bad1"]; ok {
		t.Error("same-team event must not be persisted")
	}
}

func TestMapQuotesFiltersInvalidPrices(t *testing.T) {
	raw := rawEvent()
	raw.Bookmakers[0].Markets[0].Outcomes = append(raw.Bookmakers[0].Markets[0].Outcomes,
		providers.RawOutcome{Name: "Draw", Price: 0.8})

	quotes := mapQuotes("theoddsapi-abc123", raw)
	if len(quotes) != 3 {
		t.Errorf("got %d quotes, want 3 (price <= 1.0 filtered)", len(quotes))
	}
}

func TestMapFixtureStatus(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-2 * time.Hour)

	tests := []struct {
		status string
		start  time.Time
		want   canonical.EventStatus
	}{
		{"NS", future, canonical.StatusUpcoming},
		{"LIVE", future, canonical.StatusLive},
		{"FT", past, canonical.StatusFinished},
		{"", past, canonical.StatusLive},
		{"", future, canonical.StatusUpcoming},
	}
	for _, tt := range tests {
		if got := mapFixtureStatus(tt.status, tt.start); got != tt.want {
			t.Errorf("mapFixtureStatus(%q) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func keysOf[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
