package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.CreateTables(context.Background()); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return store
}

func testEvent() canonical.Event {
	return canonical.Event{
		ID:         "theoddsapi-abc123",
		SportKey:   "soccer_epl",
		LeagueID:   "soccer-epl",
		HomeTeamID: "soccer-epl-manchester-united",
		AwayTeamID: "soccer-epl-arsenal",
		HomeTeam:   "Manchester United",
		AwayTeam:   "Arsenal",
		StartTime:  time.Date(2026, 9, 5, 15, 0, 0, 0, time.UTC),
		Status:     canonical.StatusUpcoming,
	}
}

func TestGetEventUnknownID(t *testing.T) {
	store := openTestStore(t)

	ev, err := store.GetEvent(context.Background(), "theoddsapi-nope")
	if err != nil {
		t.Fatalf("unknown id must not error, got %v", err)
	}
	if ev != nil {
		t.Fatalf("unknown id must return nil event, got %+v", ev)
	}
}

func TestUpsertEventRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	want := testEvent()

	if err := store.UpsertEvent(ctx, want); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := store.GetEvent(ctx, want.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("upserted event not found")
	}
	if got.HomeTeam != want.HomeTeam || got.AwayTeam != want.AwayTeam ||
		got.LeagueID != want.LeagueID || got.Status != want.Status {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if !got.StartTime.Equal(want.StartTime) {
		t.Errorf("start time = %s, want %s", got.StartTime, want.StartTime)
	}
}

func TestUpsertEventStatusNeverRegresses(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ev := testEvent()
	ev.Status = canonical.StatusLive
	if err := store.UpsertEvent(ctx, ev); err != nil {
		t.Fatalf("upsert live: %v", err)
	}

	// A provider reporting a stale lifecycle must not move the event back.
	ev.Status = canonical.StatusUpcoming
	if err := store.UpsertEvent(ctx, ev); err != nil {
		t.Fatalf("upsert upcoming: %v", err)
	}
	got, err := store.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != canonical.StatusLive {
		t.Errorf("status regressed to %s, want live", got.Status)
	}

	ev.Status = canonical.StatusFinished
	if err := store.UpsertEvent(ctx, ev); err != nil {
		t.Fatalf("upsert finished: %v", err)
	}
	got, err = store.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != canonical.StatusFinished {
		t.Errorf("status = %s, want finished", got.Status)
	}
}

func TestInsertQuotesAppendOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	quote := canonical.OddsQuote{
		EventID:      "theoddsapi-abc123",
		BookmakerKey: "bet365",
		MarketKey:    canonical.MarketH2H,
		OutcomeKey:   "home",
		Odds:         2.4,
		ObservedAt:   time.Now().UTC(),
		Source:       "theoddsapi",
		Confidence:   0.9,
	}
	if err := store.InsertQuotes(ctx, []canonical.OddsQuote{quote}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	quote.Odds = 2.5
	if err := store.InsertQuotes(ctx, []canonical.OddsQuote{quote}); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	got, err := store.RecentQuotes(ctx, time.Time{})
	if err != nil {
		t.Fatalf("recent quotes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d quotes, want 2 (observations are append-only)", len(got))
	}
	for _, q := range got {
		if q.EventID != quote.EventID || q.BookmakerKey != quote.BookmakerKey {
			t.Errorf("quote misattributed: %+v", q)
		}
	}
}
