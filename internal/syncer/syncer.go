package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/dmehra/oddsradar/internal/canonical"
	"github.com/dmehra/oddsradar/internal/fallback"
	"github.com/dmehra/oddsradar/internal/logging"
	"github.com/dmehra/oddsradar/internal/providers"
	"github.com/dmehra/oddsradar/internal/queue"
)

// Store is the persistence surface the sync engine writes through;
// satisfied by the sqlite store.
type Store interface {
	UpsertSport(ctx context.Context, sport canonical.Sport) error
	UpsertLeague(ctx context.Context, league canonical.League) error
	UpsertTeam(ctx context.Context, team canonical.Team) error
	UpsertEvent(ctx context.Context, ev canonical.Event) error
	// GetEvent returns (nil, nil) for an id that has never been seen.
	GetEvent(ctx context.Context, id string) (*canonical.Event, error)
	UpsertBookmaker(ctx context.Context, b canonical.Bookmaker) error
	UpsertMarket(ctx context.Context, m canonical.Market) error
	InsertQuotes(ctx context.Context, quotes []canonical.OddsQuote) error
}

// Hooks receives the facts the sync engine produces, in write order.
// Implemented by the alert rule evaluator; nil methods-receiver is allowed.
type Hooks interface {
	OnQuote(ctx context.Context, sportKey, homeTeam, awayTeam string, quote canonical.OddsQuote)
	OnNewEvent(ctx context.Context, ev canonical.Event)
}

// BookmakerMetaSource is the metadata provider surface used for the
// reference-data sync.
type BookmakerMetaSource interface {
	FetchBookmakers(ctx context.Context) ([]providers.RawBookmakerMeta, error)
}

type Config struct {
	Store        Store
	Orchestrator *fallback.Orchestrator
	Meta         BookmakerMetaSource // optional
	QuoteWriter  *kafkago.Writer     // optional; when set, quote rule evaluation moves to the topic consumer
	Hooks        Hooks               // optional
	SportKeys    []string
	Concurrency  int // provider calls in flight, default 3
	FixtureDays  int // fixture lookahead window, default 7

	OnQuotesInserted func(n int) // optional metric hook
}

type Syncer struct {
	cfg     Config
	publish func(ctx context.Context, ev canonical.Event, quotes []canonical.OddsQuote) error
}

func New(cfg Config) *Syncer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.FixtureDays <= 0 {
		cfg.FixtureDays = 7
	}
	s := &Syncer{cfg: cfg}
	if cfg.QuoteWriter != nil {
		s.publish = func(ctx context.Context, ev canonical.Event, quotes []canonical.OddsQuote) error {
			return queue.PublishQuotes(ctx, cfg.QuoteWriter, ev, quotes)
		}
	}
	return s
}

// SyncOdds pulls odds for every tracked sport through the fallback chain and
// persists the canonical entities plus the quote facts. Sports are fetched
// through a small worker pool since the provider calls dominate wall time;
// failures are isolated per sport and per event.
func (s *Syncer) SyncOdds(ctx context.Context) error {
	start := time.Now()
	jobs := make(chan string)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var total, failed int

	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sportKey := range jobs {
				events := s.cfg.Orchestrator.FetchOdds(ctx, sportKey)
				if events == nil {
					logging.Infof("[syncer] no odds for %s from any provider", sportKey)
					continue
				}
				ok, bad := s.ingestOdds(ctx, sportKey, events)
				mu.Lock()
				total += ok
				failed += bad
				mu.Unlock()
			}
		}()
	}

	for _, sportKey := range s.cfg.SportKeys {
		select {
		case jobs <- sportKey:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	logging.Infof("[syncer] odds sync done: %d events stored, %d skipped, took %s",
		total, failed, time.Since(start))
	return nil
}

// ingestOdds maps and persists one sport's raw events. Returns stored and
// skipped counts.
func (s *Syncer) ingestOdds(ctx context.Context, sportKey string, events []providers.RawOddsEvent) (stored, skipped int) {
	for _, raw := range events {
		if err := s.ingestOddsEvent(ctx, sportKey, raw); err != nil {
			logging.Errorf("[syncer] %s event %s: %v", sportKey, raw.ID, err)
			skipped++
			continue
		}
		stored++
	}
	return stored, skipped
}

func (s *Syncer) ingestOddsEvent(ctx context.Context, sportKey string, raw providers.RawOddsEvent) error {
	ev, entities, err := mapOddsEvent(sportKey, raw)
	if err != nil {
		return err
	}

	existing, err := s.cfg.Store.GetEvent(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("lookup event: %w", err)
	}

	if err := s.upsertEntities(ctx, entities, ev); err != nil {
		return err
	}

	if existing == nil && s.cfg.Hooks != nil {
		s.cfg.Hooks.OnNewEvent(ctx, ev)
	}

	quotes := mapQuotes(ev.ID, raw)
	if len(quotes) == 0 {
		return nil
	}
	if err := s.cfg.Store.InsertQuotes(ctx, quotes); err != nil {
		return fmt.Errorf("insert quotes: %w", err)
	}
	if s.cfg.OnQuotesInserted != nil {
		s.cfg.OnQuotesInserted(len(quotes))
	}

	// Each quote is evaluated against user rules exactly once: by the worker
	// consuming the topic when the publish went through, in-process otherwise.
	delivered := false
	if s.publish != nil {
		if err := s.publish(ctx, ev, quotes); err != nil {
			logging.Errorf("[syncer] publish quotes for %s: %v", ev.ID, err)
		} else {
			delivered = true
		}
	}
	if s.cfg.Hooks != nil && !delivered {
		for _, q := range quotes {
			s.cfg.Hooks.OnQuote(ctx, ev.SportKey, ev.HomeTeam, ev.AwayTeam, q)
		}
	}
	return nil
}

// SyncFixtures pulls the scheduling-only view of upcoming matches so events
// exist before any bookmaker prices them.
func (s *Syncer) SyncFixtures(ctx context.Context) error {
	start := time.Now()
	params := providers.FixtureParams{
		DateFrom: time.Now().UTC(),
		DateTo:   time.Now().UTC().AddDate(0, 0, s.cfg.FixtureDays),
	}

	var stored, skipped int
	for _, sportKey := range s.cfg.SportKeys {
		fixtures := s.cfg.Orchestrator.FetchFixtures(ctx, sportKey, params)
		if fixtures == nil {
			logging.Infof("[syncer] no fixtures for %s from any provider", sportKey)
			continue
		}
		for _, raw := range fixtures {
			if err := s.ingestFixture(ctx, sportKey, raw); err != nil {
				logging.Errorf("[syncer] %s fixture %s: %v", sportKey, raw.ID, err)
				skipped++
				continue
			}
			stored++
		}
	}

	logging.Infof("[syncer] fixture sync done: %d stored, %d skipped, took %s",
		stored, skipped, time.Since(start))
	return nil
}

func (s *Syncer) ingestFixture(ctx context.Context, sportKey string, raw providers.RawFixture) error {
	ev, entities, err := mapFixture(sportKey, raw)
	if err != nil {
		return err
	}

	existing, err := s.cfg.Store.GetEvent(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("lookup event: %w", err)
	}
	if err := s.upsertEntities(ctx, entities, ev); err != nil {
		return err
	}
	if existing == nil && s.cfg.Hooks != nil {
		s.cfg.Hooks.OnNewEvent(ctx, ev)
	}
	return nil
}

func (s *Syncer) upsertEntities(ctx context.Context, ent entitySet, ev canonical.Event) error {
	if err := s.cfg.Store.UpsertSport(ctx, ent.sport); err != nil {
		return fmt.Errorf("upsert sport: %w", err)
	}
	if err := s.cfg.Store.UpsertLeague(ctx, ent.league); err != nil {
		return fmt.Errorf("upsert league: %w", err)
	}
	if err := s.cfg.Store.UpsertTeam(ctx, ent.home); err != nil {
		return fmt.Errorf("upsert home team: %w", err)
	}
	if err := s.cfg.Store.UpsertTeam(ctx, ent.away); err != nil {
		return fmt.Errorf("upsert away team: %w", err)
	}
	if err := s.cfg.Store.UpsertEvent(ctx, ev); err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

// SyncReference refreshes static bookmaker and market rows from the metadata
// provider. Runs rarely; a missing metadata source is fine.
func (s *Syncer) SyncReference(ctx context.Context) error {
	if err := s.cfg.Store.UpsertMarket(ctx, canonical.Market{
		Key:         canonical.MarketH2H,
		DisplayName: "Match Winner",
	}); err != nil {
		return fmt.Errorf("upsert market: %w", err)
	}

	if s.cfg.Meta == nil {
		return nil
	}
	metas, err := s.cfg.Meta.FetchBookmakers(ctx)
	if err != nil {
		return fmt.Errorf("fetch bookmakers: %w", err)
	}
	for _, m := range metas {
		b := canonical.Bookmaker{
			Key:              m.Key,
			Brand:            m.Brand,
			Regions:          m.Regions,
			Jurisdictions:    m.Jurisdictions,
			DeepLinkTemplate: m.DeepLinkTemplate,
		}
		if err := s.cfg.Store.UpsertBookmaker(ctx, b); err != nil {
			logging.Errorf("[syncer] upsert bookmaker %s: %v", m.Key, err)
		}
	}
	logging.Infof("[syncer] reference sync done: %d bookmakers", len(metas))
	return nil
}
