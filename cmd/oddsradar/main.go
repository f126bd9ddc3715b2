package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/dmehra/oddsradar/internal/alerts"
	"github.com/dmehra/oddsradar/internal/arb"
	"github.com/dmehra/oddsradar/internal/canonical"
	"github.com/dmehra/oddsradar/internal/config"
	"github.com/dmehra/oddsradar/internal/control"
	"github.com/dmehra/oddsradar/internal/fallback"
	"github.com/dmehra/oddsradar/internal/kafka"
	"github.com/dmehra/oddsradar/internal/logging"
	"github.com/dmehra/oddsradar/internal/metrics"
	"github.com/dmehra/oddsradar/internal/notify"
	"github.com/dmehra/oddsradar/internal/predictions"
	"github.com/dmehra/oddsradar/internal/providers"
	"github.com/dmehra/oddsradar/internal/providers/fixturely"
	"github.com/dmehra/oddsradar/internal/providers/metasport"
	"github.com/dmehra/oddsradar/internal/providers/sportmonk"
	"github.com/dmehra/oddsradar/internal/providers/theoddsapi"
	"github.com/dmehra/oddsradar/internal/scheduler"
	"github.com/dmehra/oddsradar/internal/snapshot"
	"github.com/dmehra/oddsradar/internal/snapshot/state"
	sqlstore "github.com/dmehra/oddsradar/internal/storage/sqlite"
	"github.com/dmehra/oddsradar/internal/syncer"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()
	defer logging.Sync()

	cfg := config.Load("oddsradar")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()
	if err := store.CreateTables(ctx); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	orchestrator := fallback.New(fallback.Config{
		OddsProviders: []providers.OddsProvider{
			theoddsapi.NewClient(theoddsapi.Config{
				APIKey:  os.Getenv("THEODDSAPI_KEY"),
				Timeout: cfg.ProviderTimeout,
			}),
			sportmonk.NewClient(sportmonk.Config{
				Token:   os.Getenv("SPORTMONK_TOKEN"),
				Timeout: cfg.ProviderTimeout,
			}),
		},
		FixtureProviders: []providers.FixtureProvider{
			theoddsapi.NewClient(theoddsapi.Config{
				APIKey:  os.Getenv("THEODDSAPI_KEY"),
				Timeout: cfg.ProviderTimeout,
			}),
			fixturely.NewClient(fixturely.Config{
				APIKey:  os.Getenv("FIXTURELY_KEY"),
				Timeout: cfg.ProviderTimeout,
			}),
		},
		CallTimeout: cfg.ProviderTimeout,
		OnFallback: func(provider string) {
			metrics.ProviderFallbacks.WithLabelValues(provider).Inc()
		},
	})

	aggregator := snapshot.New(snapshot.Config{
		Source:    orchestrator,
		SportKeys: cfg.SportKeys,
		Path:      cfg.SnapshotPath,
	})

	prev := openPrevStore(cfg)
	defer prev.Close()

	var quoteWriter, alertWriter *kafkago.Writer
	if len(cfg.KafkaBrokers) > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
		err := kafka.WaitForBroker(waitCtx, cfg.KafkaBrokers)
		cancel()
		if err != nil {
			logging.Errorf("[oddsradar] kafka unreachable, continuing without: %v", err)
		} else {
			for _, topic := range []string{cfg.TopicOddsQuotes, cfg.TopicAlertEvents} {
				ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
				if err := kafka.EnsureTopic(ensureCtx, cfg.KafkaBrokers, topic); err != nil {
					logging.Errorf("[oddsradar] ensure topic %s: %v", topic, err)
				}
				cancelEnsure()
			}
			quoteWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOddsQuotes)
			alertWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicAlertEvents)
			defer quoteWriter.Close()
			defer alertWriter.Close()
		}
	}

	dispatcher := alerts.NewDispatcher(alerts.DispatcherConfig{
		Store:       store,
		Pusher:      notify.NewWebhookPusher(cfg.PushWebhookURL),
		AlertWriter: alertWriter,
		OnDispatched: func(kind string) {
			metrics.AlertsDispatched.WithLabelValues(kind).Inc()
		},
		OnPushFailed: func() { metrics.PushFailures.Inc() },
	})
	evaluator := alerts.NewRuleEvaluator(store, dispatcher)

	engine := alerts.NewEngine(alerts.EngineConfig{
		Snapshots:     aggregator,
		Previous:      prev,
		Dispatcher:    dispatcher,
		Evaluator:     evaluator,
		Opportunities: countingOpportunityStore{store},
		Predictions:   buildPredictionReader(cfg, aggregator),
		Bankroll:      store,
		Arb:           arb.Config{},
	})

	sync := syncer.New(syncer.Config{
		Store:        store,
		Orchestrator: orchestrator,
		Meta:         metasport.NewClient(metasport.Config{Timeout: cfg.ProviderTimeout}),
		QuoteWriter:  quoteWriter,
		Hooks:        evaluator,
		SportKeys:    cfg.SportKeys,
		Concurrency:  cfg.SyncConcurrency,
		OnQuotesInserted: func(n int) {
			metrics.QuotesIngested.Add(float64(n))
		},
	})

	sched := scheduler.New(ctx)
	sched.Every(cfg.OddsSyncInterval, "odds-sync", func(ctx context.Context) {
		if err := sync.SyncOdds(ctx); err != nil {
			logging.Errorf("[oddsradar] odds sync: %v", err)
		}
	})
	sched.Every(cfg.FixtureSyncInterval, "fixture-sync", func(ctx context.Context) {
		if err := sync.SyncFixtures(ctx); err != nil {
			logging.Errorf("[oddsradar] fixture sync: %v", err)
		}
	})
	sched.Every(cfg.SnapshotInterval, "snapshot-refresh", func(ctx context.Context) {
		if _, err := aggregator.Refresh(ctx); err != nil {
			logging.Errorf("[oddsradar] snapshot refresh: %v", err)
		}
		metrics.SnapshotAgeSeconds.Set(aggregator.Age().Seconds())
	})
	sched.Every(cfg.AlertSweepInterval, "alert-sweep", func(ctx context.Context) {
		if err := engine.Sweep(ctx); err != nil {
			logging.Errorf("[oddsradar] alert sweep: %v", err)
		}
	})
	sched.Every(24*time.Hour, "reference-sync", func(ctx context.Context) {
		if err := sync.SyncReference(ctx); err != nil {
			logging.Errorf("[oddsradar] reference sync: %v", err)
		}
	})

	// Seed reference data once on boot so events have markets to hang off.
	if err := sync.SyncReference(ctx); err != nil {
		logging.Errorf("[oddsradar] initial reference sync: %v", err)
	}

	metricsSrv := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) (string, error) {
		if err := store.Ping(ctx); err != nil {
			return "", err
		}
		return fmt.Sprintf("ok stale=%t", aggregator.Age() > snapshot.StalenessCutoff), nil
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	api := &control.API{
		Rules:  store,
		Engine: engine,
		TriggerSync: func(ctx context.Context, sportKeys []string) {
			if len(sportKeys) == 0 {
				if err := sync.SyncOdds(ctx); err != nil {
					logging.Errorf("[oddsradar] triggered sync: %v", err)
				}
				return
			}
			scoped := syncer.New(syncer.Config{
				Store:        store,
				Orchestrator: orchestrator,
				QuoteWriter:  quoteWriter,
				Hooks:        evaluator,
				SportKeys:    sportKeys,
				Concurrency:  cfg.SyncConcurrency,
			})
			if err := scoped.SyncOdds(ctx); err != nil {
				logging.Errorf("[oddsradar] triggered sync: %v", err)
			}
		},
	}

	sched.Start()
	defer sched.Stop()

	logging.Infof("[oddsradar] up: control :%s, metrics :%s, sports %v",
		cfg.HTTPPort, cfg.MetricsPort, cfg.SportKeys)
	if err := api.Serve(ctx, cfg.HTTPPort); err != nil {
		logging.Errorf("[oddsradar] control server: %v", err)
	}
}

func openPrevStore(cfg config.Config) state.PreviousSnapshotStore {
	if cfg.RedisAddr == "" {
		return state.NewMemoryStore()
	}
	prev, err := state.NewRedisStore(cfg.RedisAddr, os.Getenv("REDIS_PASSWORD"), 0, 0, "")
	if err != nil {
		logging.Errorf("[oddsradar] redis unavailable, using in-memory diff state: %v", err)
		return state.NewMemoryStore()
	}
	return prev
}

func buildPredictionReader(cfg config.Config, aggregator *snapshot.Aggregator) predictions.Reader {
	if cfg.PredictionAPIKey == "" {
		return nil
	}
	client, err := predictions.NewClient(predictions.Config{
		APIKey:  cfg.PredictionAPIKey,
		BaseURL: cfg.PredictionBaseURL,
		Model:   cfg.PredictionModel,
	})
	if err != nil {
		logging.Errorf("[oddsradar] prediction client disabled: %v", err)
		return nil
	}
	return predictions.NewSnapshotReader(client, aggregator, 0, 0)
}

// countingOpportunityStore bumps the detection counter on every persisted
// opportunity.
type countingOpportunityStore struct {
	store *sqlstore.Store
}

func (c countingOpportunityStore) InsertOpportunity(ctx context.Context, op canonical.ArbitrageOpportunity) (int64, error) {
	id, err := c.store.InsertOpportunity(ctx, op)
	if err == nil {
		metrics.OpportunitiesDetected.Inc()
	}
	return id, err
}
