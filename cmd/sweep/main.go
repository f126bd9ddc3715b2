package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmehra/oddsradar/internal/alerts"
	"github.com/dmehra/oddsradar/internal/arb"
	"github.com/dmehra/oddsradar/internal/config"
	"github.com/dmehra/oddsradar/internal/fallback"
	"github.com/dmehra/oddsradar/internal/logging"
	"github.com/dmehra/oddsradar/internal/notify"
	"github.com/dmehra/oddsradar/internal/providers"
	"github.com/dmehra/oddsradar/internal/providers/sportmonk"
	"github.com/dmehra/oddsradar/internal/providers/theoddsapi"
	"github.com/dmehra/oddsradar/internal/snapshot"
	"github.com/dmehra/oddsradar/internal/snapshot/state"
	sqlstore "github.com/dmehra/oddsradar/internal/storage/sqlite"
)

// sweep runs a single alert cycle and exits. Operator tool for smoke-testing
// alerting without the daemon's scheduler.
func main() {
	godotenv.Load()
	logging.InitFromEnv()
	defer logging.Sync()

	cfg := config.Load("sweep")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := sqlstore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

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
		CallTimeout: cfg.ProviderTimeout,
	})

	aggregator := snapshot.New(snapshot.Config{
		Source:    orchestrator,
		SportKeys: cfg.SportKeys,
		Path:      cfg.SnapshotPath,
	})

	dispatcher := alerts.NewDispatcher(alerts.DispatcherConfig{
		Store:  store,
		Pusher: notify.NewWebhookPusher(cfg.PushWebhookURL),
	})

	engine := alerts.NewEngine(alerts.EngineConfig{
		Snapshots:     aggregator,
		Previous:      state.NewMemoryStore(),
		Dispatcher:    dispatcher,
		Evaluator:     alerts.NewRuleEvaluator(store, dispatcher),
		Opportunities: store,
		Bankroll:      store,
		Arb:           arb.Config{},
	})

	if err := engine.RunOnce(ctx); err != nil {
		log.Fatalf("sweep: %v", err)
	}
}
