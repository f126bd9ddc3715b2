package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmehra/oddsradar/internal/alerts"
	"github.com/dmehra/oddsradar/internal/config"
	"github.com/dmehra/oddsradar/internal/kafka"
	"github.com/dmehra/oddsradar/internal/logging"
	"github.com/dmehra/oddsradar/internal/metrics"
	"github.com/dmehra/oddsradar/internal/notify"
	"github.com/dmehra/oddsradar/internal/queue"
	sqlstore "github.com/dmehra/oddsradar/internal/storage/sqlite"
	"github.com/dmehra/oddsradar/internal/workers"
)

// rule-worker evaluates user alert rules against the odds quote stream. It
// runs separately from the daemon so rule evaluation keeps up when sync
// cycles are heavy.
func main() {
	godotenv.Load()
	logging.InitFromEnv()
	defer logging.Sync()

	cfg := config.Load("rule-worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("rule-worker requires KAFKA_BROKERS")
	}

	store, err := sqlstore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	if err := kafka.WaitForBroker(waitCtx, cfg.KafkaBrokers); err != nil {
		log.Fatalf("wait for broker: %v", err)
	}
	cancel()

	dispatcher := alerts.NewDispatcher(alerts.DispatcherConfig{
		Store:  store,
		Pusher: notify.NewWebhookPusher(cfg.PushWebhookURL),
		OnDispatched: func(kind string) {
			metrics.AlertsDispatched.WithLabelValues(kind).Inc()
		},
		OnPushFailed: func() { metrics.PushFailures.Inc() },
	})
	evaluator := alerts.NewRuleEvaluator(store, dispatcher)

	metricsSrv := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) (string, error) {
		return "", store.Ping(ctx)
	})
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancelShutdown()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	group := envString("RULE_WORKER_GROUP", "rule-workers")
	workerCount := cfg.SyncConcurrency

	logging.Infof("[rule-worker] consuming %s with group %s (%d workers)",
		cfg.TopicOddsQuotes, group, workerCount)
	workers.Run(ctx, cfg.KafkaBrokers, cfg.TopicOddsQuotes, group, workerCount,
		func(ctx context.Context, qm *queue.QuoteMessage) error {
			evaluator.OnQuote(ctx, qm.SportKey, qm.HomeTeam, qm.AwayTeam, qm.Quote)
			return nil
		})
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
