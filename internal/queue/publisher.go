package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra/oddsradar/internal/canonical"
)

// QuoteMessage is the envelope placed on the odds.quotes topic for every
// persisted observation. Carries enough event context for rule evaluation
// without a store lookup.
type QuoteMessage struct {
	Quote       canonical.OddsQuote `json:"quote"`
	SportKey    string              `json:"sport_key"`
	HomeTeam    string              `json:"home_team"`
	AwayTeam    string              `json:"away_team"`
	PublishedAt time.Time           `json:"published_at"`
}

// AlertMessage is the envelope placed on the alerts.events topic.
type AlertMessage struct {
	Notification canonical.Notification `json:"notification"`
	ConditionKey string                 `json:"condition_key"`
	PublishedAt  time.Time              `json:"published_at"`
}

// PublishQuotes fans the cycle's new observations out for downstream
// consumers (rule worker, analytics).
func PublishQuotes(ctx context.Context, writer *kafka.Writer, ev canonical.Event, quotes []canonical.OddsQuote) error {
	if writer == nil || len(quotes) == 0 {
		return nil
	}

	published := time.Now().UTC()
	msgs := make([]kafka.Message, 0, len(quotes))
	for _, q := range quotes {
		msg := QuoteMessage{
			Quote:       q,
			SportKey:    ev.SportKey,
			HomeTeam:    ev.HomeTeam,
			AwayTeam:    ev.AwayTeam,
			PublishedAt: published,
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal quote %s/%s: %w", q.EventID, q.OutcomeKey, err)
		}
		// Keyed by event id so the hashing writer keeps one event's
		// observations on a single partition, in order.
		msgs = append(msgs, kafka.Message{Key: []byte(q.EventID), Value: payload})
	}
	return writer.WriteMessages(ctx, msgs...)
}

// PublishAlert emits one alert event; failures are the caller's to log and
// swallow, never to surface back into the evaluation loop.
func PublishAlert(ctx context.Context, writer *kafka.Writer, n canonical.Notification, conditionKey string) error {
	if writer == nil {
		return nil
	}
	payload, err := json.Marshal(AlertMessage{
		Notification: n,
		ConditionKey: conditionKey,
		PublishedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal alert %s: %w", n.Kind, err)
	}
	return writer.WriteMessages(ctx, kafka.Message{Key: []byte(conditionKey), Value: payload})
}
