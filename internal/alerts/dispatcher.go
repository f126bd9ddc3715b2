package alerts

import (
	"context"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/dmehra/oddsradar/internal/canonical"
	"github.com/dmehra/oddsradar/internal/logging"
	"github.com/dmehra/oddsradar/internal/notify"
	"github.com/dmehra/oddsradar/internal/queue"
)

// Severity levels, mildest first.
const (
	SeverityMedium = "medium"
	SeverityHigh   = "high"
	SeverityUrgent = "urgent"
)

// NotificationStore records in-app notifications; satisfied by the sqlite store.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n canonical.Notification) (int64, error)
}

// Dispatcher delivers one notification per detected condition: the in-app
// record is authoritative, push and kafka fan-out are best-effort and never
// fail the caller.
type Dispatcher struct {
	store       NotificationStore
	pusher      notify.Pusher
	alertWriter *kafkago.Writer
	dedupeTTL   time.Duration

	// onDispatched/onPushFailed feed metrics; both optional.
	onDispatched func(kind string)
	onPushFailed func()

	mu   sync.Mutex
	seen map[string]time.Time // condition key -> last dispatch
}

type DispatcherConfig struct {
	Store        NotificationStore
	Pusher       notify.Pusher
	AlertWriter  *kafkago.Writer
	DedupeTTL    time.Duration
	OnDispatched func(kind string)
	OnPushFailed func()
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	ttl := cfg.DedupeTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Dispatcher{
		store:        cfg.Store,
		pusher:       cfg.Pusher,
		alertWriter:  cfg.AlertWriter,
		dedupeTTL:    ttl,
		onDispatched: cfg.OnDispatched,
		onPushFailed: cfg.OnPushFailed,
		seen:         make(map[string]time.Time),
	}
}

// Dispatch records and fans out one notification, at most once per
// condition key within the dedupe window. chatID may be empty for
// system-wide alerts with no push target. Returns whether it dispatched.
func (d *Dispatcher) Dispatch(ctx context.Context, conditionKey, chatID string, n canonical.Notification) bool {
	if !d.claim(conditionKey) {
		logging.Debugf("[alerts] duplicate condition %s suppressed", conditionKey)
		return false
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := d.store.InsertNotification(ctx, n); err != nil {
		// Without the in-app record the condition is not considered
		// handled; release the key so the next pass retries.
		logging.Errorf("[alerts] record notification %s: %v", n.Kind, err)
		d.release(conditionKey)
		return false
	}

	if d.pusher != nil && d.pusher.IsEnabled() && chatID != "" {
		if err := d.pusher.Push(ctx, chatID, n); err != nil {
			logging.Errorf("[alerts] push %s to %s: %v", n.Kind, chatID, err)
			if d.onPushFailed != nil {
				d.onPushFailed()
			}
		}
	}

	if err := queue.PublishAlert(ctx, d.alertWriter, n, conditionKey); err != nil {
		logging.Errorf("[alerts] publish %s: %v", n.Kind, err)
	}

	if d.onDispatched != nil {
		d.onDispatched(n.Kind)
	}
	return true
}

func (d *Dispatcher) claim(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.dedupeTTL {
		return false
	}
	// Opportunistic sweep of expired keys to bound the map.
	for k, t := range d.seen {
		if now.Sub(t) >= d.dedupeTTL {
			delete(d.seen, k)
		}
	}
	d.seen[key] = now
	return true
}

func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}
