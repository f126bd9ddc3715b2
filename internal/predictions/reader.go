package predictions

import (
	"context"
	"sync"
	"time"

	"github.com/dmehra/oddsradar/internal/logging"
	"github.com/dmehra/oddsradar/internal/snapshot"
)

// SnapshotLoader supplies the current snapshot document; satisfied by the
// aggregator.
type SnapshotLoader interface {
	Load() (*snapshot.Document, error)
}

// SnapshotReader generates predictions for the freshest snapshot events,
// caching per event id so repeated alert sweeps do not re-query the model.
type SnapshotReader struct {
	client    *Client
	loader    SnapshotLoader
	maxEvents int
	ttl       time.Duration

	mu    sync.Mutex
	cache map[string]Prediction
}

func NewSnapshotReader(client *Client, loader SnapshotLoader, maxEvents int, ttl time.Duration) *SnapshotReader {
	if maxEvents <= 0 {
		maxEvents = 10
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SnapshotReader{
		client:    client,
		loader:    loader,
		maxEvents: maxEvents,
		ttl:       ttl,
		cache:     make(map[string]Prediction),
	}
}

// Recent returns predictions for the current snapshot's leading events.
// Model failures are per-event: a failed prediction is logged and skipped.
func (r *SnapshotReader) Recent(ctx context.Context) ([]Prediction, error) {
	doc, err := r.loader.Load()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var out []Prediction
	count := 0
	for _, snap := range doc.Odds {
		if count >= r.maxEvents {
			break
		}
		if snap.Source == snapshot.SourceFallback || len(snap.Odds) == 0 {
			continue
		}
		count++

		if cached, ok := r.cached(snap.EventID, now); ok {
			out = append(out, cached)
			continue
		}

		pred, err := r.client.Predict(ctx, snap)
		if err != nil {
			logging.Errorf("[predictions] event %s: %v", snap.EventID, err)
			continue
		}
		r.store(*pred)
		out = append(out, *pred)
	}
	return out, nil
}

func (r *SnapshotReader) cached(eventID string, now time.Time) (Prediction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pred, ok := r.cache[eventID]
	if !ok || now.Sub(pred.GeneratedAt) > r.ttl {
		return Prediction{}, false
	}
	return pred, true
}

func (r *SnapshotReader) store(pred Prediction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[pred.EventID] = pred
}
