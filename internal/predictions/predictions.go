package predictions

import (
	"context"
	"time"
)

// ValueBet is one outcome the model flags as mispriced.
type ValueBet struct {
	Outcome string  `json:"outcome"`
	Odds    float64 `json:"odds"`
	Edge    float64 `json:"edge"` // model's estimated edge, 0-1
	Flagged bool    `json:"flagged"`
}

// Prediction is one model verdict for an event.
type Prediction struct {
	EventID     string     `json:"event_id"`
	Confidence  float64    `json:"confidence"` // 0-1
	ValueBets   []ValueBet `json:"value_bets"`
	Rationale   string     `json:"rationale,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// HasFlaggedValueBet reports whether at least one value bet is flagged.
func (p Prediction) HasFlaggedValueBet() bool {
	for _, vb := range p.ValueBets {
		if vb.Flagged {
			return true
		}
	}
	return false
}

// Reader exposes recent predictions to the alert engine. The default
// implementation generates them from the current snapshot; swapping in a
// store-backed reader needs no alert-engine changes.
type Reader interface {
	Recent(ctx context.Context) ([]Prediction, error)
}
