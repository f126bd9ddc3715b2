// Package bankroll computes milestone and drawdown signals over a user's
// bankroll history. History is appended by external collaborators; this
// package only reads.
package bankroll

import (
	"context"

	"github.com/dmehra/oddsradar/internal/canonical"
)

// Source reads bankroll history; satisfied by the sqlite store.
type Source interface {
	BankrollUsers(ctx context.Context) ([]string, error)
	BankrollHistory(ctx context.Context, userID string) ([]canonical.BankrollEntry, error)
}

// MilestoneStep is the cumulative gain per milestone crossing.
const MilestoneStep = 0.25

// DrawdownTiers are the warning thresholds, mildest first.
var DrawdownTiers = []float64{-0.10, -0.20, -0.30}

// MilestonesCrossed returns how many +25% cumulative gain thresholds the
// latest balance has crossed relative to the initial one. Zero when the
// history is too short or flat.
func MilestonesCrossed(history []canonical.BankrollEntry) int {
	if len(history) < 2 {
		return 0
	}
	initial := history[0].Balance
	if initial <= 0 {
		return 0
	}
	latest := history[len(history)-1].Balance
	gain := (latest - initial) / initial

	crossed := 0
	for gain >= MilestoneStep*float64(crossed+1) {
		crossed++
	}
	return crossed
}

// Drawdown returns the current decline from the running peak as a negative
// fraction, and the deepest warning tier reached (0 = none, 1..3 = the
// -10/-20/-30% tiers).
func Drawdown(history []canonical.BankrollEntry) (pct float64, tier int) {
	if len(history) < 2 {
		return 0, 0
	}
	peak := history[0].Balance
	for _, e := range history {
		if e.Balance > peak {
			peak = e.Balance
		}
	}
	if peak <= 0 {
		return 0, 0
	}
	latest := history[len(history)-1].Balance
	pct = (latest - peak) / peak

	for i, threshold := range DrawdownTiers {
		if pct <= threshold {
			tier = i + 1
		}
	}
	return pct, tier
}
