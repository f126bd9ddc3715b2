package bankroll

import (
	"math"
	"testing"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
)

func history(balances ...float64) []canonical.BankrollEntry {
	out := make([]canonical.BankrollEntry, len(balances))
	at := time.Now().Add(-time.Duration(len(balances)) * time.Hour)
	for i, b := range balances {
		out[i] = canonical.BankrollEntry{UserID: "u1", Balance: b, RecordedAt: at.Add(time.Duration(i) * time.Hour)}
	}
	return out
}

func TestMilestonesCrossed(t *testing.T) {
	tests := []struct {
		name     string
		balances []float64
		want     int
	}{
		{"Flat", []float64{1000, 1000}, 0},
		{"Just under first milestone", []float64{1000, 1240}, 0},
		{"Exactly plus 25 percent", []float64{1000, 1250}, 1},
		{"Plus 60 percent", []float64{1000, 1600}, 2},
		{"Doubled", []float64{1000, 2000}, 4},
		{"Loss", []float64{1000, 800}, 0},
		{"Single entry", []float64{1000}, 0},
		{"Empty", nil, 0},
		{"Zero starting balance", []float64{0, 500}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MilestonesCrossed(history(tt.balances...)); got != tt.want {
				t.Errorf("MilestonesCrossed(%v) = %d, want %d", tt.balances, got, tt.want)
			}
		})
	}
}

func TestDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		balances []float64
		wantPct  float64
		wantTier int
	}{
		{"No decline", []float64{1000, 1100}, 0, 0},
		{"Mild dip", []float64{1000, 1100, 1050}, -0.0454545, 0},
		{"First tier", []float64{1000, 1200, 1068}, -0.11, 1},
		{"Second tier", []float64{1000, 1200, 950}, -0.2083333, 2},
		{"Third tier", []float64{1000, 1200, 780}, -0.35, 3},
		{"Peak mid-history", []float64{1000, 1500, 1200, 1300}, -0.1333333, 1},
		{"Single entry", []float64{1000}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, tier := Drawdown(history(tt.balances...))
			if math.Abs(pct-tt.wantPct) > 0.0001 {
				t.Errorf("pct = %f, want %f", pct, tt.wantPct)
			}
			if tier != tt.wantTier {
				t.Errorf("tier = %d, want %d", tier, tt.wantTier)
			}
		})
	}
}
