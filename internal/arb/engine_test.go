package arb

import (
	"math"
	"testing"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
)

func quote(bookmaker, outcome string, odds float64) canonical.OddsQuote {
	return canonical.OddsQuote{
		EventID:      "theoddsapi-ev1",
		BookmakerKey: bookmaker,
		MarketKey:    canonical.MarketH2H,
		OutcomeKey:   outcome,
		Odds:         odds,
		ObservedAt:   time.Now().UTC(),
		Source:       "theoddsapi",
		Confidence:   0.9,
	}
}

func TestBestQuotes(t *testing.T) {
	quotes := []canonical.OddsQuote{
		quote("bet365", "home", 1.95),
		quote("pinnacle", "home", 2.10),
		quote("bet365", "away", 2.05),
		quote("pinnacle", "away", 1.90),
		quote("unibet", "home", 0.5), // invalid, filtered
	}

	best := BestQuotes(quotes)
	if len(best) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(best))
	}
	if best["home"].BookmakerKey != "pinnacle" || best["home"].Odds != 2.10 {
		t.Errorf("best home = %s@%f, want pinnacle@2.10", best["home"].BookmakerKey, best["home"].Odds)
	}
	if best["away"].BookmakerKey != "bet365" || best["away"].Odds != 2.05 {
		t.Errorf("best away = %s@%f, want bet365@2.05", best["away"].BookmakerKey, best["away"].Odds)
	}
}

func TestEvaluateProfitableTwoWay(t *testing.T) {
	// Best cross-book prices 2.10 / 2.10 give a -4.76% margin.
	quotes := []canonical.OddsQuote{
		quote("bet365", "home", 2.10),
		quote("bet365", "away", 1.85),
		quote("pinnacle", "home", 1.85),
		quote("pinnacle", "away", 2.10),
	}

	result := Evaluate("theoddsapi-ev1", canonical.MarketH2H, quotes, Config{NominalStake: 100})
	if !result.Profitable {
		t.Fatalf("expected profitable, got reason %q", result.Reason)
	}
	op := result.Opportunity

	if math.Abs(op.ProfitMargin-(-4.761904)) > 0.001 {
		t.Errorf("margin = %f, want -4.76", op.ProfitMargin)
	}
	if len(op.Legs) != 2 {
		t.Fatalf("got %d legs, want 2", len(op.Legs))
	}

	var total, payout float64
	for i, leg := range op.Legs {
		total += leg.Stake
		p := leg.Stake * leg.Odds
		if i == 0 {
			payout = p
		} else if math.Abs(p-payout) > 0.0001 {
			t.Errorf("leg payouts differ: %f vs %f", p, payout)
		}
	}
	if math.Abs(total-100) > 0.0001 {
		t.Errorf("stakes sum to %f, want 100", total)
	}
	if payout <= 100 {
		t.Errorf("payout %f does not beat the stake", payout)
	}

	if op.Confidence < 0 || op.Confidence > 1 {
		t.Errorf("confidence out of range: %f", op.Confidence)
	}
	if op.WinningTip != (op.Confidence > 0.95) {
		t.Errorf("winning tip flag inconsistent with confidence %f", op.Confidence)
	}
}

func TestEvaluateNoDiscrepancy(t *testing.T) {
	quotes := []canonical.OddsQuote{
		quote("bet365", "home", 1.90),
		quote("bet365", "away", 1.90),
	}
	result := Evaluate("theoddsapi-ev1", canonical.MarketH2H, quotes, Config{})
	if result.Profitable {
		t.Fatal("1.90/1.90 has a bookmaker margin, not an arbitrage")
	}
	if result.Opportunity != nil {
		t.Error("no opportunity expected")
	}
}

func TestEvaluateBreakEvenNotProfitable(t *testing.T) {
	quotes := []canonical.OddsQuote{
		quote("bet365", "home", 2.0),
		quote("pinnacle", "away", 2.0),
	}
	result := Evaluate("theoddsapi-ev1", canonical.MarketH2H, quotes, Config{})
	if result.Profitable {
		t.Error("exact break-even must not be flagged profitable")
	}
}

func TestEvaluateTooFewOutcomes(t *testing.T) {
	quotes := []canonical.OddsQuote{
		quote("bet365", "home", 5.0),
	}
	result := Evaluate("theoddsapi-ev1", canonical.MarketH2H, quotes, Config{})
	if result.Profitable {
		t.Error("a single outcome can never be an arbitrage set")
	}
}

func TestEvaluateThreeWay(t *testing.T) {
	quotes := []canonical.OddsQuote{
		quote("bet365", "home", 3.0),
		quote("pinnacle", "draw", 3.6),
		quote("unibet", "away", 4.5),
	}
	result := Evaluate("theoddsapi-ev1", canonical.MarketH2H, quotes, Config{NominalStake: 100})
	if !result.Profitable {
		t.Fatalf("expected profitable three-way, got %q", result.Reason)
	}
	if len(result.Opportunity.Legs) != 3 {
		t.Errorf("got %d legs, want 3", len(result.Opportunity.Legs))
	}
	if math.Abs(result.Opportunity.ProfitMargin-(-16.666666)) > 0.001 {
		t.Errorf("margin = %f, want -16.67", result.Opportunity.ProfitMargin)
	}
}
