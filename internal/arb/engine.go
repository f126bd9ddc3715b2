package arb

import (
	"sort"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
	"github.com/dmehra/oddsradar/internal/oddsmath"
)

type Config struct {
	NominalStake float64 // total stake split across legs, default 100
	MinOutcomes  int     // outcome sets smaller than this are skipped
}

const epsilon = 1e-9

// Result carries one detection outcome for an event/market.
type Result struct {
	Opportunity *canonical.ArbitrageOpportunity
	Profitable  bool
	Reason      string // set when no opportunity was produced
}

// BestQuotes picks the highest valid quote per outcome across bookmakers.
// The outcome set is taken as reported; two-way, three-way, and named
// outcome markets (tennis contestants) all work the same way.
func BestQuotes(quotes []canonical.OddsQuote) map[string]canonical.OddsQuote {
	best := make(map[string]canonical.OddsQuote)
	for _, q := range quotes {
		if !oddsmath.ValidOdds(q.Odds) {
			continue
		}
		if cur, ok := best[q.OutcomeKey]; !ok || q.Odds > cur.Odds {
			best[q.OutcomeKey] = q
		}
	}
	return best
}

// Evaluate runs one detection sweep over the recent quotes of a single
// event/market. Pure: persistence belongs to the caller.
func Evaluate(eventID, marketKey string, quotes []canonical.OddsQuote, cfg Config) Result {
	if cfg.NominalStake <= 0 {
		cfg.NominalStake = 100
	}
	if cfg.MinOutcomes <= 0 {
		cfg.MinOutcomes = 2
	}

	best := BestQuotes(quotes)
	if len(best) < cfg.MinOutcomes {
		return Result{Reason: "not enough priced outcomes"}
	}

	outcomes := make([]string, 0, len(best))
	for outcome := range best {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)

	odds := make([]float64, len(outcomes))
	for i, outcome := range outcomes {
		odds[i] = best[outcome].Odds
	}

	margin := oddsmath.ArbitragePercentage(odds)
	if margin >= -epsilon {
		return Result{Reason: "no pricing discrepancy"}
	}

	stakes := oddsmath.StakeAllocations(odds, cfg.NominalStake)
	if stakes == nil {
		return Result{Reason: "invalid odds in outcome set"}
	}

	legs := make([]canonical.OpportunityLeg, len(outcomes))
	for i, outcome := range outcomes {
		q := best[outcome]
		legs[i] = canonical.OpportunityLeg{
			BookmakerKey: q.BookmakerKey,
			OutcomeKey:   outcome,
			Odds:         q.Odds,
			Stake:        stakes[i],
		}
	}

	confidence := oddsmath.ConfidenceScore(deriveFactors(margin, quotes, best))
	op := &canonical.ArbitrageOpportunity{
		EventID:      eventID,
		MarketKey:    marketKey,
		ProfitMargin: margin,
		Confidence:   confidence,
		Legs:         legs,
		DetectedAt:   time.Now().UTC(),
		WinningTip:   oddsmath.IsWinningTip(confidence),
	}
	return Result{Opportunity: op, Profitable: true}
}

// deriveFactors maps observed quote quality onto the scoring inputs. Each
// heuristic lands in [0,1]; ConfidenceScore clamps regardless.
func deriveFactors(margin float64, all []canonical.OddsQuote, best map[string]canonical.OddsQuote) oddsmath.ConfidenceFactors {
	// A -10% margin saturates the profit factor.
	profit := oddsmath.Clamp01(-margin / 10.0)

	trust := 0.0
	for _, q := range best {
		trust += oddsmath.Clamp01(q.Confidence)
	}
	trust /= float64(len(best))

	// More independent books quoting the market means deeper liquidity.
	books := make(map[string]struct{})
	for _, q := range all {
		books[q.BookmakerKey] = struct{}{}
	}
	liquidity := oddsmath.Clamp01(float64(len(books)) / 10.0)

	// Repeated observations of the same line indicate a stable price.
	stability := oddsmath.Clamp01(float64(len(all)) / float64(3*len(best)))

	return oddsmath.ConfidenceFactors{
		ProfitMargin:    profit,
		BookmakerTrust:  trust,
		OddsStability:   stability,
		MarketLiquidity: liquidity,
		BaseConfidence:  trust,
	}
}
