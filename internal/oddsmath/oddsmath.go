package oddsmath

import "math"

// ImpliedProbability converts decimal odds to the bookmaker's encoded
// probability estimate, before margin removal.
// Decimal 2.00 -> 0.50 (50%)
func ImpliedProbability(decimal float64) float64 {
	if decimal <= 0 {
		return 0
	}
	return 1.0 / decimal
}

// ArbitragePercentage computes (sum(1/odds_i) - 1) * 100 over one outcome set.
//
// Negative means the combination is profitable: backing every outcome
// proportionally guarantees a net gain. Zero is break-even; positive means
// the bookmaker margin exceeds parity. Holds for any N >= 1 outcomes,
// including the degenerate single-outcome case.
//
// Inputs must be pre-filtered: odds <= 1.0 or NaN are computation errors and
// belong to ValidOdds, not here.
func ArbitragePercentage(decimalOdds []float64) float64 {
	total := 0.0
	for _, o := range decimalOdds {
		total += ImpliedProbability(o)
	}
	return (total - 1.0) * 100.0
}

// ValidOdds reports whether a decimal price can participate in arbitrage
// math. Anything <= 1.0, NaN, or infinite would silently corrupt the
// percentage and must be filtered out before computing.
func ValidOdds(decimal float64) bool {
	return decimal > 1.0 && !math.IsNaN(decimal) && !math.IsInf(decimal, 0)
}

// StakeAllocations splits a nominal total stake across legs proportional to
// 1/(odds_i * sum(1/odds_j)) so that the payout is equal regardless of
// outcome. Returns nil if any leg is invalid.
func StakeAllocations(decimalOdds []float64, totalStake float64) []float64 {
	if len(decimalOdds) == 0 || totalStake <= 0 {
		return nil
	}
	sum := 0.0
	for _, o := range decimalOdds {
		if !ValidOdds(o) {
			return nil
		}
		sum += 1.0 / o
	}
	stakes := make([]float64, len(decimalOdds))
	for i, o := range decimalOdds {
		stakes[i] = totalStake / (o * sum)
	}
	return stakes
}

// ConfidenceFactors are quality inputs for scoring an opportunity, each
// expected in [0,1]. The score clamps both inputs and output, so garbage in
// still yields a bounded score.
type ConfidenceFactors struct {
	ProfitMargin    float64
	BookmakerTrust  float64
	OddsStability   float64
	MarketLiquidity float64
	BaseConfidence  float64
}

const (
	weightProfitMargin    = 0.35
	weightBookmakerTrust  = 0.20
	weightOddsStability   = 0.20
	weightMarketLiquidity = 0.15
	weightBaseConfidence  = 0.10

	// WinningTipThreshold classifies an opportunity as a premium "winning tip".
	WinningTipThreshold = 0.95
)

// ConfidenceScore computes the weighted quality score of an opportunity,
// clamped to [0,1]. Monotonic non-decreasing in each factor.
func ConfidenceScore(f ConfidenceFactors) float64 {
	score := Clamp01(f.ProfitMargin)*weightProfitMargin +
		Clamp01(f.BookmakerTrust)*weightBookmakerTrust +
		Clamp01(f.OddsStability)*weightOddsStability +
		Clamp01(f.MarketLiquidity)*weightMarketLiquidity +
		Clamp01(f.BaseConfidence)*weightBaseConfidence
	return Clamp01(score)
}

// IsWinningTip reports whether a confidence score crosses the premium gate.
func IsWinningTip(confidence float64) bool {
	return confidence > WinningTipThreshold
}

// Clamp01 bounds v to [0,1]. NaN clamps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
