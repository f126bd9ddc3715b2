package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
)

// InsertOpportunity records a detection. Opportunities are immutable; a new
// detection for the same event/market is a new row, keeping the audit trail.
func (s *Store) InsertOpportunity(ctx context.Context, op canonical.ArbitrageOpportunity) (int64, error) {
	legs, err := json.Marshal(op.Legs)
	if err != nil {
		return 0, err
	}
	winning := 0
	if op.WinningTip {
		winning = 1
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO arbitrage_opportunities (event_id, market_key, profit_margin, confidence, legs_json, detected_at, winning_tip)
VALUES (?,?,?,?,?,?,?);`,
		op.EventID, op.MarketKey, op.ProfitMargin, op.Confidence,
		string(legs), formatTime(op.DetectedAt), winning)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentOpportunities lists detections since the cutoff, newest first.
func (s *Store) RecentOpportunities(ctx context.Context, since time.Time) ([]canonical.ArbitrageOpportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, event_id, market_key, profit_margin, confidence, legs_json, detected_at, winning_tip
FROM arbitrage_opportunities
WHERE detected_at >= ?
ORDER BY detected_at DESC`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []canonical.ArbitrageOpportunity
	for rows.Next() {
		var op canonical.ArbitrageOpportunity
		var legs, detected string
		var winning int
		if err := rows.Scan(&op.ID, &op.EventID, &op.MarketKey, &op.ProfitMargin,
			&op.Confidence, &legs, &detected, &winning); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(legs), &op.Legs)
		op.DetectedAt = parseTime(detected)
		op.WinningTip = winning != 0
		out = append(out, op)
	}
	return out, rows.Err()
}
