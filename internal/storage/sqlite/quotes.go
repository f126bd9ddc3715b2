package sqlite

import (
	"context"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
)

const insertQuoteSQL = `
INSERT INTO odds_quotes (event_id, bookmaker_key, market_key, outcome_key, odds, observed_at, source, confidence)
VALUES (?,?,?,?,?,?,?,?);
`

// InsertQuotes appends odds observations. Quotes are immutable facts; every
// sighting is a new row.
func (s *Store) InsertQuotes(ctx context.Context, quotes []canonical.OddsQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertQuoteSQL)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx,
			q.EventID, q.BookmakerKey, q.MarketKey, q.OutcomeKey,
			q.Odds, formatTime(q.ObservedAt), q.Source, q.Confidence); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// RecentQuotes returns all observations since the cutoff, newest first.
// Callers group by event/outcome themselves.
func (s *Store) RecentQuotes(ctx context.Context, since time.Time) ([]canonical.OddsQuote, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, event_id, bookmaker_key, market_key, outcome_key, odds, observed_at, source, confidence
FROM odds_quotes
WHERE observed_at >= ?
ORDER BY observed_at DESC`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []canonical.OddsQuote
	for rows.Next() {
		var q canonical.OddsQuote
		var observed string
		if err := rows.Scan(&q.ID, &q.EventID, &q.BookmakerKey, &q.MarketKey,
			&q.OutcomeKey, &q.Odds, &observed, &q.Source, &q.Confidence); err != nil {
			return nil, err
		}
		q.ObservedAt = parseTime(observed)
		out = append(out, q)
	}
	return out, rows.Err()
}

// RecentQuotesForEvent narrows RecentQuotes to one event and market.
func (s *Store) RecentQuotesForEvent(ctx context.Context, eventID, marketKey string, since time.Time) ([]canonical.OddsQuote, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, event_id, bookmaker_key, market_key, outcome_key, odds, observed_at, source, confidence
FROM odds_quotes
WHERE event_id = ? AND market_key = ? AND observed_at >= ?
ORDER BY observed_at DESC`, eventID, marketKey, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []canonical.OddsQuote
	for rows.Next() {
		var q canonical.OddsQuote
		var observed string
		if err := rows.Scan(&q.ID, &q.EventID, &q.BookmakerKey, &q.MarketKey,
			&q.OutcomeKey, &q.Odds, &observed, &q.Source, &q.Confidence); err != nil {
			return nil, err
		}
		q.ObservedAt = parseTime(observed)
		out = append(out, q)
	}
	return out, rows.Err()
}
