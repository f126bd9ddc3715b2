package sqlite

import (
	"context"

	"github.com/dmehra/oddsradar/internal/canonical"
)

// AppendBankrollEntry records one bankroll observation. External
// collaborators write these; the alert engine only reads.
func (s *Store) AppendBankrollEntry(ctx context.Context, e canonical.BankrollEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bankroll_entries (user_id, balance, recorded_at) VALUES (?,?,?);`,
		e.UserID, e.Balance, formatTime(e.RecordedAt))
	return err
}

// BankrollHistory returns a user's bankroll entries oldest first.
func (s *Store) BankrollHistory(ctx context.Context, userID string) ([]canonical.BankrollEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, balance, recorded_at FROM bankroll_entries
WHERE user_id = ? ORDER BY recorded_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []canonical.BankrollEntry
	for rows.Next() {
		var e canonical.BankrollEntry
		var recorded string
		if err := rows.Scan(&e.UserID, &e.Balance, &recorded); err != nil {
			return nil, err
		}
		e.RecordedAt = parseTime(recorded)
		out = append(out, e)
	}
	return out, rows.Err()
}

// BankrollUsers lists users with any recorded bankroll history.
func (s *Store) BankrollUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM bankroll_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
