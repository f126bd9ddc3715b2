package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
)

// CreateRule inserts a user-owned alert rule and returns its id.
func (s *Store) CreateRule(ctx context.Context, rule canonical.AlertRule) (int64, error) {
	created := rule.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO alert_rules (user_id, type, condition_json, active, created_at)
VALUES (?,?,?,?,?);`,
		rule.UserID, string(rule.Type), rule.Condition, boolToInt(rule.Active), formatTime(created))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateRule rewrites the condition of a rule, scoped to the owning user.
func (s *Store) UpdateRule(ctx context.Context, id int64, userID, condition string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alert_rules SET condition_json = ? WHERE id = ? AND user_id = ?`,
		condition, id, userID)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// ToggleRule flips the active flag, scoped to the owning user.
func (s *Store) ToggleRule(ctx context.Context, id int64, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alert_rules SET active = 1 - active WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// DeleteRule removes a rule, scoped to the owning user.
func (s *Store) DeleteRule(ctx context.Context, id int64, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM alert_rules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// ActiveRules lists active rules of one type across all users.
func (s *Store) ActiveRules(ctx context.Context, ruleType canonical.AlertRuleType) ([]canonical.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, type, condition_json, active, triggered_count, last_triggered_at, created_at
FROM alert_rules WHERE type = ? AND active = 1`, string(ruleType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// RulesForUser lists all rules owned by one user.
func (s *Store) RulesForUser(ctx context.Context, userID string) ([]canonical.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, type, condition_json, active, triggered_count, last_triggered_at, created_at
FROM alert_rules WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]canonical.AlertRule, error) {
	var out []canonical.AlertRule
	for rows.Next() {
		var r canonical.AlertRule
		var rtype, created string
		var active int
		var last sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &rtype, &r.Condition, &active,
			&r.TriggeredCount, &last, &created); err != nil {
			return nil, err
		}
		r.Type = canonical.AlertRuleType(rtype)
		r.Active = active != 0
		r.CreatedAt = parseTime(created)
		if last.Valid && last.String != "" {
			t := parseTime(last.String)
			r.LastTriggeredAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BumpRuleTrigger increments trigger bookkeeping after a rule fires.
func (s *Store) BumpRuleTrigger(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE alert_rules SET triggered_count = triggered_count + 1, last_triggered_at = ?
WHERE id = ?`, formatTime(at), id)
	return err
}

// InsertNotification records an in-app notification.
func (s *Store) InsertNotification(ctx context.Context, n canonical.Notification) (int64, error) {
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO notifications (user_id, kind, severity, title, body, event_id, created_at)
VALUES (?,?,?,?,?,?,?);`,
		n.UserID, n.Kind, n.Severity, n.Title, n.Body, n.EventID, formatTime(created))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("rule %d not found", id)
	}
	return nil
}
