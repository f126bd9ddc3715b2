package alerts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmehra/oddsradar/internal/canonical"
)

// Rule conditions are stored as JSON on the AlertRule row; each type has its
// own shape.

// OddsThresholdCondition fires when an incoming quote crosses a threshold.
type OddsThresholdCondition struct {
	Threshold float64 `json:"threshold"`
	Direction string  `json:"direction"` // "above" or "below"
	SportKey  string  `json:"sport_key,omitempty"`
	Outcome   string  `json:"outcome,omitempty"`
}

// ArbitrageCondition fires on detections at or above a minimum profit margin
// (expressed as a positive percentage).
type ArbitrageCondition struct {
	MinProfitMargin float64 `json:"min_profit_margin"`
}

// FavoriteTeamCondition fires when a tracked team appears in a new event.
// Matching is by team id or case-insensitive name.
type FavoriteTeamCondition struct {
	TeamID   string `json:"team_id,omitempty"`
	TeamName string `json:"team_name,omitempty"`
}

// ParseCondition decodes a rule's JSON condition into its typed shape.
func ParseCondition(rule canonical.AlertRule) (any, error) {
	switch rule.Type {
	case canonical.RuleOddsThreshold:
		var c OddsThresholdCondition
		if err := json.Unmarshal([]byte(rule.Condition), &c); err != nil {
			return nil, fmt.Errorf("rule %d: %w", rule.ID, err)
		}
		if c.Direction != "above" && c.Direction != "below" {
			return nil, fmt.Errorf("rule %d: unknown direction %q", rule.ID, c.Direction)
		}
		return c, nil
	case canonical.RuleArbitrage:
		var c ArbitrageCondition
		if err := json.Unmarshal([]byte(rule.Condition), &c); err != nil {
			return nil, fmt.Errorf("rule %d: %w", rule.ID, err)
		}
		return c, nil
	case canonical.RuleFavoriteTeamEvent:
		var c FavoriteTeamCondition
		if err := json.Unmarshal([]byte(rule.Condition), &c); err != nil {
			return nil, fmt.Errorf("rule %d: %w", rule.ID, err)
		}
		if c.TeamID == "" && c.TeamName == "" {
			return nil, fmt.Errorf("rule %d: empty favorite-team condition", rule.ID)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("rule %d: unknown type %q", rule.ID, rule.Type)
	}
}

// MatchOddsThreshold tests a quote against a threshold condition.
func MatchOddsThreshold(c OddsThresholdCondition, sportKey string, quote canonical.OddsQuote) bool {
	if c.SportKey != "" && c.SportKey != sportKey {
		return false
	}
	if c.Outcome != "" && !strings.EqualFold(c.Outcome, quote.OutcomeKey) {
		return false
	}
	switch c.Direction {
	case "below":
		return quote.Odds < c.Threshold
	case "above":
		return quote.Odds > c.Threshold
	}
	return false
}

// MatchArbitrage tests a detection's profit margin (negative percentage)
// against the rule's minimum.
func MatchArbitrage(c ArbitrageCondition, op canonical.ArbitrageOpportunity) bool {
	return -op.ProfitMargin >= c.MinProfitMargin
}

// MatchFavoriteTeam tests an event's sides against a tracked team.
func MatchFavoriteTeam(c FavoriteTeamCondition, ev canonical.Event) bool {
	if c.TeamID != "" && (c.TeamID == ev.HomeTeamID || c.TeamID == ev.AwayTeamID) {
		return true
	}
	if c.TeamName != "" &&
		(strings.EqualFold(c.TeamName, ev.HomeTeam) || strings.EqualFold(c.TeamName, ev.AwayTeam)) {
		return true
	}
	return false
}
