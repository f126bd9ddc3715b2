package canonical

import "time"

// EventStatus tracks the lifecycle of a scheduled match.
// Transitions are one-way: upcoming -> live -> finished.
type EventStatus string

const (
	StatusUpcoming EventStatus = "upcoming"
	StatusLive     EventStatus = "live"
	StatusFinished EventStatus = "finished"
)

// Rank returns the ordinal position of a status in the lifecycle, used to
// reject regressions on upsert.
func (s EventStatus) Rank() int {
	switch s {
	case StatusLive:
		return 1
	case StatusFinished:
		return 2
	default:
		return 0
	}
}

// Sport is created on first sighting from any provider and never deleted.
type Sport struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon,omitempty"`
}

type League struct {
	ID       string `json:"id"`
	SportKey string `json:"sport_key"`
	Name     string `json:"name"`
	Country  string `json:"country,omitempty"`
	Tier     int    `json:"tier"` // lower = higher level
}

// Team id is derived as {leagueKey}-{slug(name)}; immutable once created,
// the display name may be corrected on resync.
type Team struct {
	ID        string `json:"id"`
	LeagueID  string `json:"league_id"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code,omitempty"`
	Country   string `json:"country,omitempty"`
}

type Event struct {
	ID         string      `json:"id"`
	SportKey   string      `json:"sport_key"`
	LeagueID   string      `json:"league_id"`
	HomeTeamID string      `json:"home_team_id"`
	AwayTeamID string      `json:"away_team_id"`
	HomeTeam   string      `json:"home_team"`
	AwayTeam   string      `json:"away_team"`
	StartTime  time.Time   `json:"start_time"`
	Status     EventStatus `json:"status"`
	Venue      string      `json:"venue,omitempty"`
}

// Bookmaker is static reference data, rarely mutated.
type Bookmaker struct {
	Key              string   `json:"key"`
	Brand            string   `json:"brand"`
	Regions          []string `json:"regions,omitempty"`
	Jurisdictions    []string `json:"jurisdictions,omitempty"`
	DeepLinkTemplate string   `json:"deep_link_template,omitempty"`
}

type Market struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
}

const MarketH2H = "h2h"

// OddsQuote is an immutable observation. Every sighting is a new row; quotes
// are never updated in place, which keeps the line-movement history intact.
type OddsQuote struct {
	ID           int64     `json:"id,omitempty"`
	EventID      string    `json:"event_id"`
	BookmakerKey string    `json:"bookmaker_key"`
	MarketKey    string    `json:"market_key"`
	OutcomeKey   string    `json:"outcome_key"`
	Odds         float64   `json:"odds"` // decimal, > 1.0
	ObservedAt   time.Time `json:"observed_at"`
	Source       string    `json:"source"`
	Confidence   float64   `json:"confidence"` // 0-1 weight from the ingesting provider
}

// OpportunityLeg is one bookmaker/outcome stake within an arbitrage set.
type OpportunityLeg struct {
	BookmakerKey string  `json:"bookmaker_key"`
	OutcomeKey   string  `json:"outcome_key"`
	Odds         float64 `json:"odds"`
	Stake        float64 `json:"stake"`
}

// ArbitrageOpportunity is immutable once created; a new detection creates a
// new row, preserving the audit trail of when opportunities existed.
type ArbitrageOpportunity struct {
	ID           int64            `json:"id,omitempty"`
	EventID      string           `json:"event_id"`
	MarketKey    string           `json:"market_key"`
	ProfitMargin float64          `json:"profit_margin"` // %, negative = no arbitrage
	Confidence   float64          `json:"confidence"`    // 0-1
	Legs         []OpportunityLeg `json:"legs"`
	DetectedAt   time.Time        `json:"detected_at"`
	WinningTip   bool             `json:"winning_tip"` // confidence > 0.95
}

// AlertRuleType enumerates the user-definable rule kinds.
type AlertRuleType string

const (
	RuleOddsThreshold     AlertRuleType = "odds_threshold"
	RuleArbitrage         AlertRuleType = "arbitrage_opportunity"
	RuleFavoriteTeamEvent AlertRuleType = "favorite_team_event"
)

// AlertRule is user-owned; the engine mutates only trigger bookkeeping.
type AlertRule struct {
	ID              int64         `json:"id"`
	UserID          string        `json:"user_id"`
	Type            AlertRuleType `json:"type"`
	Condition       string        `json:"condition"` // JSON, type-specific
	Active          bool          `json:"active"`
	TriggeredCount  int64         `json:"triggered_count"`
	LastTriggeredAt *time.Time    `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Notification is the in-app record created when an alert fires.
type Notification struct {
	ID        int64     `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	EventID   string    `json:"event_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BankrollEntry is one observation of a user's bankroll over time, appended
// by external collaborators and read by the alert engine.
type BankrollEntry struct {
	UserID     string    `json:"user_id"`
	Balance    float64   `json:"balance"`
	RecordedAt time.Time `json:"recorded_at"`
}
