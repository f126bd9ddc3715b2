package snapshot

import "time"

// Source tags where a snapshot's odds came from.
const (
	SourcePrimary  = "primary-provider"
	SourceScraped  = "scraped"
	SourceFallback = "fallback"
)

// BookmakerOdds holds one bookmaker's prices for an event.
type BookmakerOdds struct {
	Bookmaker string  `json:"bookmaker"`
	Home      float64 `json:"home"`
	Away      float64 `json:"away"`
	Draw      float64 `json:"draw,omitempty"`
	Over      float64 `json:"over,omitempty"`
	Under     float64 `json:"under,omitempty"`
}

// Snapshot is the merged latest-known odds view of one event, the comparison
// baseline for alerting.
type Snapshot struct {
	EventID     string          `json:"eventId"`
	Sport       string          `json:"sport"`
	HomeTeam    string          `json:"homeTeam"`
	AwayTeam    string          `json:"awayTeam"`
	StartTime   time.Time       `json:"startTime"`
	Odds        []BookmakerOdds `json:"odds"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Source      string          `json:"source"`
}

// Document is the persisted snapshot file shape.
type Document struct {
	LastUpdated time.Time  `json:"lastUpdated"`
	TotalEvents int        `json:"totalEvents"`
	Odds        []Snapshot `json:"odds"`
}
