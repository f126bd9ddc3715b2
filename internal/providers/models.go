package providers

import (
	"context"
	"time"
)

// Name identifies the upstream source an entry was fetched from.
type Name string

const (
	NameTheOddsAPI Name = "theoddsapi"
	NameSportmonk  Name = "sportmonk"
	NameFixturely  Name = "fixturely"
	NameMetasport  Name = "metasport"
)

// OddsProvider is implemented by source-specific odds clients.
// Each client is responsible for fetching its wire format and normalizing it
// into RawOddsEvent values tagged with its Name.
type OddsProvider interface {
	Name() Name
	FetchOdds(ctx context.Context, sportKey string) ([]RawOddsEvent, error)
}

// FixtureParams narrow a fixture fetch.
type FixtureParams struct {
	DateFrom time.Time
	DateTo   time.Time
	League   string
}

// FixtureProvider is implemented by source-specific fixture clients.
type FixtureProvider interface {
	Name() Name
	FetchFixtures(ctx context.Context, sport string, params FixtureParams) ([]RawFixture, error)
}

// RawOddsEvent is a provider-tagged odds payload for one scheduled match.
// Mapping to canonical entities happens downstream; clients only reshape
// their own wire format into this variant.
type RawOddsEvent struct {
	Provider     Name           `json:"provider"`
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	SportTitle   string         `json:"sport_title"`
	CommenceTime time.Time      `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Venue        string         `json:"venue,omitempty"`
	Bookmakers   []RawBookmaker `json:"bookmakers"`
	Confidence   float64        `json:"confidence"` // ingesting provider's 0-1 quality weight
	Raw          map[string]any `json:"raw,omitempty"`
}

// RawBookmaker holds one bookmaker's quoted markets within an event.
type RawBookmaker struct {
	Key        string      `json:"key"`
	Title      string      `json:"title"`
	LastUpdate time.Time   `json:"last_update"`
	Markets    []RawMarket `json:"markets"`
}

// RawMarket is a quoted market (h2h, totals, ...) with its outcome prices.
type RawMarket struct {
	Key      string       `json:"key"`
	Outcomes []RawOutcome `json:"outcomes"`
}

// RawOutcome is a single priced outcome. Name is stored as reported by the
// provider; it is not guaranteed to be home/away/draw (tennis reports
// contestant names).
type RawOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"` // decimal odds
	Point float64 `json:"point,omitempty"`
}

// RawFixture is a provider-tagged scheduled match without pricing.
type RawFixture struct {
	Provider      Name      `json:"provider"`
	ID            string    `json:"id"`
	SportKey      string    `json:"sport_key"`
	League        string    `json:"league"`
	LeagueCountry string    `json:"league_country,omitempty"`
	LeagueTier    int       `json:"league_tier,omitempty"`
	HomeTeam      string    `json:"home_team"`
	AwayTeam      string    `json:"away_team"`
	StartTime     time.Time `json:"start_time"`
	Status        string    `json:"status,omitempty"`
	Venue         string    `json:"venue,omitempty"`
}

// RawBookmakerMeta is static bookmaker reference data from the metadata provider.
type RawBookmakerMeta struct {
	Key              string   `json:"key"`
	Brand            string   `json:"brand"`
	Regions          []string `json:"regions"`
	Jurisdictions    []string `json:"jurisdictions"`
	DeepLinkTemplate string   `json:"deep_link_template"`
}
