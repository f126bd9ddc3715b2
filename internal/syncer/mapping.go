package syncer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
	"github.com/dmehra/oddsradar/internal/oddsmath"
	"github.com/dmehra/oddsradar/internal/providers"
)

type entitySet struct {
	sport  canonical.Sport
	league canonical.League
	home   canonical.Team
	away   canonical.Team
}

// mapOddsEvent normalizes one provider odds payload into canonical rows.
// Event ids are provider-qualified so overlapping sync cycles converge on
// the same row.
func mapOddsEvent(sportKey string, raw providers.RawOddsEvent) (canonical.Event, entitySet, error) {
	if raw.HomeTeam == "" || raw.AwayTeam == "" {
		return canonical.Event{}, entitySet{}, errors.New("missing team names")
	}
	if strings.EqualFold(raw.HomeTeam, raw.AwayTeam) {
		return canonical.Event{}, entitySet{}, fmt.Errorf("home equals away: %q", raw.HomeTeam)
	}

	key := raw.SportKey
	if key == "" {
		key = sportKey
	}
	ent := buildEntitySet(key, raw.SportTitle, raw.HomeTeam, raw.AwayTeam, "", 0)

	ev := canonical.Event{
		ID:         eventID(raw.Provider, raw.ID),
		SportKey:   ent.sport.Key,
		LeagueID:   ent.league.ID,
		HomeTeamID: ent.home.ID,
		AwayTeamID: ent.away.ID,
		HomeTeam:   raw.HomeTeam,
		AwayTeam:   raw.AwayTeam,
		StartTime:  raw.CommenceTime.UTC(),
		Status:     statusForStart(raw.CommenceTime),
		Venue:      raw.Venue,
	}
	return ev, ent, nil
}

func mapFixture(sportKey string, raw providers.RawFixture) (canonical.Event, entitySet, error) {
	if raw.HomeTeam == "" || raw.AwayTeam == "" {
		return canonical.Event{}, entitySet{}, errors.New("missing team names")
	}
	if strings.EqualFold(raw.HomeTeam, raw.AwayTeam) {
		return canonical.Event{}, entitySet{}, fmt.Errorf("home equals away: %q", raw.HomeTeam)
	}

	key := raw.SportKey
	if key == "" {
		key = sportKey
	}
	ent := buildEntitySet(key, "", raw.HomeTeam, raw.AwayTeam, raw.LeagueCountry, raw.LeagueTier)
	if raw.League != "" {
		ent.league.Name = raw.League
	}

	ev := canonical.Event{
		ID:         eventID(raw.Provider, raw.ID),
		SportKey:   ent.sport.Key,
		LeagueID:   ent.league.ID,
		HomeTeamID: ent.home.ID,
		AwayTeamID: ent.away.ID,
		HomeTeam:   raw.HomeTeam,
		AwayTeam:   raw.AwayTeam,
		StartTime:  raw.StartTime.UTC(),
		Status:     mapFixtureStatus(raw.Status, raw.StartTime),
		Venue:      raw.Venue,
	}
	return ev, ent, nil
}

func buildEntitySet(providerSportKey, sportTitle, homeTeam, awayTeam, country string, tier int) entitySet {
	baseKey := canonical.BaseSportKey(providerSportKey)
	leagueID := canonical.LeagueID(providerSportKey)

	display := sportTitle
	if display == "" {
		display = canonical.SportDisplayName(baseKey)
	}

	leagueName := leagueID
	if i := strings.Index(providerSportKey, "_"); i >= 0 && i+1 < len(providerSportKey) {
		leagueName = strings.ToUpper(providerSportKey[i+1:])
	}

	return entitySet{
		sport:  canonical.Sport{Key: baseKey, DisplayName: display},
		league: canonical.League{ID: leagueID, SportKey: baseKey, Name: leagueName, Country: country, Tier: tier},
		home:   canonical.Team{ID: canonical.TeamID(leagueID, homeTeam), LeagueID: leagueID, Name: homeTeam},
		away:   canonical.Team{ID: canonical.TeamID(leagueID, awayTeam), LeagueID: leagueID, Name: awayTeam},
	}
}

func eventID(provider providers.Name, rawID string) string {
	return string(provider) + "-" + rawID
}

func statusForStart(start time.Time) canonical.EventStatus {
	if start.Before(time.Now().UTC()) {
		return canonical.StatusLive
	}
	return canonical.StatusUpcoming
}

func mapFixtureStatus(status string, start time.Time) canonical.EventStatus {
	switch strings.ToLower(status) {
	case "live", "inplay", "in_play", "1h", "2h", "ht":
		return canonical.StatusLive
	case "finished", "ft", "aet", "pen", "ended":
		return canonical.StatusFinished
	case "", "ns", "scheduled", "upcoming", "tbd":
		return statusForStart(start)
	default:
		return statusForStart(start)
	}
}

// mapQuotes flattens an event's bookmaker prices into immutable quote rows.
// Outcome names are normalized to home/away/draw where they match the team
// names; anything else keeps a slug of the reported name.
func mapQuotes(eventID string, raw providers.RawOddsEvent) []canonical.OddsQuote {
	var quotes []canonical.OddsQuote
	for _, bookmaker := range raw.Bookmakers {
		observed := bookmaker.LastUpdate
		if observed.IsZero() {
			observed = time.Now().UTC()
		}
		for _, market := range bookmaker.Markets {
			for _, outcome := range market.Outcomes {
				if !oddsmath.ValidOdds(outcome.Price) {
					continue
				}
				quotes = append(quotes, canonical.OddsQuote{
					EventID:      eventID,
					BookmakerKey: bookmaker.Key,
					MarketKey:    market.Key,
					OutcomeKey:   outcomeKey(outcome.Name, raw.HomeTeam, raw.AwayTeam),
					Odds:         outcome.Price,
					ObservedAt:   observed.UTC(),
					Source:       string(raw.Provider),
					Confidence:   raw.Confidence,
				})
			}
		}
	}
	return quotes
}

func outcomeKey(name, homeTeam, awayTeam string) string {
	switch {
	case strings.EqualFold(name, homeTeam), strings.EqualFold(name, "home"), name == "1":
		return "home"
	case strings.EqualFold(name, awayTeam), strings.EqualFold(name, "away"), name == "2":
		return "away"
	case strings.EqualFold(name, "draw"), strings.EqualFold(name, "tie"), name == "X":
		return "draw"
	default:
		return canonical.Slug(name)
	}
}
