package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/dmehra/oddsradar/internal/canonical"
)

// Upserts are keyed by stable natural ids so overlapping sync cycles
// converge on the same rows instead of conflicting.

const upsertSportSQL = `
INSERT INTO sports (key, display_name, icon) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET
	display_name=CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE sports.display_name END,
	icon=CASE WHEN excluded.icon != '' THEN excluded.icon ELSE sports.icon END;
`

func (s *Store) UpsertSport(ctx context.Context, sport canonical.Sport) error {
	_, err := s.db.ExecContext(ctx, upsertSportSQL, sport.Key, sport.DisplayName, sport.Icon)
	return err
}

const upsertLeagueSQL = `
INSERT INTO leagues (id, sport_key, name, country, tier) VALUES (?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
	sport_key=excluded.sport_key,
	name=CASE WHEN excluded.name != '' THEN excluded.name ELSE leagues.name END,
	country=CASE WHEN excluded.country != '' THEN excluded.country ELSE leagues.country END,
	tier=excluded.tier;
`

func (s *Store) UpsertLeague(ctx context.Context, league canonical.League) error {
	tier := league.Tier
	if tier <= 0 {
		tier = 1
	}
	_, err := s.db.ExecContext(ctx, upsertLeagueSQL, league.ID, league.SportKey, league.Name, league.Country, tier)
	return err
}

// Team ids are immutable; the display name may be corrected on resync.
const upsertTeamSQL = `
INSERT INTO teams (id, league_id, name, short_code, country) VALUES (?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	short_code=CASE WHEN excluded.short_code != '' THEN excluded.short_code ELSE teams.short_code END,
	country=CASE WHEN excluded.country != '' THEN excluded.country ELSE teams.country END;
`

func (s *Store) UpsertTeam(ctx context.Context, team canonical.Team) error {
	_, err := s.db.ExecContext(ctx, upsertTeamSQL, team.ID, team.LeagueID, team.Name, team.ShortCode, team.Country)
	return err
}

// Event status never regresses: the CASE keeps the stored status when the
// incoming one ranks lower in the upcoming -> live -> finished lifecycle.
const upsertEventSQL = `
INSERT INTO events (id, sport_key, league_id, home_team_id, away_team_id, home_team, away_team, start_time, status, venue)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
	start_time=excluded.start_time,
	venue=CASE WHEN excluded.venue != '' THEN excluded.venue ELSE events.venue END,
	status=CASE WHEN
		(CASE excluded.status WHEN 'live' THEN 1 WHEN 'finished' THEN 2 ELSE 0 END) >=
		(CASE events.status WHEN 'live' THEN 1 WHEN 'finished' THEN 2 ELSE 0 END)
	THEN excluded.status ELSE events.status END;
`

func (s *Store) UpsertEvent(ctx context.Context, ev canonical.Event) error {
	status := ev.Status
	if status == "" {
		status = canonical.StatusUpcoming
	}
	_, err := s.db.ExecContext(ctx, upsertEventSQL,
		ev.ID, ev.SportKey, ev.LeagueID, ev.HomeTeamID, ev.AwayTeamID,
		ev.HomeTeam, ev.AwayTeam, formatTime(ev.StartTime), string(status), ev.Venue)
	return err
}

// GetEvent returns (nil, nil) for an unknown id; callers use that to tell
// first sightings apart from lookup failures.
func (s *Store) GetEvent(ctx context.Context, id string) (*canonical.Event, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, sport_key, league_id, home_team_id, away_team_id, home_team, away_team, start_time, status, venue
FROM events WHERE id = ?`, id)
	var ev canonical.Event
	var startTime, status string
	if err := row.Scan(&ev.ID, &ev.SportKey, &ev.LeagueID, &ev.HomeTeamID, &ev.AwayTeamID,
		&ev.HomeTeam, &ev.AwayTeam, &startTime, &status, &ev.Venue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ev.StartTime = parseTime(startTime)
	ev.Status = canonical.EventStatus(status)
	return &ev, nil
}

const upsertBookmakerSQL = `
INSERT INTO bookmakers (key, brand, regions_json, jurisdictions_json, deep_link_template) VALUES (?,?,?,?,?)
ON CONFLICT(key) DO UPDATE SET
	brand=CASE WHEN excluded.brand != '' THEN excluded.brand ELSE bookmakers.brand END,
	regions_json=excluded.regions_json,
	jurisdictions_json=excluded.jurisdictions_json,
	deep_link_template=CASE WHEN excluded.deep_link_template != '' THEN excluded.deep_link_template ELSE bookmakers.deep_link_template END;
`

func (s *Store) UpsertBookmaker(ctx context.Context, b canonical.Bookmaker) error {
	regions, _ := json.Marshal(b.Regions)
	jurisdictions, _ := json.Marshal(b.Jurisdictions)
	_, err := s.db.ExecContext(ctx, upsertBookmakerSQL,
		b.Key, b.Brand, string(regions), string(jurisdictions), b.DeepLinkTemplate)
	return err
}

// ListBookmakers returns the static bookmaker reference data.
func (s *Store) ListBookmakers(ctx context.Context) ([]canonical.Bookmaker, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, brand, regions_json, jurisdictions_json, deep_link_template FROM bookmakers ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []canonical.Bookmaker
	for rows.Next() {
		var b canonical.Bookmaker
		var regions, jurisdictions string
		if err := rows.Scan(&b.Key, &b.Brand, &regions, &jurisdictions, &b.DeepLinkTemplate); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(regions), &b.Regions)
		_ = json.Unmarshal([]byte(jurisdictions), &b.Jurisdictions)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpsertMarket(ctx context.Context, m canonical.Market) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO markets (key, display_name) VALUES (?,?)
ON CONFLICT(key) DO UPDATE SET display_name=excluded.display_name;`,
		m.Key, m.DisplayName)
	return err
}
