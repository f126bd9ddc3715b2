package fixturely

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmehra/oddsradar/internal/providers"
)

const defaultBaseURL = "https://api.fixturely.io/v2"

// Client talks to the Fixturely schedule API, the secondary fixture source.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Name() providers.Name {
	return providers.NameFixturely
}

type wireFixture struct {
	ID      string    `json:"id"`
	Sport   string    `json:"sport"`
	League  string    `json:"league"`
	Country string    `json:"country"`
	Tier    int       `json:"tier"`
	Home    string    `json:"home"`
	Away    string    `json:"away"`
	Kickoff time.Time `json:"kickoff"`
	Status  string    `json:"status"`
	Venue   string    `json:"venue"`
}

type wireResponse struct {
	Fixtures []wireFixture `json:"fixtures"`
}

// FetchFixtures retrieves scheduled matches for one sport.
func (c *Client) FetchFixtures(ctx context.Context, sport string, params providers.FixtureParams) ([]providers.RawFixture, error) {
	q := url.Values{}
	q.Set("sport", sport)
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	if params.League != "" {
		q.Set("league", params.League)
	}
	if !params.DateFrom.IsZero() {
		q.Set("from", params.DateFrom.UTC().Format("2006-01-02"))
	}
	if !params.DateTo.IsZero() {
		q.Set("to", params.DateTo.UTC().Format("2006-01-02"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/fixtures?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("fixturely build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fixturely fetch %s: %w", sport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fixturely status %d", resp.StatusCode)
	}

	var payload wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fixturely decode: %w", err)
	}

	out := make([]providers.RawFixture, 0, len(payload.Fixtures))
	for _, f := range payload.Fixtures {
		out = append(out, providers.RawFixture{
			Provider:      providers.NameFixturely,
			ID:            f.ID,
			SportKey:      f.Sport,
			League:        f.League,
			LeagueCountry: f.Country,
			LeagueTier:    f.Tier,
			HomeTeam:      f.Home,
			AwayTeam:      f.Away,
			StartTime:     f.Kickoff,
			Status:        f.Status,
			Venue:         f.Venue,
		})
	}
	return out, nil
}
