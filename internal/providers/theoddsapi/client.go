package theoddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmehra/oddsradar/internal/providers"
)

const (
	defaultBaseURL = "https://api.the-odds-api.com/v4"

	// Quotes from the aggregator API are first-hand bookmaker prices.
	sourceConfidence = 0.9
)

// Client talks to The Odds API, the primary odds and fixture source.
type Client struct {
	baseURL    string
	apiKey     string
	regions    string
	httpClient *http.Client
}

// Config provides optional overrides.
type Config struct {
	BaseURL string
	APIKey  string
	Regions string // comma-separated, e.g. "eu,uk"
	Timeout time.Duration
}

// NewClient builds a configured Odds API client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	regions := cfg.Regions
	if regions == "" {
		regions = "eu,uk,us"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		regions: regions,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Name() providers.Name {
	return providers.NameTheOddsAPI
}

type wireOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Point float64 `json:"point"`
}

type wireMarket struct {
	Key      string        `json:"key"`
	Outcomes []wireOutcome `json:"outcomes"`
}

type wireBookmaker struct {
	Key        string       `json:"key"`
	Title      string       `json:"title"`
	LastUpdate time.Time    `json:"last_update"`
	Markets    []wireMarket `json:"markets"`
}

type wireEvent struct {
	ID           string          `json:"id"`
	SportKey     string          `json:"sport_key"`
	SportTitle   string          `json:"sport_title"`
	CommenceTime time.Time       `json:"commence_time"`
	HomeTeam     string          `json:"home_team"`
	AwayTeam     string          `json:"away_team"`
	Bookmakers   []wireBookmaker `json:"bookmakers"`
}

// FetchOdds retrieves head-to-head prices for one sport key.
func (c *Client) FetchOdds(ctx context.Context, sportKey string) ([]providers.RawOddsEvent, error) {
	endpoint := fmt.Sprintf("%s/sports/%s/odds", c.baseURL, url.PathEscape(sportKey))
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("regions", c.regions)
	q.Set("markets", "h2h")
	q.Set("oddsFormat", "decimal")

	var events []wireEvent
	if err := c.getJSON(ctx, endpoint+"?"+q.Encode(), &events); err != nil {
		return nil, fmt.Errorf("theoddsapi odds %s: %w", sportKey, err)
	}

	out := make([]providers.RawOddsEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, normalizeEvent(ev))
	}
	return out, nil
}

// FetchFixtures retrieves the event schedule for one sport key without prices.
func (c *Client) FetchFixtures(ctx context.Context, sport string, params providers.FixtureParams) ([]providers.RawFixture, error) {
	endpoint := fmt.Sprintf("%s/sports/%s/events", c.baseURL, url.PathEscape(sport))
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	if !params.DateFrom.IsZero() {
		q.Set("commenceTimeFrom", params.DateFrom.UTC().Format(time.RFC3339))
	}
	if !params.DateTo.IsZero() {
		q.Set("commenceTimeTo", params.DateTo.UTC().Format(time.RFC3339))
	}

	var events []wireEvent
	if err := c.getJSON(ctx, endpoint+"?"+q.Encode(), &events); err != nil {
		return nil, fmt.Errorf("theoddsapi fixtures %s: %w", sport, err)
	}

	out := make([]providers.RawFixture, 0, len(events))
	for _, ev := range events {
		out = append(out, providers.RawFixture{
			Provider:  providers.NameTheOddsAPI,
			ID:        ev.ID,
			SportKey:  ev.SportKey,
			League:    ev.SportTitle,
			HomeTeam:  ev.HomeTeam,
			AwayTeam:  ev.AwayTeam,
			StartTime: ev.CommenceTime,
		})
	}
	return out, nil
}

func normalizeEvent(ev wireEvent) providers.RawOddsEvent {
	raw := providers.RawOddsEvent{
		Provider:     providers.NameTheOddsAPI,
		ID:           ev.ID,
		SportKey:     ev.SportKey,
		SportTitle:   ev.SportTitle,
		CommenceTime: ev.CommenceTime,
		HomeTeam:     ev.HomeTeam,
		AwayTeam:     ev.AwayTeam,
		Confidence:   sourceConfidence,
	}
	for _, bk := range ev.Bookmakers {
		rb := providers.RawBookmaker{
			Key:        bk.Key,
			Title:      bk.Title,
			LastUpdate: bk.LastUpdate,
		}
		for _, m := range bk.Markets {
			rm := providers.RawMarket{Key: m.Key}
			for _, o := range m.Outcomes {
				rm.Outcomes = append(rm.Outcomes, providers.RawOutcome{
					Name:  o.Name,
					Price: o.Price,
					Point: o.Point,
				})
			}
			rb.Markets = append(rb.Markets, rm)
		}
		raw.Bookmakers = append(raw.Bookmakers, rb)
	}
	return raw
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
