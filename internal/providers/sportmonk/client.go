package sportmonk

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
	defaultBaseURL = "https://api.sportmonk.dev/v1"

	// Scraped quotes lag the books; they carry a lower ingest weight.
	sourceConfidence = 0.65
)

// Client reads the Sportmonk scraping actor's dataset API, the secondary
// odds source used when the primary comes back empty or fails.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 25 * time.Second
	}
	return &Client{
		baseURL: base,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Name() providers.Name {
	return providers.NameSportmonk
}

// The actor flattens events into one item per bookmaker quote set.
type wireItem struct {
	MatchID   string             `json:"match_id"`
	Sport     string             `json:"sport"`
	League    string             `json:"league"`
	HomeTeam  string             `json:"home_team"`
	AwayTeam  string             `json:"away_team"`
	KickoffAt time.Time          `json:"kickoff_at"`
	Bookmaker string             `json:"bookmaker"`
	ScrapedAt time.Time          `json:"scraped_at"`
	Odds      map[string]float64 `json:"odds"` // outcome label -> decimal price
}

type wireResponse struct {
	Items []wireItem `json:"items"`
}

// FetchOdds pulls the latest scraped dataset for one sport key and regroups
// the per-bookmaker rows into events.
func (c *Client) FetchOdds(ctx context.Context, sportKey string) ([]providers.RawOddsEvent, error) {
	q := url.Values{}
	q.Set("sport", sportKey)
	if c.token != "" {
		q.Set("token", c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/datasets/odds/latest?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("sportmonk build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sportmonk fetch %s: %w", sportKey, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sportmonk read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sportmonk status %d", resp.StatusCode)
	}

	var payload wireResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("sportmonk decode: %w", err)
	}

	return regroup(sportKey, payload.Items), nil
}

// regroup merges per-bookmaker rows that share a match id into a single
// RawOddsEvent with one h2h market per bookmaker.
func regroup(sportKey string, items []wireItem) []providers.RawOddsEvent {
	byMatch := make(map[string]*providers.RawOddsEvent)
	order := make([]string, 0)

	for _, it := range items {
		if it.MatchID == "" || len(it.Odds) == 0 {
			continue
		}
		ev, ok := byMatch[it.MatchID]
		if !ok {
			ev = &providers.RawOddsEvent{
				Provider:     providers.NameSportmonk,
				ID:           it.MatchID,
				SportKey:     sportKey,
				SportTitle:   it.League,
				CommenceTime: it.KickoffAt,
				HomeTeam:     it.HomeTeam,
				AwayTeam:     it.AwayTeam,
				Confidence:   sourceConfidence,
			}
			byMatch[it.MatchID] = ev
			order = append(order, it.MatchID)
		}

		market := providers.RawMarket{Key: "h2h"}
		for outcome, price := range it.Odds {
			market.Outcomes = append(market.Outcomes, providers.RawOutcome{
				Name:  outcome,
				Price: price,
			})
		}
		ev.Bookmakers = append(ev.Bookmakers, providers.RawBookmaker{
			Key:        it.Bookmaker,
			Title:      it.Bookmaker,
			LastUpdate: it.ScrapedAt,
			Markets:    []providers.RawMarket{market},
		})
	}

	out := make([]providers.RawOddsEvent, 0, len(order))
	for _, id := range order {
		out = append(out, *byMatch[id])
	}
	return out
}
