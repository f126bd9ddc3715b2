package metasport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmehra/oddsradar/internal/providers"
)

const defaultBaseURL = "https://api.metasport.app"

// Client reads static reference data (bookmaker brands, regions,
// jurisdictions, deep links) from the metadata provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Config struct {
	BaseURL string
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
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Name() providers.Name {
	return providers.NameMetasport
}

type wireBookmaker struct {
	Key           string   `json:"key"`
	Brand         string   `json:"brand"`
	Regions       []string `json:"regions"`
	Jurisdictions []string `json:"jurisdictions"`
	DeepLink      string   `json:"deep_link"`
}

// FetchBookmakers retrieves the bookmaker reference list.
func (c *Client) FetchBookmakers(ctx context.Context) ([]providers.RawBookmakerMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/bookmakers", nil)
	if err != nil {
		return nil, fmt.Errorf("metasport build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metasport fetch bookmakers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metasport status %d", resp.StatusCode)
	}

	var payload struct {
		Bookmakers []wireBookmaker `json:"bookmakers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("metasport decode: %w", err)
	}

	out := make([]providers.RawBookmakerMeta, 0, len(payload.Bookmakers))
	for _, b := range payload.Bookmakers {
		out = append(out, providers.RawBookmakerMeta{
			Key:              b.Key,
			Brand:            b.Brand,
			Regions:          b.Regions,
			Jurisdictions:    b.Jurisdictions,
			DeepLinkTemplate: b.DeepLink,
		})
	}
	return out, nil
}
