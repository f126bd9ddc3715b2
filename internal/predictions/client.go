package predictions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dmehra/oddsradar/internal/snapshot"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 45 * time.Second

	systemPrompt = `You are a sports betting analyst. Given an event and its
bookmaker odds, respond with ONLY a JSON object:
{"confidence": <0-1>, "value_bets": [{"outcome": "...", "odds": <decimal>, "edge": <0-1>, "flagged": <bool>}], "rationale": "..."}
Flag a value bet only when the quoted odds meaningfully exceed your fair price.`
)

// Config holds client settings for the OpenAI-compatible endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// Client generates predictions via an OpenAI-compatible chat API.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewClient creates a prediction client from config.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("predictions: API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}

	openaiCfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		openaiCfg.BaseURL = base
	}

	return &Client{
		api:         openai.NewClientWithConfig(openaiCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}, nil
}

// Predict asks the model for a verdict on one event snapshot.
func (c *Client) Predict(ctx context.Context, snap snapshot.Snapshot) (*Prediction, error) {
	if c == nil {
		return nil, fmt.Errorf("predictions: client is nil")
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(snap)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	resp, err := c.api.CreateChatCompletion(ctxWithTimeout, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("predictions: empty response")
	}

	pred, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	pred.EventID = snap.EventID
	pred.GeneratedAt = time.Now().UTC()
	return pred, nil
}

func buildPrompt(snap snapshot.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s vs %s (%s), starts %s\n",
		snap.HomeTeam, snap.AwayTeam, snap.Sport, snap.StartTime.UTC().Format(time.RFC3339))
	for _, o := range snap.Odds {
		fmt.Fprintf(&b, "%s: home=%.2f away=%.2f", o.Bookmaker, o.Home, o.Away)
		if o.Draw > 0 {
			fmt.Fprintf(&b, " draw=%.2f", o.Draw)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// parseVerdict tolerates markdown code fences around the JSON body.
func parseVerdict(raw string) (*Prediction, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var pred Prediction
	if err := json.Unmarshal([]byte(trimmed), &pred); err != nil {
		return nil, fmt.Errorf("predictions: decode verdict: %w", err)
	}
	if pred.Confidence < 0 {
		pred.Confidence = 0
	}
	if pred.Confidence > 1 {
		pred.Confidence = 1
	}
	return &pred, nil
}
