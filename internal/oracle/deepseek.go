// Package oracle provides the external similarity and relevance
// capabilities consumed by the dedup engine and the ranker. The engine only
// depends on the narrow function-shaped contracts; this package supplies a
// DeepSeek-compatible chat client and a deterministic lexical fallback.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yutsang/ai-news/internal/dedup"
	"github.com/yutsang/ai-news/internal/record"
)

const (
	DefaultEndpoint    = "https://api.deepseek.com/chat/completions"
	DefaultModel       = "deepseek-chat"
	DefaultMaxTokens   = 200
	DefaultTemperature = 0.1

	responseByteLimit = 1 << 20
)

// ClientOptions configures the chat-completions client.
type ClientOptions struct {
	Endpoint    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

// Client implements dedup.SimilarityOracle and rank.RelevanceOracle over a
// DeepSeek-compatible chat-completions API.
type Client struct {
	opts   ClientOptions
	logger zerolog.Logger
}

func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	if strings.TrimSpace(opts.Endpoint) == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 45 * time.Second}
	}
	return &Client{
		opts:   opts,
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// JudgeSimilar asks whether two article summaries describe the same event.
func (c *Client) JudgeSimilar(ctx context.Context, a, b string) (dedup.Verdict, error) {
	prompt := fmt.Sprintf(`Compare these two Hong Kong real estate article summaries and determine if they describe the same transaction or news event.

Summary A: %s

Summary B: %s

Respond with ONLY valid JSON in this exact format:
{"duplicate": true/false}`, a, b)

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return dedup.VerdictUnknown, err
	}

	var parsed struct {
		Duplicate *bool `json:"duplicate"`
	}
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &parsed); err != nil || parsed.Duplicate == nil {
		return dedup.VerdictUnknown, fmt.Errorf("similarity response not parseable: %q", raw)
	}
	if *parsed.Duplicate {
		return dedup.VerdictDuplicate, nil
	}
	return dedup.VerdictNotDuplicate, nil
}

// ScoreRelevance scores one news record on the 0..10 market-relevance scale.
func (c *Client) ScoreRelevance(ctx context.Context, rec record.NewsRecord) (float64, error) {
	prompt := fmt.Sprintf(`You are a Hong Kong real estate market analyst. Score how relevant this article is to the Hong Kong property market on a 0-10 scale (10 = major market-moving news, 0 = unrelated).

Title: %s
Summary: %s

Respond with ONLY valid JSON in this exact format:
{"score": <number>}`, rec.Topic, rec.Summary)

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return 0, err
	}

	var parsed struct {
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &parsed); err != nil || parsed.Score == nil {
		return 0, fmt.Errorf("relevance response not parseable: %q", raw)
	}
	return *parsed.Score, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a Hong Kong real estate market analyst. Respond with valid JSON only.",
			},
			{
				Role:    "user",
				Content: prompt,
			},
		},
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(c.opts.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseByteLimit))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

// cleanJSONResponse strips markdown code fences some models wrap around
// their JSON output.
func cleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
