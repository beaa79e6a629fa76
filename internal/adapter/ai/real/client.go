// Package real implements a chat client backed by any OpenAI-compatible
// chat-completions API.
package real

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"log/slog"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/talentwire/cv-ingest/internal/config"
	"github.com/talentwire/cv-ingest/internal/domain"
)

// Client implements domain.ChatClient over HTTP. Transport-level retry lives
// here: 429 and 5xx are retried with exponential backoff, other 4xx are
// permanent.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a chat client using the configured request timeout.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.AIRequestTimeout},
	}
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// ChatJSON calls the chat-completions endpoint and returns the first choice's
// message content.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.AIAPIKey == "" {
		return "", fmt.Errorf("%w: AI_API_KEY missing", domain.ErrInvalidArgument)
	}

	body := map[string]any{
		"model":       c.cfg.AIModel,
		"temperature": 0.2,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("op=ai.ChatJSON marshal: %w", err)
	}

	endpoint := c.cfg.AIBaseURL + "/chat/completions"
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	op := func() error {
		// Recreate request each attempt to avoid reusing consumed bodies.
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+c.cfg.AIAPIKey)
		r.Header.Set("Content-Type", "application/json")

		resp, err := c.hc.Do(r)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			slog.Warn("ai provider rate limited",
				slog.Int("status", resp.StatusCode),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("rate limited: 429")
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			slog.Warn("ai provider 4xx",
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.AIModel),
				slog.String("endpoint", endpoint),
				slog.String("body", bodySnippet(bodyBytes)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			slog.Error("ai provider non-2xx",
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.AIModel),
				slog.String("endpoint", endpoint),
				slog.String("body", bodySnippet(bodyBytes)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}

		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			slog.Error("ai provider decode error",
				slog.String("model", c.cfg.AIModel),
				slog.Any("error", err))
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", fmt.Errorf("op=ai.ChatJSON: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("op=ai.ChatJSON: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}

func bodySnippet(b []byte) string {
	if len(b) > 512 {
		b = b[:512]
	}
	return string(b)
}
