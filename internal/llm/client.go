package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Config for the completion client.
type Config struct {
	URL     string        // full completions endpoint URL
	APIKey  string
	Model   string
	Timeout time.Duration // long: one call may cover a large document chunk
}

// Client posts prompts to the completion service over plain HTTP. The remote
// envelope shape is not guaranteed, so the response is decoded leniently.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Complete sends one prompt and returns the generated text. Network errors,
// non-2xx responses and undecodable envelopes are returned as errors; the
// caller treats any error as an absent result for that prompt.
func (c *Client) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	reqID := uuid.New().String()
	start := time.Now()

	payload := map[string]any{
		"model":            c.cfg.Model,
		"prompt":           prompt,
		"temperature":      opts.Temperature,
		"top_p":            opts.TopP,
		"presence_penalty": opts.PresencePenalty,
		"seed":             opts.Seed,
		"stop":             nil,
		"stream":           false,
		"stream_options":   nil,
	}
	bs, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Key", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.Info("llm.complete.request",
		"req_id", reqID,
		"model", c.cfg.Model,
		"prompt_len", len(prompt),
		"temperature", opts.Temperature,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("llm.complete.send_error", "req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("llm.complete.body_close_error", "req_id", reqID, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("llm.complete.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("completion service status %d: %s", resp.StatusCode, truncate(string(raw), 500))
	}

	text, err := DecodeCompletionText(raw)
	if err != nil {
		c.logger.Error("llm.complete.decode_error", "req_id", reqID, "error", err, "raw_bytes", len(raw))
		return "", err
	}
	return text, nil
}

// DecodeCompletionText recovers the generated text from an arbitrary response
// envelope. Known field names are tried in priority order; an unknown object
// is returned re-serialized as a last resort so downstream recovery can still
// look for embedded JSON.
func DecodeCompletionText(raw []byte) (string, error) {
	var envelope any
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("decode completion envelope: %w", err)
	}

	switch v := envelope.(type) {
	case string:
		return v, nil
	case map[string]any:
		if choices, ok := v["choices"].([]any); ok && len(choices) > 0 {
			if choice, ok := choices[0].(map[string]any); ok {
				if msg, ok := choice["message"].(map[string]any); ok {
					if content, ok := msg["content"].(string); ok && content != "" {
						return content, nil
					}
				}
				if text, ok := choice["text"].(string); ok && text != "" {
					return text, nil
				}
			}
		}
		for _, key := range []string{"text", "response", "content"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s, nil
			}
		}
		// Unknown structure: hand back the serialized body.
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("reserialize completion envelope: %w", err)
		}
		return string(b), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
