package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// Config holds diffusion API configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Engine  string
}

// Result is a completed image generation.
type Result struct {
	ImageURL string `json:"image_url"`
	Seed     int64  `json:"seed"`
}

// Client calls the external diffusion API that renders church-reconversion
// visuals. Transient failures are retried a bounded number of times; the
// caller refunds the coupon generation if all attempts fail.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stability.ai"
	}
	if cfg.Engine == "" {
		cfg.Engine = "stable-diffusion-xl-1024-v1-0"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Configured returns true if an API key is set.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
	Engine string `json:"engine"`
}

type generateResponse struct {
	ImageURL string `json:"image_url"`
	Seed     int64  `json:"seed"`
}

// Generate renders one image for the prompt. 5xx responses and transport
// errors are retried twice with a constant backoff; 4xx responses fail
// immediately.
func (c *Client) Generate(ctx context.Context, prompt, style string) (*Result, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("image client not configured: missing API key")
	}

	body, err := json.Marshal(generateRequest{Prompt: prompt, Style: style, Engine: c.cfg.Engine})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var result *Result
	backoff := retry.WithMaxRetries(2, retry.NewConstant(500*time.Millisecond))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/generation", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("generation request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("diffusion API error: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("diffusion API error: status %d", resp.StatusCode)
		}

		var out generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		result = &Result{ImageURL: out.ImageURL, Seed: out.Seed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
