// Package push delivers metrics snapshots to a remote collector. Delivery is
// best effort: a missed push is dropped and superseded by the next cycle.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	requestTimeout       = 10 * time.Second
	defaultRetryAttempts = 3
	userAgent            = "solana-agent/" + agentVersion
)

// Config holds push delivery settings, resolved once at startup.
type Config struct {
	Enabled       bool
	URL           string
	APIKey        string
	RetryAttempts int
}

// Client pushes payloads to the configured endpoint. Whether push is enabled
// is decided once in New, not per call.
type Client struct {
	cfg        Config
	enabled    bool
	httpClient *http.Client
	sleep      func(time.Duration)
}

// New builds a push client. Push stays disabled unless both an endpoint URL
// and an API key are configured.
func New(cfg Config) *Client {
	enabled := cfg.Enabled

	if enabled && cfg.URL == "" {
		log.Printf("Push mode enabled but no endpoint URL configured, disabling push")

		enabled = false
	}

	if enabled && cfg.APIKey == "" {
		log.Printf("Push mode enabled but no API key configured, disabling push")

		enabled = false
	}

	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}

	if enabled {
		log.Printf("Push mode enabled: %s", cfg.URL)
	}

	return &Client{
		cfg:     cfg,
		enabled: enabled,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		sleep: time.Sleep,
	}
}

// Enabled reports whether deliveries will be attempted.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Deliver sends the payload, retrying transient failures with exponential
// backoff (2s, 4s, 8s, ...). Authentication failures are configuration
// errors and short-circuit without retrying. Returns true only when the
// remote acknowledged with a 200.
func (c *Client) Deliver(ctx context.Context, payload *Payload) bool {
	if !c.enabled {
		return false
	}

	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		err := c.send(ctx, payload)
		if err == nil {
			return true
		}

		if errors.Is(err, errUnauthorized) {
			log.Printf("Push authentication failed, check the API key: %v", err)

			return false
		}

		log.Printf("Push attempt %d/%d failed: %v", attempt, c.cfg.RetryAttempts, err)

		if attempt < c.cfg.RetryAttempts {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.sleep(backoff)
		}
	}

	log.Printf("Dropping metrics push for %s after %d attempts", payload.Node, c.cfg.RetryAttempts)

	return false
}

func (c *Client) send(ctx context.Context, payload *Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status=%d", errUnauthorized, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status=%d", errPushStatus, resp.StatusCode)
	}
}
