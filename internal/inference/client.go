// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/proctorlens/internal/encoding"
	"github.com/tomtom215/proctorlens/internal/models"
)

var (
	// ErrNetwork covers transport failures, timeouts and non-2xx responses.
	ErrNetwork = errors.New("inference request failed")

	// ErrMalformedResponse means the response body could not be parsed.
	ErrMalformedResponse = errors.New("malformed inference response")
)

const (
	// maxErrorBodySize limits the body read for error reporting.
	maxErrorBodySize = 64 * 1024

	// maxResponseSize limits a successful response body.
	maxResponseSize = 1 << 20

	defaultTimeout = 3 * time.Second
)

// AttentionClient sends an encoded frame for analysis.
type AttentionClient interface {
	Send(ctx context.Context, seq uint64, frame []byte) (*models.AttentionMetrics, error)
}

// Pinger is implemented by clients that can probe endpoint health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientConfig configures an HTTP inference client.
type ClientConfig struct {
	URL       string
	APIKey    string
	Timeout   time.Duration
	HealthURL string

	// HTTPClient overrides the transport. Its own Timeout still applies.
	HTTPClient *http.Client
}

// Client talks to the inference endpoint over HTTP.
type Client struct {
	url        string
	apiKey     string
	healthURL  string
	timeout    time.Duration
	httpClient *http.Client
}

var _ AttentionClient = (*Client)(nil)

// NewClient creates an inference client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// The per-request context deadline is the effective limit; the
		// client timeout is a backstop.
		httpClient = &http.Client{Timeout: 2 * timeout}
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		healthURL:  cfg.HealthURL,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// Send posts frame with sequence number seq and parses the metrics.
func (c *Client) Send(ctx context.Context, seq uint64, frame []byte) (*models.AttentionMetrics, error) {
	body, err := json.Marshal(models.InferenceRequest{
		FrameNumber: seq,
		ImageBase64: encoding.Base64(frame),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal inference request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: %w", ErrNetwork, seq, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: frame %d: status %d: %s",
			ErrNetwork, seq, resp.StatusCode, readBodyForError(resp.Body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: read response: %w", ErrNetwork, seq, err)
	}
	if len(data) > maxResponseSize {
		return nil, fmt.Errorf("%w: frame %d: response exceeds %d bytes", ErrMalformedResponse, seq, maxResponseSize)
	}

	return parseMetrics(data)
}

// parseMetrics accepts only a JSON object; any field may be absent.
func parseMetrics(data []byte) (*models.AttentionMetrics, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected JSON object", ErrMalformedResponse)
	}

	var m models.AttentionMetrics
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &m, nil
}

// Ping probes the configured health URL. Without one it reports healthy.
func (c *Client) Ping(ctx context.Context) error {
	if c.healthURL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrNetwork, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: health probe: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: health probe status %d", ErrNetwork, resp.StatusCode)
	}
	return nil
}

// readBodyForError reads up to maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}
