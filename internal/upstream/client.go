package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"

	maxErrorBody = 64 << 10
	healthKey    = "health"
)

// Config drives the AI service client behaviour.
type Config struct {
	BaseURL        string
	AnalyzeTimeout time.Duration
	LongTimeout    time.Duration
	ExportTimeout  time.Duration
	HealthTimeout  time.Duration
	HealthTTL      time.Duration
	RetryBackoff   time.Duration
}

// Health is the answer of the AI service health probe.
type Health struct {
	Status    string    `json:"status"`
	Service   string    `json:"service,omitempty"`
	Version   string    `json:"version,omitempty"`
	Reachable bool      `json:"reachable"`
	CheckedAt time.Time `json:"checked_at"`
}

// Stream is a streamed response body. Closing it releases the request.
type Stream struct {
	Body        io.ReadCloser
	ContentType string
}

// Document is a binary response such as a generated PDF.
type Document struct {
	Data               []byte
	ContentType        string
	ContentDisposition string
}

// Client talks to the external Python AI service with per-operation
// deadlines and a short-lived health cache.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	analyzeTimeout time.Duration
	longTimeout    time.Duration
	exportTimeout  time.Duration
	healthTimeout  time.Duration
	healthTTL      time.Duration
	retryBackoff   time.Duration
	cache          sync.Map // map[string]cacheEntry
}

type cacheEntry struct {
	at     time.Time
	health Health
}

// NewClient constructs a client, filling defaults for every unset field.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		// deadlines come from the per-operation contexts
		httpClient:     &http.Client{},
		baseURL:        baseURL,
		analyzeTimeout: durationOr(cfg.AnalyzeTimeout, 60*time.Second),
		longTimeout:    durationOr(cfg.LongTimeout, 5*time.Minute),
		exportTimeout:  durationOr(cfg.ExportTimeout, 30*time.Second),
		healthTimeout:  durationOr(cfg.HealthTimeout, 3*time.Second),
		healthTTL:      durationOr(cfg.HealthTTL, 15*time.Second),
		retryBackoff:   durationOr(cfg.RetryBackoff, 2*time.Second),
	}
}

// BaseURL returns the service root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health probes GET /health. Results are cached for the configured TTL; an
// unreachable service is reported as Reachable=false rather than an error.
func (c *Client) Health(ctx context.Context) Health {
	if entry, ok := c.cache.Load(healthKey); ok {
		cached := entry.(cacheEntry)
		if time.Since(cached.at) < c.healthTTL {
			return cached.health
		}
		c.cache.Delete(healthKey)
	}

	health := Health{Status: "unreachable", CheckedAt: time.Now().UTC()}
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err == nil {
		req.Header.Set("Accept", "application/json")
		var resp *http.Response
		resp, err = c.httpClient.Do(req)
		if err == nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				_ = json.NewDecoder(resp.Body).Decode(&health)
				health.Reachable = true
			} else {
				health.Status = fmt.Sprintf("status %d", resp.StatusCode)
			}
		}
	}

	c.cache.Store(healthKey, cacheEntry{at: time.Now(), health: health})
	return health
}

// Analyze posts text to /analyze and returns the raw JSON analysis.
func (c *Client) Analyze(ctx context.Context, text, contractType string) (json.RawMessage, error) {
	if strings.TrimSpace(contractType) == "" {
		contractType = "auto"
	}
	body, err := json.Marshal(map[string]string{"text": text, "contract_type": contractType})
	if err != nil {
		return nil, fmt.Errorf("encode analyze request: %w", err)
	}
	return c.postJSON(ctx, "/analyze", body, c.analyzeTimeout)
}

// AnalyzeText forwards a JSON body unchanged to /analyze-text.
func (c *Client) AnalyzeText(ctx context.Context, body []byte) (json.RawMessage, error) {
	return c.postJSON(ctx, "/analyze-text", body, c.longTimeout)
}

// AnalyzeFile forwards a multipart upload to /analyze-file.
func (c *Client) AnalyzeFile(ctx context.Context, body io.Reader, contentType string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.longTimeout)
	defer cancel()
	resp, err := c.do(ctx, "/analyze-file", body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeRaw(ctx, resp)
}

// ExtractText forwards a multipart upload to /extract-text and returns the
// NDJSON progress stream unbuffered. The caller must close the stream.
func (c *Client) ExtractText(ctx context.Context, body io.Reader, contentType string) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, c.longTimeout)
	resp, err := c.do(ctx, "/extract-text", body, contentType)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Stream{
		Body:        &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel},
		ContentType: "application/x-ndjson",
	}, nil
}

// ExportPDF posts report JSON to /export-pdf and returns the rendered document.
func (c *Client) ExportPDF(ctx context.Context, body []byte) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.exportTimeout)
	defer cancel()
	resp, err := c.do(ctx, "/export-pdf", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, err)
	}
	disposition := resp.Header.Get("Content-Disposition")
	if disposition == "" {
		disposition = "attachment; filename=report.pdf"
	}
	return &Document{Data: data, ContentType: "application/pdf", ContentDisposition: disposition}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, timeout time.Duration) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.do(ctx, path, bytes.NewReader(body), "application/json")
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusTooManyRequests {
		// back off and retry once
		select {
		case <-ctx.Done():
			return nil, classify(ctx, ctx.Err())
		case <-time.After(c.retryBackoff):
		}
		resp, err = c.do(ctx, path, bytes.NewReader(body), "application/json")
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeRaw(ctx, resp)
}

// do sends a POST and turns transport failures and non-2xx answers into the
// package error taxonomy. On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	return resp, nil
}

func decodeRaw(ctx context.Context, resp *http.Response) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		if ctx.Err() != nil {
			return nil, classify(ctx, err)
		}
		return nil, fmt.Errorf("decode ai service response: %w", err)
	}
	return raw, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelReadCloser) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
