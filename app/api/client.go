// Package api is the HTTP client for the matrix service: authentication,
// matrix upload and listing, inversion, decomposition and status.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"

	"matrixdesk/app/logger"
)

const (
	// DefaultTimeout applies when Config.Timeout is zero.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes bounds response bodies; results carry whole matrices.
	maxResponseBytes = 256 << 20

	headerRequestID      = "X-Request-ID"
	headerClientInstance = "X-Client-Instance"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	InstanceID string
	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Client talks to one matrix service. It is safe for concurrent use; the
// session it holds after Login lives in memory only.
type Client struct {
	baseURL    string
	timeout    time.Duration
	instanceID string
	httpClient *http.Client
	log        *logger.Logger

	mu      sync.RWMutex
	session *Session
}

func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base URL required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be an absolute http(s) URL", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		instanceID: strings.TrimSpace(cfg.InstanceID),
		httpClient: hc,
		log:        log.With("component", "api"),
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Session returns the current session, or nil when logged out.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SetSession replaces the in-memory session.
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// Logout forgets the session.
func (c *Client) Logout() {
	c.SetSession(nil)
}

// response is a decoded 2xx reply. doc is the ojg tree of the body, nil for
// an empty body.
type response struct {
	status int
	doc    any
}

// doJSON sends body as JSON and decodes the reply.
func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	return c.do(ctx, method, path, &buf, contentType)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	c.setHeaders(req, contentType, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, &NetworkError{Method: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Method: method, URL: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	c.log.Debug("request done",
		"method", method,
		"path", path,
		"request_id", requestID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseServerError(resp.StatusCode, raw)
	}
	out := &response{status: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	doc, err := oj.Parse(raw)
	if err != nil {
		return nil, &ServerError{StatusCode: resp.StatusCode, Detail: "response is not valid JSON", Body: truncate(string(raw), 2048)}
	}
	out.doc = doc
	return out, nil
}

func (c *Client) setHeaders(req *http.Request, contentType, requestID string) {
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)
	if c.instanceID != "" {
		req.Header.Set(headerClientInstance, c.instanceID)
	}
	if s := c.Session(); s != nil && s.Token != "" && !s.Expired() {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
}
