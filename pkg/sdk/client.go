package sdk

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
	"time"

	"github.com/kailas-cloud/rowdex/internal/version"
)

const (
	defaultTimeout = 30 * time.Second

	apiPrefix = "/api/v1/tables"

	// Error bodies are truncated to this length in messages.
	maxErrorBody = 512
)

// Client talks to a remote rowdex server over HTTP.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	httpc     *http.Client
	obs       *observer
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8080". The path prefix is added by the client.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if baseURL == "" {
		return nil, errors.New("rowdex: server URL required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("rowdex: parse server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("rowdex: unsupported URL scheme %q", u.Scheme)
	}

	httpc := cfg.httpClient
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    cfg.apiKey,
		userAgent: "rowdex-sdk/" + version.Version,
		httpc:     httpc,
		obs:       obs,
	}, nil
}

// Close releases idle connections held by the underlying HTTP client.
func (c *Client) Close() {
	c.httpc.CloseIdleConnections()
}

// Ping checks server reachability via the health endpoint.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if _, err = c.health(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Tables returns the table management service.
func (c *Client) Tables() *TableService {
	return &TableService{c: c}
}

// Rows returns the row service for a given table.
func (c *Client) Rows(table string) *RowService {
	return &RowService{table: table, c: c}
}

// Search returns the search service for a given table.
func (c *Client) Search(table string) *SearchService {
	return &SearchService{table: table, c: c}
}

// tablePath builds the API path for a table-scoped endpoint. The table
// name is escaped so keys like "a/b" round-trip through the router.
func tablePath(table string, suffix string) string {
	return apiPrefix + "/" + url.PathEscape(table) + suffix
}

// do performs one API request. A non-nil in is marshaled as the JSON
// body (raw bytes are sent verbatim); a non-nil out receives the
// decoded response. Non-2xx responses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		var raw []byte
		switch v := in.(type) {
		case json.RawMessage:
			raw = v
		case []byte:
			raw = v
		default:
			var err error
			raw, err = json.Marshal(in)
			if err != nil {
				return fmt.Errorf("encode request: %w", err)
			}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseErrorResponse turns a non-2xx response into an *APIError. Bodies
// that are not the standard error envelope (proxies, load balancers)
// are carried through truncated.
func parseErrorResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Code != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Code,
			Message:    envelope.Message,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(data)),
	}
}
