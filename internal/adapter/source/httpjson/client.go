package httpjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/spf13/cast"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "vscroll/1.0"
)

// Config configures a Client
type Config struct {
	URL         string
	Token       string // Sent as a bearer token when set
	DataPath    string // Dotted path to the record array, e.g. "result.items"
	OffsetParam string // Query parameter carrying the offset (default "offset")
	LimitParam  string // Query parameter carrying the page size (default "limit")
	Timeout     time.Duration
}

// Client fetches pages from a JSON-over-HTTP endpoint
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new HTTP JSON data source
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.OffsetParam == "" {
		cfg.OffsetParam = "offset"
	}
	if cfg.LimitParam == "" {
		cfg.LimitParam = "limit"
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// ID identifies the endpoint for cache keys
func (c *Client) ID() string {
	return c.cfg.URL
}

// FetchPage requests one page. The "offset" and "limit" query keys are sent
// under the configured parameter names; every other key is passed through.
func (c *Client) FetchPage(ctx context.Context, query map[string]any) (any, error) {
	body, err := c.doRequest(ctx, c.encodeQuery(query))
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return Extract(payload, c.cfg.DataPath)
}

func (c *Client) encodeQuery(query map[string]any) url.Values {
	values := url.Values{}
	for k, v := range query {
		name := k
		switch k {
		case "offset":
			name = c.cfg.OffsetParam
		case "limit":
			name = c.cfg.LimitParam
		}

		switch v := v.(type) {
		case nil:
			continue
		case []string, []any, []int:
			for _, s := range cast.ToStringSlice(v) {
				values.Add(name, s)
			}
		default:
			s, err := cast.ToStringE(v)
			if err != nil {
				c.logger.Warn("dropping unencodable query value", "key", k, "error", err)
				continue
			}
			values.Set(name, s)
		}
	}
	return values
}

// doRequest performs an HTTP GET against the configured endpoint
func (c *Client) doRequest(ctx context.Context, query url.Values) ([]byte, error) {
	reqURL := c.cfg.URL
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(reqURL, "?") {
			sep = "&"
		}
		reqURL = reqURL + sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	c.logger.Debug("page request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.logger.Error("page request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceOffline, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, domain.ErrAuthFailed
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("page request error", "status", resp.StatusCode, "bodyLen", len(body))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return body, nil
}

// Extract walks a dotted path through nested objects. An empty path returns
// payload unchanged.
func Extract(payload any, path string) (any, error) {
	if path == "" {
		return payload, nil
	}
	cur := payload
	for _, key := range strings.Split(path, ".") {
		obj, err := cast.ToStringMapE(cur)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an object", domain.ErrMalformedResponse, key)
		}
		next, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", domain.ErrMalformedResponse, key)
		}
		cur = next
	}
	return cur, nil
}
