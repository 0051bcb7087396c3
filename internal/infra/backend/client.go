package backend

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

	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/telemetry"
)

const maxErrorBody = 512

// Client talks to the tool service. Every call is a single attempt; retry
// policy belongs to callers.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Headers    map[string]string
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("backend url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q must be http or https", base)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = time.Duration(domain.DefaultBackendTimeoutSeconds) * time.Second
		}
		transport, err := buildHeaderTransport(opts.Headers)
		if err != nil {
			return nil, err
		}
		client = &http.Client{Transport: transport, Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    client,
		logger:  logger.Named("backend"),
		now:     now,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchCatalog issues GET {base}/tools and normalizes the answer.
func (c *Client) FetchCatalog(ctx context.Context) (domain.ToolCatalog, error) {
	const op = "backend.fetch_catalog"
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tools", nil)
	if err != nil {
		return domain.ToolCatalog{}, domain.E(domain.CodeInternal, op, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	propagateRequestID(ctx, req)

	body, err := c.do(req)
	if err != nil {
		c.logger.Warn("fetch catalog failed",
			telemetry.EventField(telemetry.EventCatalogFetchFailure),
			telemetry.DurationField(time.Since(start)),
			zap.Error(err),
		)
		return domain.ToolCatalog{}, domain.Unavailable(op, err)
	}

	tools, issues := NormalizeTools(body)
	if len(issues) > 0 {
		c.logger.Warn("catalog payload normalized with issues",
			zap.Error(domain.ErrMalformedCatalog),
			zap.Strings("issues", issues),
			zap.Int("tools", len(tools)),
		)
	}
	c.logger.Debug("catalog fetched",
		telemetry.EventField(telemetry.EventCatalogFetch),
		zap.Int("tools", len(tools)),
		telemetry.DurationField(time.Since(start)),
	)
	return domain.ToolCatalog{Tools: tools, FetchedAt: c.now()}, nil
}

// Invoke issues POST {base}/{path} with arguments as the JSON body and
// returns the response document verbatim.
func (c *Client) Invoke(ctx context.Context, path string, arguments json.RawMessage) (json.RawMessage, error) {
	const op = "backend.invoke"
	if len(bytes.TrimSpace(arguments)) == 0 {
		arguments = json.RawMessage(`{}`)
	}

	endpoint := c.baseURL + "/" + escapePath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(arguments))
	if err != nil {
		return nil, domain.E(domain.CodeInternal, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	propagateRequestID(ctx, req)

	body, err := c.do(req)
	if err != nil {
		return nil, domain.Unavailable(op, err)
	}
	if !json.Valid(body) {
		return nil, domain.E(domain.CodeInternal, op, "backend returned a non-JSON body", nil)
	}
	return json.RawMessage(body), nil
}

// StatusError reports a non-2xx backend answer.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       snippet,
		}
	}
	return body, nil
}

// escapePath escapes each segment of a registry path such as "reports/daily".
func escapePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func propagateRequestID(ctx context.Context, req *http.Request) {
	if id, ok := telemetry.RequestIDFromContext(ctx); ok {
		req.Header.Set(telemetry.RequestIDHeader, id)
	}
}

func buildHeaderTransport(headers map[string]string) (http.RoundTripper, error) {
	base := http.DefaultTransport
	if base == nil {
		return nil, errors.New("default http transport is nil")
	}
	if len(headers) == 0 {
		return base, nil
	}
	fixed := http.Header{}
	for key, value := range headers {
		name := http.CanonicalHeaderKey(strings.TrimSpace(key))
		if name == "" {
			return nil, errors.New("http headers contain empty key")
		}
		fixed.Set(name, value)
	}
	return &headerRoundTripper{base: base, headers: fixed}, nil
}

type headerRoundTripper struct {
	base    http.RoundTripper
	headers http.Header
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for key, values := range h.headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return h.base.RoundTrip(req)
}
