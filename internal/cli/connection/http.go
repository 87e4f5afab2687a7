// Package connection talks to the library catalog REST API.
package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/infra/buildinfo"
	"github.com/yndnr/libcat-go/internal/telemetry/logger"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// HTTPClient provides HTTP communication with the catalog API.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	durations *prometheus.HistogramVec
	logger    *slog.Logger
	userAgent string
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithRateLimit throttles requests to rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTLSConfig sets the TLS configuration, e.g. a custom CA bundle.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *HTTPClient) {
		if cfg == nil {
			return
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = cfg
		c.client.Transport = tr
	}
}

// WithDurationHistogram records request latency by method, route and code.
func WithDurationHistogram(h *prometheus.HistogramVec) Option {
	return func(c *HTTPClient) {
		c.durations = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewHTTPClient creates a new HTTP client for the API rooted at server.
func NewHTTPClient(server string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:   NormalizeBaseURL(server),
		client:    &http.Client{Timeout: DefaultTimeout},
		logger:    slog.Default(),
		userAgent: buildinfo.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeBaseURL adds a scheme when missing and strips trailing slashes.
func NormalizeBaseURL(server string) string {
	baseURL := strings.TrimSpace(server)
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Secure reports whether the API origin uses https.
func (c *HTTPClient) Secure() bool {
	return strings.HasPrefix(c.baseURL, "https://")
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path, token string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, token, nil)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path, token string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, token, body)
}

// Put performs a PUT request with a JSON body.
func (c *HTTPClient) Put(ctx context.Context, path, token string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPut, path, token, body)
}

// Delete performs a DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, path, token string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, token, nil)
}

// Do sends a request. An empty token sends no Authorization header.
// Failures that produce no HTTP response are wrapped in domain.ErrTransport.
func (c *HTTPClient) Do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := logger.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = ulid.Make().String()
		ctx = logger.WithRequestID(ctx, requestID)
	}
	c.addHeaders(req, token, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, domain.ErrTransport.Wrap(err)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)

	code := "error"
	if resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	if c.durations != nil {
		c.durations.WithLabelValues(method, routeLabel(path), code).Observe(elapsed.Seconds())
	}
	c.logger.DebugContext(ctx, "api request",
		"method", method,
		"path", path,
		"status", code,
		"duration", elapsed)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, domain.ErrTransport.Wrap(err)
	}
	return resp, nil
}

// addHeaders adds authentication and common headers.
func (c *HTTPClient) addHeaders(req *http.Request, token, requestID string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
}

// routeLabel collapses numeric path segments and drops the query so the
// histogram keeps a bounded label set.
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

// ParseResponse decodes a JSON response body into target.
// Status >= 400 becomes a *domain.APIError carrying the server message.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Code    string              `json:"code"`
			Message string              `json:"message"`
			Error   string              `json:"error"`
			Errors  map[string][]string `json:"errors"`
		}
		apiErr := &domain.APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Message
			if apiErr.Message == "" {
				apiErr.Message = errResp.Error
			}
			apiErr.Errors = errResp.Errors
		}
		return apiErr
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			if errors.Is(err, io.EOF) {
				return domain.ErrUnexpectedResponse.WithDetails("empty body")
			}
			return domain.ErrUnexpectedResponse.Wrap(err)
		}
	}

	return nil
}

// pathEscapeID formats a numeric identifier for a URL path.
func pathEscapeID(id int64) string {
	return url.PathEscape(strconv.FormatInt(id, 10))
}
