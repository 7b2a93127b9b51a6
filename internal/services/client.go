package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "http://localhost:3001"
	defaultLoginPath = "/login/"
	defaultUserAgent = "folio/0.3"
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 8 << 20
)

// Client is the typed client for the reading platform REST API.
//
// Every request carries the app-level Basic authorization header and waits on a shared rate limiter.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	authHeader string
	loginPath  string
	userAgent  string
	limiter    *rate.Limiter
	logger     *log.Logger
	validator  *Validator
}

// ClientOpts configures a [Client]. Zero values select defaults.
type ClientOpts struct {
	BaseURL           string
	Username          string
	Password          string
	LoginPath         string
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	Logger            *log.Logger
}

// OptsFromConfig maps the [api] config section onto [ClientOpts].
func OptsFromConfig(cfg shared.APIConfig) ClientOpts {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return ClientOpts{
		BaseURL:           cfg.BaseURL,
		Username:          cfg.Username,
		Password:          cfg.Password,
		LoginPath:         cfg.LoginPath,
		HTTPClient:        &http.Client{Timeout: timeout},
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}
}

// NewClient builds a Client. It fails only when the base URL cannot be parsed.
func NewClient(opts ClientOpts) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.LoginPath == "" {
		opts.LoginPath = defaultLoginPath
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	var header string
	if opts.Username != "" || opts.Password != "" {
		header = BasicAuthHeader(opts.Username, opts.Password)
	}

	return &Client{
		baseURL:    base,
		http:       opts.HTTPClient,
		authHeader: header,
		loginPath:  opts.LoginPath,
		userAgent:  opts.UserAgent,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     shared.WithLogger(opts.Logger, "component", "api"),
		validator:  NewValidator(),
	}, nil
}

// BasicAuthHeader builds the value of an HTTP Basic Authorization header.
func BasicAuthHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// AuthHeader returns the static Authorization value, empty when no credentials are configured.
func (c *Client) AuthHeader() string {
	return c.authHeader
}

// AssetURL resolves a backend-relative asset path (e.g. /uploads/audio/1.mp3) against the base URL.
//
// Absolute URLs are returned unchanged; an empty path yields an empty string.
func (c *Client) AssetURL(path string) string {
	if path == "" {
		return ""
	}
	ref, err := url.Parse(path)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if !strings.HasPrefix(ref.Path, "/") {
		ref.Path = "/" + ref.Path
	}
	return c.baseURL.ResolveReference(ref).String()
}

// statusChecker is implemented by envelopes that can report a failure inside a 2xx body.
type statusChecker interface {
	failure(op string) error
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	rel := &url.URL{Path: path}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	return c.do(ctx, op, http.MethodGet, rel, nil, "", out)
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return validationError(op, fmt.Sprintf("could not encode request: %v", err), nil)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, op, method, &url.URL{Path: path}, body, "application/json", out)
}

func (c *Client) do(ctx context.Context, op, method string, rel *url.URL, body io.Reader, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(op, err)
	}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return transportError(op, fmt.Errorf("create request: %w", err))
	}
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "method", method, "path", rel.Path, "error", err)
		return transportError(op, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(op, fmt.Errorf("read response: %w", err))
	}
	c.logger.Debug("request", "op", op, "method", method, "path", rel.Path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return malformedError(op, fmt.Errorf("empty body"))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return malformedError(op, err)
	}
	if sc, ok := out.(statusChecker); ok {
		if err := sc.failure(op); err != nil {
			return err
		}
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = defaultBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse base url: %v", shared.ErrInvalidConfig, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q has no host", shared.ErrInvalidConfig, raw)
	}
	// ResolveReference with absolute paths would drop a base path prefix, so keep it on every request.
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

// Download streams the asset at path (relative or absolute) into w and returns the byte count.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	const op = "download"
	target := c.AssetURL(path)
	if target == "" {
		return 0, validationError(op, "asset path is required", map[string]string{"path": "is required"})
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, transportError(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, transportError(op, fmt.Errorf("create request: %w", err))
	}
	if c.authHeader != "" && strings.HasPrefix(target, c.baseURL.String()) {
		req.Header.Set("Authorization", c.authHeader)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, transportError(op, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, statusError(op, resp.StatusCode, data)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, transportError(op, fmt.Errorf("read body: %w", err))
	}
	return n, nil
}
