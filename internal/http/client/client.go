// Package client is the authenticated request pipeline. Each call attaches
// the current bearer token, dispatches, and on a 401 refreshes the session
// once and replays the captured request. A failed refresh clears the session
// and sends the navigator to the login route.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xcloud/console-client/internal/apierror"
	"github.com/xcloud/console-client/internal/navigation"
	"github.com/xcloud/console-client/internal/observability"
)

const (
	HeaderRequestID = "X-Request-Id"
	DefaultTimeout  = 30 * time.Second
	maxBodyBytes    = 8 << 20
)

// TokenProvider is the session the pipeline reads and repairs.
type TokenProvider interface {
	Token() string
	Refresh(ctx context.Context) error
	Clear(ctx context.Context) error
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	LoginRoute string
	// Tracing wraps the transport with otelhttp.
	Tracing   bool
	Transport http.RoundTripper
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	loginRoute string
	tokens     TokenProvider
	nav        navigation.Navigator
	logger     *slog.Logger
}

// Request describes one API call. Body is JSON-encoded once, before the
// first dispatch.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
	// SkipAuthRefresh returns a 401 to the caller as-is. Auth endpoints set
	// it so a rejected refresh cannot trigger another refresh.
	SkipAuthRefresh bool
	// BearerToken, when set, is sent instead of the provider's token.
	BearerToken string
}

// PendingRequest is the captured form of a Request, replayable verbatim.
type PendingRequest struct {
	Method          string
	URL             string
	Body            []byte
	Header          http.Header
	SkipAuthRefresh bool
	bearerToken     string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// New builds a pipeline with no session attached. Calls made through it
// never refresh; use WithSession for authenticated calls.
func New(opts Options, logger *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if opts.Tracing {
		transport = otelhttp.NewTransport(transport)
	}
	if logger == nil {
		logger = slog.Default()
	}
	loginRoute := opts.LoginRoute
	if loginRoute == "" {
		loginRoute = navigation.RouteLogin
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		loginRoute: loginRoute,
		logger:     logger,
	}
}

// WithSession returns a copy of c that attaches tokens from p and repairs
// the session on 401.
func (c *Client) WithSession(p TokenProvider, nav navigation.Navigator) *Client {
	cp := *c
	cp.tokens = p
	cp.nav = nav
	return &cp
}

func (c *Client) BaseURL() string { return c.baseURL }

// Do runs the pipeline. Non-2xx outcomes come back as *apierror.Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	pending, err := c.capture(req)
	if err != nil {
		return nil, err
	}
	resp, outcome, err := c.run(ctx, pending)
	observability.RecordClientRequest(ctx, pending.Method, outcome, time.Since(start).Seconds())
	return resp, err
}

// DoJSON runs the pipeline and decodes a successful body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.Decode(out)
}

func (c *Client) run(ctx context.Context, p *PendingRequest) (*Response, string, error) {
	replayed := false
	for {
		resp, err := c.dispatch(ctx, p)
		if err != nil {
			return nil, "transport_error", apierror.Transport(err)
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if replayed {
				return resp, "replayed", nil
			}
			return resp, "success", nil
		case resp.StatusCode == http.StatusUnauthorized && !replayed && c.canRefresh(p):
			if err := c.tokens.Refresh(ctx); err != nil {
				return nil, "logged_out", c.loggedOut(ctx, err)
			}
			replayed = true
		default:
			return nil, "error", apierror.FromResponse(resp.StatusCode, resp.Body)
		}
	}
}

func (c *Client) canRefresh(p *PendingRequest) bool {
	return c.tokens != nil && !p.SkipAuthRefresh
}

func (c *Client) loggedOut(ctx context.Context, cause error) error {
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Warn("clear session after failed refresh", "error", err)
	}
	if c.nav != nil {
		if err := c.nav.Navigate(ctx, c.loginRoute); err != nil {
			c.logger.Warn("navigate to login failed", "route", c.loginRoute, "error", err)
		}
	}
	c.logger.Debug("session could not be refreshed", "error", cause)
	return apierror.LoggedOut(cause)
}

func (c *Client) capture(req Request) (*PendingRequest, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}
	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}
	if header.Get(HeaderRequestID) == "" {
		header.Set(HeaderRequestID, uuid.NewString())
	}
	var body []byte
	if req.Body != nil {
		if raw, ok := req.Body.([]byte); ok {
			body = raw
		} else if body, err = json.Marshal(req.Body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		header.Set("Content-Type", "application/json")
	}
	return &PendingRequest{
		Method:          method,
		URL:             target,
		Body:            body,
		Header:          header,
		SkipAuthRefresh: req.SkipAuthRefresh,
		bearerToken:     req.BearerToken,
	}, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		raw = c.baseURL + path
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse request url: %w", err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// dispatch sends p once, attaching whatever token is current right now.
func (c *Client) dispatch(ctx context.Context, p *PendingRequest) (*Response, error) {
	var body io.Reader
	if p.Body != nil {
		body = bytes.NewReader(p.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, p.Method, p.URL, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header = p.Header.Clone()
	token := p.bearerToken
	if token == "" && c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("api request failed", "method", p.Method, "url", p.URL, "request_id", p.Header.Get(HeaderRequestID), "error", err)
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	c.logger.Debug("api request",
		"method", p.Method,
		"url", p.URL,
		"status", resp.StatusCode,
		"request_id", p.Header.Get(HeaderRequestID),
	)
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}
