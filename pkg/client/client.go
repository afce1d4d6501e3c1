// Package client provides the HTTP client workflow steps use to talk to the
// server under test.
//
// The client resolves named routes to paths, carries cookies across requests
// so sessions survive a whole workflow, and never follows redirects so that
// redirect responses can be validated directly.
//
// Two transports are supported:
//
//   - A real network transport for servers reachable over HTTP.
//   - An in-process transport that dispatches requests straight to an
//     http.Handler, for testing servers without binding a port.
//
// # Usage
//
//	routes := route.NewRegistry().MustAdd("login", "/login")
//	c, err := client.New(routes, client.Config{Handler: mux})
//
//	resp, err := c.Do(ctx, client.Request{
//	    Method: http.MethodPost,
//	    Route:  "login",
//	    Form:   url.Values{"username": {"alice"}},
//	})
package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/miki725/subui/pkg/errors"
	"github.com/miki725/subui/pkg/httputil"
	"github.com/miki725/subui/pkg/observability"
	"github.com/miki725/subui/pkg/route"
)

// inProcessBaseURL is the synthetic base URL used when requests are
// dispatched to an in-process handler instead of a network server.
const inProcessBaseURL = "http://subui.local"

// Config configures a workflow client.
type Config struct {
	// BaseURL is the server base URL (scheme and host). Ignored when
	// Handler is set.
	BaseURL string

	// Handler, when set, receives all requests in-process without any
	// network traffic.
	Handler http.Handler

	// HTTPClient overrides the underlying HTTP client. Cookie jar and
	// redirect policy are still applied.
	HTTPClient *http.Client

	// Headers are added to every request.
	Headers map[string]string

	// FollowRedirects makes the client follow redirects instead of
	// returning the redirect response. Off by default so redirect
	// validators see the original response.
	FollowRedirects bool

	// Timeout is the per-request timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// RetryAttempts is the number of attempts for transient network
	// failures. Defaults to 1 (no retry).
	RetryAttempts int
}

// Client executes workflow requests against a server under test.
type Client struct {
	routes  *route.Registry
	http    *http.Client
	baseURL *url.URL
	headers map[string]string
	retries int
}

// New creates a workflow client. Either cfg.BaseURL or cfg.Handler must be
// provided.
func New(routes *route.Registry, cfg Config) (*Client, error) {
	if routes == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "route registry is required")
	}

	rawBase := cfg.BaseURL
	if cfg.Handler != nil {
		rawBase = inProcessBaseURL
	}
	if err := errors.ValidateBaseURL(rawBase); err != nil {
		return nil, err
	}
	baseURL, err := url.Parse(rawBase)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "cannot parse base URL %q", rawBase)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if hc.Timeout == 0 {
		hc.Timeout = cfg.Timeout
		if hc.Timeout == 0 {
			hc.Timeout = 30 * time.Second
		}
	}
	if cfg.Handler != nil {
		hc.Transport = &handlerTransport{handler: cfg.Handler}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot create cookie jar")
		}
		hc.Jar = jar
	}
	if !cfg.FollowRedirects {
		hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Client{
		routes:  routes,
		http:    hc,
		baseURL: baseURL,
		headers: cfg.Headers,
		retries: max(cfg.RetryAttempts, 1),
	}, nil
}

// Routes returns the client's route registry.
func (c *Client) Routes() *route.Registry {
	return c.routes
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Cookie returns the named cookie currently held in the client's jar for the
// server base URL, or nil. Useful for finding the session cookie when the
// response being inspected did not set one itself.
func (c *Client) Cookie(name string) *http.Cookie {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// Request describes one workflow request.
type Request struct {
	// Method is the HTTP method. Defaults to GET.
	Method string

	// Route is a named route to reverse into a path. Either Route or Path
	// must be set.
	Route string

	// URLParams fill the route pattern's placeholders.
	URLParams map[string]string

	// Path is a raw request path, used instead of Route when set.
	Path string

	// Query is appended to the request URL.
	Query url.Values

	// Form, when set, is sent urlencoded with the matching content type.
	Form url.Values

	// JSON, when set, is marshalled as the request body with a JSON
	// content type. Form takes precedence.
	JSON any

	// Headers are added to this request only.
	Headers map[string]string
}

// URL computes the absolute URL the request would be sent to.
func (c *Client) URL(req Request) (string, error) {
	path := req.Path
	if path == "" {
		var err error
		path, err = c.routes.Reverse(req.Route, req.URLParams)
		if err != nil {
			return "", err
		}
	}

	u := *c.baseURL
	u.Path = path
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u.String(), nil
}

// Do executes the request and reads the full response body.
// Transient network failures are retried; HTTP error statuses are not an
// error here, validators judge them.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target, err := c.URL(req)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "cannot build request for %q", target)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	observability.HTTP().OnRequest(ctx, method, httpReq.URL.Host, httpReq.URL.Path)

	var resp *Response
	start := time.Now()
	err = httputil.Retry(ctx, c.retries, 500*time.Millisecond, func() error {
		// Rewind the body for retried attempts.
		httpReq.Body = io.NopCloser(bytes.NewReader(body))

		httpResp, err := c.http.Do(httpReq)
		if err != nil {
			if isTransient(err) {
				return &httputil.RetryableError{Err: err}
			}
			return err
		}
		defer httpResp.Body.Close()

		raw, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return errors.Wrap(errors.ErrCodeNetwork, err, "cannot read response body")
		}

		resp = &Response{
			StatusCode:  httpResp.StatusCode,
			Status:      httpResp.Status,
			Header:      httpResp.Header,
			Body:        raw,
			Cookies:     httpResp.Cookies(),
			Duration:    time.Since(start),
			Request:     req,
			RequestBody: body,
			URL:         target,
		}
		return nil
	})
	if err != nil {
		observability.HTTP().OnError(ctx, method, httpReq.URL.Host, httpReq.URL.Path, err)
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "request to %q cancelled", target)
		}
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "request to %q failed", target)
	}

	observability.HTTP().OnResponse(ctx, method, httpReq.URL.Host, httpReq.URL.Path,
		resp.StatusCode, resp.Duration)
	return resp, nil
}

func encodeBody(req Request) (body []byte, contentType string, err error) {
	switch {
	case len(req.Form) > 0:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "cannot marshal JSON body")
		}
		return data, "application/json", nil
	default:
		return nil, "", nil
	}
}

// isTransient reports whether a request error is worth retrying.
func isTransient(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
