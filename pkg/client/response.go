package client

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/miki725/subui/pkg/errors"
)

// Response is a fully-read HTTP response from the server under test.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the full status line, e.g. "200 OK".
	Status string

	// Header holds the response headers.
	Header http.Header

	// Body is the full response body.
	Body []byte

	// Cookies are the cookies the server set on this response.
	Cookies []*http.Cookie

	// Duration is how long the request took, retries included.
	Duration time.Duration

	// Request is the workflow request that produced this response.
	Request Request

	// RequestBody is the encoded body that was sent, form or JSON.
	RequestBody []byte

	// URL is the absolute URL the request was sent to.
	URL string
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "response body is not valid JSON")
	}
	return nil
}

// HeaderValue returns the first value of a response header.
func (r *Response) HeaderValue(name string) string {
	return r.Header.Get(name)
}

// HasHeader reports whether the response carries the named header. A header
// set to an empty value still counts as present.
func (r *Response) HasHeader(name string) bool {
	return len(r.Header.Values(name)) > 0
}

// Cookie returns the named response cookie, or nil.
func (r *Response) Cookie(name string) *http.Cookie {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// IsRedirect reports whether the status code is a redirect (3xx).
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// Location returns the Location header value.
func (r *Response) Location() string {
	return r.Header.Get("Location")
}
