package client

import (
	"net/http"
	"net/http/httptest"
)

// handlerTransport dispatches requests directly to an http.Handler without
// touching the network. Cookies, redirects, and bodies behave like a real
// round trip because the standard client machinery sits on top.
type handlerTransport struct {
	handler http.Handler
}

func (t *handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)

	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
