package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/miki725/subui/pkg/route"
	"github.com/miki725/subui/pkg/session"
)

func testRoutes(t *testing.T) *route.Registry {
	t.Helper()
	return route.NewRegistry().
		MustAdd("home", "/").
		MustAdd("login", "/login").
		MustAdd("profile", "/users/{id}")
}

func testServer(store session.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(session.Middleware(store))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("welcome"))
	})
	r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		sess := session.FromContext(r.Context())
		sess.Values["user"] = r.PostFormValue("username")
		http.Redirect(w, r, "/", http.StatusFound)
	})
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if sess.Values["user"] == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"` + chi.URLParam(r, "id") + `"}`))
	})
	return r
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(testRoutes(t), Config{Handler: testServer(session.NewMemoryStore())})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, Config{BaseURL: "http://localhost"}); err == nil {
		t.Error("nil registry should be rejected")
	}
	if _, err := New(testRoutes(t), Config{}); err == nil {
		t.Error("missing base URL and handler should be rejected")
	}
	if _, err := New(testRoutes(t), Config{BaseURL: "ftp://host"}); err == nil {
		t.Error("non-http base URL should be rejected")
	}
}

func TestURL(t *testing.T) {
	c := newTestClient(t)

	tests := []struct {
		name    string
		req     Request
		want    string
		wantErr bool
	}{
		{
			name: "named route",
			req:  Request{Route: "login"},
			want: "http://subui.local/login",
		},
		{
			name: "route with params",
			req:  Request{Route: "profile", URLParams: map[string]string{"id": "42"}},
			want: "http://subui.local/users/42",
		},
		{
			name: "raw path wins over route",
			req:  Request{Route: "login", Path: "/custom"},
			want: "http://subui.local/custom",
		},
		{
			name: "query string",
			req:  Request{Route: "home", Query: url.Values{"page": {"2"}}},
			want: "http://subui.local/?page=2",
		},
		{
			name:    "unknown route",
			req:     Request{Route: "nope"},
			wantErr: true,
		},
		{
			name:    "missing url param",
			req:     Request{Route: "profile"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.URL(tt.req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("URL: %v", err)
			}
			if got != tt.want {
				t.Errorf("URL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDoInProcess(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	resp, err := c.Do(ctx, Request{Route: "home"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Text() != "welcome" {
		t.Errorf("body = %q, want %q", resp.Text(), "welcome")
	}
}

func TestDoDoesNotFollowRedirects(t *testing.T) {
	c := newTestClient(t)

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Route:  "login",
		Form:   url.Values{"username": {"alice"}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !resp.IsRedirect() {
		t.Fatalf("status = %d, want a redirect", resp.StatusCode)
	}
	if resp.Location() != "/" {
		t.Errorf("Location = %q, want %q", resp.Location(), "/")
	}
}

func TestDoCarriesCookiesAcrossRequests(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	// Unauthenticated profile request bounces to login.
	resp, err := c.Do(ctx, Request{Route: "profile", URLParams: map[string]string{"id": "42"}})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusFound || resp.Location() != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", resp.StatusCode, resp.Location())
	}

	if _, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Route:  "login",
		Form:   url.Values{"username": {"alice"}},
	}); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Session cookie from login makes the profile request succeed.
	resp, err = c.Do(ctx, Request{Route: "profile", URLParams: map[string]string{"id": "42"}})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := resp.JSON(&body); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if body.ID != "42" {
		t.Errorf("id = %q, want %q", body.ID, "42")
	}
}

func TestDoJSONBody(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
	})

	c, err := New(route.NewRegistry().MustAdd("api", "/api"), Config{Handler: handler})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Route:  "api",
		JSON:   map[string]any{"name": "alice"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if string(gotBody) != `{"name":"alice"}` {
		t.Errorf("body = %q", gotBody)
	}
	if string(resp.RequestBody) != `{"name":"alice"}` {
		t.Errorf("RequestBody = %q, want the encoded JSON body", resp.RequestBody)
	}
}

func TestDoDefaultHeaders(t *testing.T) {
	var got string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Requested-With")
	})

	c, err := New(route.NewRegistry().MustAdd("home", "/"), Config{
		Handler: handler,
		Headers: map[string]string{"X-Requested-With": "XMLHttpRequest"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := c.Do(context.Background(), Request{Route: "home"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "XMLHttpRequest" {
		t.Errorf("header = %q, want XMLHttpRequest", got)
	}
}
