package route

import (
	"testing"

	"github.com/miki725/subui/pkg/errors"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	for name, pattern := range map[string]string{
		"login":   "/login",
		"list":    "/todos",
		"profile": "/users/{id}",
		"article": "/articles/{year:[0-9][0-9][0-9][0-9]}/{slug}",
	} {
		if err := reg.Add(name, pattern); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}
	return reg
}

func TestAddRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Add("login", "/login"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := reg.Add("login", "/other")
	if err == nil {
		t.Fatal("duplicate route name should be rejected")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error code = %v, want INVALID_INPUT", errors.GetCode(err))
	}
}

func TestAddRejectsInvalidPattern(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Add("bad", "no-slash"); err == nil {
		t.Error("pattern without leading slash should be rejected")
	}
	if err := reg.Add("bad", "/users/{id"); err == nil {
		t.Error("unbalanced braces should be rejected")
	}
}

func TestReverse(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		name    string
		route   string
		params  map[string]string
		want    string
		wantErr errors.Code
	}{
		{"static route", "login", nil, "/login", ""},
		{"one param", "profile", map[string]string{"id": "42"}, "/users/42", ""},
		{
			"params with regex",
			"article",
			map[string]string{"year": "2015", "slug": "hello-world"},
			"/articles/2015/hello-world",
			"",
		},
		{"unknown route", "missing", nil, "", errors.ErrCodeRouteNotFound},
		{"missing param", "profile", nil, "", errors.ErrCodeInvalidInput},
		{
			"param fails regex",
			"article",
			map[string]string{"year": "15", "slug": "x"},
			"",
			errors.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Reverse(tt.route, tt.params)
			if tt.wantErr != "" {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Reverse() error = %v, want code %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Reverse() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Reverse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		name       string
		path       string
		wantRoute  string
		wantParams map[string]string
		wantErr    bool
	}{
		{"static route", "/login", "login", map[string]string{}, false},
		{"with param", "/users/42", "profile", map[string]string{"id": "42"}, false},
		{
			"query string stripped",
			"/users/42?tab=posts&page=2",
			"profile",
			map[string]string{"id": "42"},
			false,
		},
		{
			"absolute url",
			"http://testserver/users/7#frag",
			"profile",
			map[string]string{"id": "7"},
			false,
		},
		{
			"regex constrained",
			"/articles/2015/first-post",
			"article",
			map[string]string{"year": "2015", "slug": "first-post"},
			false,
		},
		{"no match", "/nope", "", nil, true},
		{"regex mismatch", "/articles/15/first-post", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := reg.Resolve(tt.path)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeRouteNotResolved) {
					t.Fatalf("Resolve() error = %v, want ROUTE_NOT_RESOLVED", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if m.Name != tt.wantRoute {
				t.Errorf("Resolve().Name = %q, want %q", m.Name, tt.wantRoute)
			}
			if len(m.Params) != len(tt.wantParams) {
				t.Fatalf("Resolve().Params = %v, want %v", m.Params, tt.wantParams)
			}
			for k, v := range tt.wantParams {
				if m.Params[k] != v {
					t.Errorf("Resolve().Params[%s] = %q, want %q", k, m.Params[k], v)
				}
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)

	path, err := reg.Reverse("profile", map[string]string{"id": "99"})
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	m, err := reg.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m.Name != "profile" || m.Params["id"] != "99" {
		t.Errorf("round trip lost information: %+v", m)
	}
}

func TestNames(t *testing.T) {
	reg := newTestRegistry(t)
	names := reg.Names()
	want := []string{"article", "list", "login", "profile"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if reg.Len() != 4 {
		t.Errorf("Len() = %d, want 4", reg.Len())
	}
}
