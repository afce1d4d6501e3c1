// Package route provides a named route registry for workflow servers.
//
// Steps address server endpoints by route name rather than raw path, so a
// suite stays valid when URLs change. The registry supports both directions:
//
//   - Reverse: route name + parameters → request path
//   - Resolve: response path (e.g. a redirect Location) → route name + parameters
//
// Patterns use chi syntax. Placeholders are written as {name} or
// {name:regex}:
//
//	reg := route.NewRegistry()
//	reg.MustAdd("login", "/login")
//	reg.MustAdd("profile", "/users/{id}")
//
//	path, _ := reg.Reverse("profile", map[string]string{"id": "42"}) // "/users/42"
//	m, _ := reg.Resolve("/users/42?tab=posts")                       // name "profile", id "42"
//
// Resolution strips scheme, host, query, and fragment before matching, so
// absolute redirect URLs can be passed directly.
package route

import (
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/miki725/subui/pkg/errors"
)

var placeholderRE = regexp.MustCompile(`\{([^{}]+)\}`)

// Match describes a resolved path.
type Match struct {
	// Name is the route name the path matched.
	Name string

	// Pattern is the registered chi pattern.
	Pattern string

	// Params holds the URL parameter values extracted from the path.
	Params map[string]string
}

// Registry maps route names to URL patterns.
//
// A Registry is safe for concurrent reads after all routes are registered.
// Registration is not goroutine-safe; add all routes during setup.
type Registry struct {
	mux      *chi.Mux
	patterns map[string]string // name -> pattern
	names    map[string]string // pattern -> name
}

// NewRegistry creates an empty route registry.
func NewRegistry() *Registry {
	return &Registry{
		mux:      chi.NewRouter(),
		patterns: make(map[string]string),
		names:    make(map[string]string),
	}
}

// Add registers a route name for a chi-style pattern.
// Duplicate names and invalid patterns are rejected.
func (r *Registry) Add(name, pattern string) error {
	if name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "route name cannot be empty")
	}
	if _, exists := r.patterns[name]; exists {
		return errors.New(errors.ErrCodeInvalidInput, "route %q is already registered", name)
	}
	if err := errors.ValidateRoutePattern(pattern); err != nil {
		return err
	}

	r.mux.Handle(pattern, http.NotFoundHandler())
	r.patterns[name] = pattern
	r.names[pattern] = name
	return nil
}

// MustAdd registers a route and panics on error. It returns the registry so
// registrations can be chained during setup.
func (r *Registry) MustAdd(name, pattern string) *Registry {
	if err := r.Add(name, pattern); err != nil {
		panic(err)
	}
	return r
}

// Pattern returns the registered pattern for a route name.
func (r *Registry) Pattern(name string) (string, bool) {
	p, ok := r.patterns[name]
	return p, ok
}

// Names returns all registered route names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.patterns))
	for name := range r.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	return len(r.patterns)
}

// Reverse computes the path for a route name by filling pattern placeholders
// from params. Placeholder regex constraints ({id:[0-9]+}) are checked against
// the provided values.
func (r *Registry) Reverse(name string, params map[string]string) (string, error) {
	pattern, ok := r.patterns[name]
	if !ok {
		return "", errors.New(errors.ErrCodeRouteNotFound, "no route named %q", name)
	}

	var reverseErr error
	path := placeholderRE.ReplaceAllStringFunc(pattern, func(ph string) string {
		inner := ph[1 : len(ph)-1]
		key, expr, hasExpr := strings.Cut(inner, ":")

		value, ok := params[key]
		if !ok {
			if reverseErr == nil {
				reverseErr = errors.New(errors.ErrCodeInvalidInput,
					"route %q requires URL parameter %q", name, key)
			}
			return ph
		}
		if hasExpr {
			re, err := regexp.Compile("^" + expr + "$")
			if err == nil && !re.MatchString(value) {
				if reverseErr == nil {
					reverseErr = errors.New(errors.ErrCodeInvalidInput,
						"route %q parameter %q=%q does not match %q", name, key, value, expr)
				}
				return ph
			}
		}
		return value
	})
	if reverseErr != nil {
		return "", reverseErr
	}
	return path, nil
}

// Resolve matches a URL against the registered patterns and returns the
// route it belongs to. The scheme, host, query string, and fragment are
// stripped first, so redirect Location values can be resolved directly.
func (r *Registry) Resolve(rawURL string) (*Match, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRouteNotResolved, err, "cannot parse %q", rawURL)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	rctx := chi.NewRouteContext()
	if !r.mux.Match(rctx, http.MethodGet, path) {
		return nil, errors.New(errors.ErrCodeRouteNotResolved, "no route matches %q", path)
	}

	pattern := rctx.RoutePattern()
	name, ok := r.names[pattern]
	if !ok {
		return nil, errors.New(errors.ErrCodeRouteNotResolved, "no route matches %q", path)
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}

	return &Match{Name: name, Pattern: pattern, Params: params}, nil
}
