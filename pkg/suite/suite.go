// Package suite loads workflow definitions from TOML files and builds
// runnable workflows out of them.
//
// A suite file declares the server's named routes, the ordered steps, and
// each step's validators:
//
//	name = "checkout"
//	base_url = "http://localhost:8000"
//
//	[routes]
//	home = "/"
//	login = "/login"
//
//	[[steps]]
//	key = "login"
//	route = "login"
//	data = { username = "alice", password = "secret" }
//
//	  [[steps.validators]]
//	  type = "redirect_to_route"
//	  route = "home"
//
// Suites cover the declarative subset of workflows; steps that need hooks or
// computed data are assembled in Go directly against pkg/step.
package suite

import (
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/miki725/subui/pkg/client"
	"github.com/miki725/subui/pkg/errors"
	"github.com/miki725/subui/pkg/report"
	"github.com/miki725/subui/pkg/route"
	"github.com/miki725/subui/pkg/runner"
	"github.com/miki725/subui/pkg/session"
	"github.com/miki725/subui/pkg/step"
	"github.com/miki725/subui/pkg/validator"
)

// Definition is a parsed suite file.
type Definition struct {
	// Name identifies the suite in transcripts and logs.
	Name string `toml:"name"`

	// BaseURL is the server under test.
	BaseURL string `toml:"base_url"`

	// Routes maps route names to chi-style patterns.
	Routes map[string]string `toml:"routes"`

	// Steps run in file order.
	Steps []StepDef `toml:"steps"`
}

// StepDef declares one workflow step.
type StepDef struct {
	// Key identifies the step. Defaults to its position.
	Key string `toml:"key"`

	// Name describes the step in failure messages. Defaults to the route.
	Name string `toml:"name"`

	// Route is the named route to request.
	Route string `toml:"route"`

	// Method is the HTTP method. Defaults to POST.
	Method string `toml:"method"`

	// URLParams fill the route pattern's placeholders.
	URLParams map[string]string `toml:"url_params"`

	// StatefulURL reads URL parameters from run state instead of
	// URLParams, falling back to URLParams when the state has none.
	StatefulURL bool `toml:"stateful_url"`

	// Data is sent as an urlencoded form body.
	Data map[string]string `toml:"data"`

	// JSON is sent as a JSON body instead of Data.
	JSON map[string]any `toml:"json"`

	// Query is appended to the request URL.
	Query map[string]string `toml:"query"`

	// Headers are added to the request.
	Headers map[string]string `toml:"headers"`

	// Validators run against the response.
	Validators []ValidatorDef `toml:"validators"`
}

// ValidatorDef declares one validator. Type selects the validator and the
// remaining fields configure it.
type ValidatorDef struct {
	// Type is one of: status, status_ok, header, content_type, location,
	// redirect, redirect_to_route, contains, not_contains, session,
	// json_field.
	Type string `toml:"type"`

	// Status for type "status".
	Status int `toml:"status"`

	// Header fields for types "header" and "content_type".
	Header       string `toml:"header"`
	Value        string `toml:"value"`
	Contains     bool   `toml:"contains"`
	PresenceOnly bool   `toml:"presence_only"`

	// Route for type "redirect_to_route".
	Route string `toml:"route"`

	// Content for types "contains" and "not_contains".
	Content string `toml:"content"`

	// Session fields for type "session".
	Key           string   `toml:"key"`
	SecondaryKeys []string `toml:"secondary_keys"`

	// JSON field checks for type "json_field".
	Path         string `toml:"path"`
	Expected     any    `toml:"expected"`
	CheckValue   bool   `toml:"check_value"`
	SkipPresence bool   `toml:"skip_presence"`
	AllowNull    bool   `toml:"allow_null"`
}

// Load parses and validates a suite definition.
func Load(data []byte) (*Definition, error) {
	var def Definition
	if err := toml.Unmarshal(data, &def); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSuite, err, "cannot parse suite")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads and parses a suite definition file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSuite, err, "cannot read suite file %q", path)
	}
	return Load(data)
}

// Validate checks the definition for structural problems: missing routes,
// bad step keys, unknown validator types.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.New(errors.ErrCodeInvalidSuite, "suite requires a name")
	}
	if len(d.Routes) == 0 {
		return errors.New(errors.ErrCodeInvalidSuite, "suite %q declares no routes", d.Name)
	}
	if len(d.Steps) == 0 {
		return errors.New(errors.ErrCodeInvalidSuite, "suite %q declares no steps", d.Name)
	}
	for name, pattern := range d.Routes {
		if err := errors.ValidateRoutePattern(pattern); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidSuite, err, "route %q", name)
		}
	}

	seen := make(map[string]bool, len(d.Steps))
	for i, s := range d.Steps {
		key := s.EffectiveKey(i)
		if err := errors.ValidateStepKey(key); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidSuite, err, "step %d", i)
		}
		if seen[key] {
			return errors.New(errors.ErrCodeInvalidSuite, "duplicate step key %q", key)
		}
		seen[key] = true

		if s.Route == "" {
			return errors.New(errors.ErrCodeInvalidSuite, "step %q requires a route", key)
		}
		if _, ok := d.Routes[s.Route]; !ok {
			return errors.New(errors.ErrCodeInvalidSuite,
				"step %q references unknown route %q", key, s.Route)
		}
		for _, v := range s.Validators {
			built, err := buildValidator(v)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidSuite, err, "step %q", key)
			}
			if err := built.Check(); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidSuite, err, "step %q", key)
			}
		}
	}
	return nil
}

// EffectiveKey returns the step's key, defaulting to its position.
func (s StepDef) EffectiveKey(index int) string {
	if s.Key != "" {
		return s.Key
	}
	return strconv.Itoa(index)
}

// EffectiveName returns the step's display name, defaulting to its route.
func (s StepDef) EffectiveName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Route
}

// BuildConfig configures suite assembly.
type BuildConfig struct {
	// BaseURL overrides the suite's base URL.
	BaseURL string

	// Handler, when set, runs the workflow against an in-process handler
	// instead of the network.
	Handler http.Handler

	// Sessions is the server's session store, shared for session
	// validators. May be nil.
	Sessions session.Store

	// Logger receives run progress.
	Logger *log.Logger

	// Recorder builds the run transcript.
	Recorder *report.Recorder
}

// Build assembles a runnable workflow from the definition.
func (d *Definition) Build(cfg BuildConfig) (*runner.Runner, error) {
	routes := route.NewRegistry()
	for name, pattern := range d.Routes {
		if err := routes.Add(name, pattern); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSuite, err, "suite %q", d.Name)
		}
	}

	baseURL := d.BaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	c, err := client.New(routes, client.Config{BaseURL: baseURL, Handler: cfg.Handler})
	if err != nil {
		return nil, err
	}

	seq := make(step.Sequence, 0, len(d.Steps))
	for i, sd := range d.Steps {
		s, err := buildStep(sd)
		if err != nil {
			return nil, err
		}
		seq = append(seq, step.Entry{Key: sd.EffectiveKey(i), Step: s})
	}

	return runner.NewKeyed(c, seq, runner.Config{
		Suite:    d.Name,
		Sessions: cfg.Sessions,
		Logger:   cfg.Logger,
		Recorder: cfg.Recorder,
	})
}

func buildStep(sd StepDef) (*step.Base, error) {
	s := &step.Base{
		RouteName: sd.Route,
		Name:      sd.EffectiveName(),
		Method:    sd.Method,
		URLParams: sd.URLParams,
		Headers:   sd.Headers,
	}
	if sd.StatefulURL {
		s.URLParamsFunc = step.StatefulURLParams()
	}
	if len(sd.Data) > 0 {
		s.Data = toValues(sd.Data)
	}
	if len(sd.JSON) > 0 {
		s.JSON = sd.JSON
	}
	if len(sd.Query) > 0 {
		s.Query = toValues(sd.Query)
	}
	for _, vd := range sd.Validators {
		v, err := buildValidator(vd)
		if err != nil {
			return nil, err
		}
		s.Validators = append(s.Validators, v)
	}
	return s, nil
}

func buildValidator(vd ValidatorDef) (validator.Validator, error) {
	switch vd.Type {
	case "status":
		return &validator.StatusCode{Expected: vd.Status}, nil
	case "status_ok":
		return validator.StatusOK(), nil
	case "header":
		return &validator.Header{
			Name:         vd.Header,
			Expected:     vd.Value,
			Contains:     vd.Contains,
			PresenceOnly: vd.PresenceOnly,
		}, nil
	case "content_type":
		return validator.ContentType(vd.Value), nil
	case "location":
		return validator.LocationPresent(), nil
	case "redirect":
		return validator.Redirect(), nil
	case "redirect_to_route":
		return &validator.RedirectToRoute{Route: vd.Route}, nil
	case "contains":
		return &validator.ContentContains{Expected: vd.Content}, nil
	case "not_contains":
		return &validator.ContentNotContains{Unexpected: vd.Content}, nil
	case "session":
		return &validator.SessionData{Key: vd.Key, SecondaryKeys: vd.SecondaryKeys}, nil
	case "json_field":
		return &validator.JSONField{
			Path:         vd.Path,
			Expected:     vd.Expected,
			CheckValue:   vd.CheckValue,
			SkipPresence: vd.SkipPresence,
			AllowNull:    vd.AllowNull,
		}, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidSuite, "unknown validator type %q", vd.Type)
	}
}

func toValues(m map[string]string) url.Values {
	values := make(url.Values, len(m))
	for k, v := range m {
		values.Set(k, v)
	}
	return values
}
