// Package validator provides response assertions for workflow steps.
//
// A validator inspects the response a step received and reports failures
// through a [Reporter], which *testing.T satisfies directly. Validators are
// attached to steps and run after each request:
//
//	step.Base{
//	    RouteName:  "login",
//	    Validators: []validator.Validator{
//	        validator.StatusOK(),
//	        validator.ContentContains("Welcome"),
//	    },
//	}
//
// Composite behavior is built with [Chain]: for example [Redirect] is a chain
// of a 302 status check and a Location header check, and [RedirectToRoute]
// adds route resolution on top.
//
// Validators also support configuration checking via Check, so a suite can
// fail fast on misconfigured validators before any request is made.
package validator

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/miki725/subui/pkg/client"
	"github.com/miki725/subui/pkg/errors"
	"github.com/miki725/subui/pkg/route"
	"github.com/miki725/subui/pkg/session"
)

// Reporter receives validation failures. *testing.T satisfies this interface,
// so validators plug directly into Go tests.
type Reporter interface {
	Errorf(format string, args ...any)
}

// Subject is the step under validation. It gives validators access to the
// response and to the shared infrastructure some assertions need.
type Subject interface {
	// Key is the step's key within its workflow.
	Key() string

	// Describe is a human-readable step description.
	Describe() string

	// URL is the absolute URL the step requested.
	URL() string

	// Response is the response being validated.
	Response() *client.Response

	// Routes is the route registry, for resolving redirect targets.
	Routes() *route.Registry

	// Sessions is the server's session store, for session assertions.
	// May be nil when no store is shared with the server.
	Sessions() session.Store

	// SessionID is the client's current session ID, from the response's
	// session cookie or the client cookie jar. Empty when no session
	// cookie has been seen.
	SessionID() string
}

// Validator asserts a single property of a step's response.
type Validator interface {
	// Check verifies the validator itself is correctly configured.
	Check() error

	// Validate runs the assertion, reporting failures to t.
	Validate(t Reporter, s Subject)
}

// subject formats the standard failure prefix identifying the step.
func subject(s Subject) string {
	return fmt.Sprintf("Response for {%s:%s} requesting %q", s.Key(), s.Describe(), s.URL())
}

// =============================================================================
// Recorder
// =============================================================================

// Recorder is a Reporter that collects failure messages. The runner uses one
// per step to build transcripts; tests can use it to assert on validator
// output.
type Recorder struct {
	Failures []string
}

func (r *Recorder) Errorf(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Err returns a VALIDATION_FAILED error summarizing the recorded failures,
// or nil when there are none.
func (r *Recorder) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeValidationFailed, "%s", strings.Join(r.Failures, "; "))
}

// tee duplicates failures to multiple reporters.
type tee []Reporter

func (t tee) Errorf(format string, args ...any) {
	for _, r := range t {
		if r != nil {
			r.Errorf(format, args...)
		}
	}
}

// Tee returns a Reporter that forwards failures to every given reporter.
// Nil reporters are skipped.
func Tee(reporters ...Reporter) Reporter {
	return tee(reporters)
}

// =============================================================================
// Chain
// =============================================================================

// Chain runs validators in order as a single validator.
type Chain []Validator

func (c Chain) Check() error {
	for _, v := range c {
		if err := v.Check(); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) Validate(t Reporter, s Subject) {
	for _, v := range c {
		v.Validate(t, s)
	}
}

// CheckAll verifies the configuration of every validator, returning the
// first error.
func CheckAll(validators []Validator) error {
	return Chain(validators).Check()
}

// =============================================================================
// Status code
// =============================================================================

// StatusCode asserts the response status code.
type StatusCode struct {
	// Expected is the required status code.
	Expected int
}

func (v *StatusCode) Check() error {
	if v.Expected == 0 {
		return errors.New(errors.ErrCodeInvalidValidator, "StatusCode requires an expected status code")
	}
	return nil
}

func (v *StatusCode) Validate(t Reporter, s Subject) {
	if got := s.Response().StatusCode; got != v.Expected {
		t.Errorf("%s returned with status code %d != %d", subject(s), got, v.Expected)
	}
}

// StatusOK asserts a 200 response.
func StatusOK() *StatusCode {
	return &StatusCode{Expected: http.StatusOK}
}

// =============================================================================
// Headers
// =============================================================================

// Header asserts a response header is present and, optionally, its value.
type Header struct {
	// Name is the header to check.
	Name string

	// Expected is the required header value.
	Expected string

	// Contains, when true, requires Expected to be a substring of the
	// header value instead of the full value.
	Contains bool

	// PresenceOnly skips the value check entirely.
	PresenceOnly bool
}

func (v *Header) Check() error {
	if v.Name == "" {
		return errors.New(errors.ErrCodeInvalidValidator, "Header requires a header name")
	}
	if !v.PresenceOnly && v.Expected == "" {
		return errors.New(errors.ErrCodeInvalidValidator,
			"Header %q requires an expected value unless PresenceOnly is set", v.Name)
	}
	return nil
}

func (v *Header) Validate(t Reporter, s Subject) {
	resp := s.Response()
	if !resp.HasHeader(v.Name) {
		t.Errorf("%s must contain %s header", subject(s), v.Name)
		return
	}
	if v.PresenceOnly {
		return
	}

	got := resp.HeaderValue(v.Name)
	if v.Contains {
		if !strings.Contains(got, v.Expected) {
			t.Errorf("%s returned header %s with value %s which does not contain %s",
				subject(s), v.Name, got, v.Expected)
		}
		return
	}
	if got != v.Expected {
		t.Errorf("%s returned header %s with value %s != %s", subject(s), v.Name, got, v.Expected)
	}
}

// ContentType asserts the Content-Type header contains the given value.
func ContentType(value string) *Header {
	return &Header{Name: "Content-Type", Expected: value, Contains: true}
}

// LocationPresent asserts the response carries a Location header.
func LocationPresent() *Header {
	return &Header{Name: "Location", PresenceOnly: true}
}

// =============================================================================
// Redirects
// =============================================================================

// Redirect asserts a 302 response with a Location header.
func Redirect() Chain {
	return Chain{
		&StatusCode{Expected: http.StatusFound},
		LocationPresent(),
	}
}

// RedirectToRoute asserts a 302 response redirecting to a named route.
// The Location value is resolved through the subject's route registry with
// its query string ignored.
type RedirectToRoute struct {
	// Route is the expected target route name.
	Route string
}

func (v *RedirectToRoute) Check() error {
	if v.Route == "" {
		return errors.New(errors.ErrCodeInvalidValidator, "RedirectToRoute requires a route name")
	}
	return nil
}

func (v *RedirectToRoute) Validate(t Reporter, s Subject) {
	rec := &Recorder{}
	Redirect().Validate(rec, s)
	if len(rec.Failures) > 0 {
		for _, f := range rec.Failures {
			t.Errorf("%s", f)
		}
		return
	}

	location := s.Response().Location()
	match, err := s.Routes().Resolve(location)
	if err != nil {
		t.Errorf("%s returned a redirect to %q which cannot be resolved", subject(s), location)
		return
	}
	if match.Name != v.Route {
		t.Errorf("%s returned redirect to route %s != %s", subject(s), match.Name, v.Route)
	}
}

// =============================================================================
// Content
// =============================================================================

// ContentContains asserts a 200 response whose body contains a substring.
type ContentContains struct {
	// Expected is the required substring.
	Expected string
}

func (v *ContentContains) Check() error {
	if v.Expected == "" {
		return errors.New(errors.ErrCodeInvalidValidator, "ContentContains requires expected content")
	}
	return nil
}

func (v *ContentContains) Validate(t Reporter, s Subject) {
	StatusOK().Validate(t, s)
	if !strings.Contains(s.Response().Text(), v.Expected) {
		t.Errorf("%s does not contain %q in its content", subject(s), v.Expected)
	}
}

// ContentNotContains asserts a 200 response whose body does not contain a
// substring.
type ContentNotContains struct {
	// Unexpected is the substring that must be absent.
	Unexpected string
}

func (v *ContentNotContains) Check() error {
	if v.Unexpected == "" {
		return errors.New(errors.ErrCodeInvalidValidator, "ContentNotContains requires unexpected content")
	}
	return nil
}

func (v *ContentNotContains) Validate(t Reporter, s Subject) {
	StatusOK().Validate(t, s)
	if strings.Contains(s.Response().Text(), v.Unexpected) {
		t.Errorf("UnexpectedContentFound: %s contains %q in its content", subject(s), v.Unexpected)
	}
}

// =============================================================================
// Session data
// =============================================================================

// SessionData asserts the server stored a key in the client's session.
// The session is located through the response's session cookie and loaded
// from the subject's session store.
//
// SecondaryKeys additionally require session[Key] to be a map whose listed
// keys are present and non-empty.
type SessionData struct {
	// Key is the required session key.
	Key string

	// SecondaryKeys are required non-empty keys inside session[Key].
	SecondaryKeys []string
}

func (v *SessionData) Check() error {
	if v.Key == "" {
		return errors.New(errors.ErrCodeInvalidValidator, "SessionData requires a session key")
	}
	return nil
}

func (v *SessionData) Validate(t Reporter, s Subject) {
	store := s.Sessions()
	if store == nil {
		t.Errorf("%s cannot be checked for session data without a session store", subject(s))
		return
	}

	id := s.SessionID()
	if id == "" {
		t.Errorf("%s does not have an associated session", subject(s))
		return
	}
	sess, err := store.Get(context.Background(), id)
	if err != nil || sess == nil {
		t.Errorf("%s does not have an associated session", subject(s))
		return
	}

	value, ok := sess.Values[v.Key]
	if !ok {
		t.Errorf("%s does not contain session[%q]", subject(s), v.Key)
		return
	}
	if len(v.SecondaryKeys) == 0 {
		return
	}

	nested, ok := value.(map[string]any)
	if !ok {
		t.Errorf("%s session[%q] is not a mapping so secondary keys cannot be checked",
			subject(s), v.Key)
		return
	}
	for _, key := range v.SecondaryKeys {
		inner, ok := nested[key]
		if !ok {
			t.Errorf("%s does not contain session[%q][%q]", subject(s), v.Key, key)
			continue
		}
		if inner == nil || inner == "" {
			t.Errorf("%s contains session[%q][%q] but it is empty", subject(s), v.Key, key)
		}
	}
}

// =============================================================================
// JSON fields
// =============================================================================

// JSONField asserts a field in a JSON response body. The path is dotted,
// e.g. "user.profile.email".
type JSONField struct {
	// Path is the dotted field path.
	Path string

	// Expected is the required field value. Only checked when CheckValue
	// is set.
	Expected any

	// CheckValue turns on the value comparison.
	CheckValue bool

	// SkipPresence makes a missing field acceptable. The null and value
	// checks still apply when the field exists.
	SkipPresence bool

	// AllowNull permits an explicit JSON null at the path.
	AllowNull bool
}

func (v *JSONField) Check() error {
	if v.Path == "" {
		return errors.New(errors.ErrCodeInvalidValidator, "JSONField requires a field path")
	}
	return nil
}

func (v *JSONField) Validate(t Reporter, s Subject) {
	var body map[string]any
	if err := s.Response().JSON(&body); err != nil {
		t.Errorf("%s does not contain a JSON object in its content", subject(s))
		return
	}

	value, found := lookupPath(body, v.Path)
	if !found {
		if !v.SkipPresence {
			t.Errorf("%s does not contain JSON field %q", subject(s), v.Path)
		}
		return
	}
	if value == nil && !v.AllowNull {
		t.Errorf("%s contains JSON field %q but it is null", subject(s), v.Path)
		return
	}
	if v.CheckValue && !equalJSON(value, v.Expected) {
		t.Errorf("%s returned JSON field %q with value %v != %v",
			subject(s), v.Path, value, v.Expected)
	}
}

// lookupPath walks a dotted path through nested JSON objects.
func lookupPath(body map[string]any, path string) (any, bool) {
	var value any = body
	for part := range strings.SplitSeq(path, ".") {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// equalJSON compares a decoded JSON value against an expectation, bridging
// the numeric types json.Unmarshal produces.
func equalJSON(got, want any) bool {
	if g, ok := got.(float64); ok {
		switch w := want.(type) {
		case int:
			return g == float64(w)
		case int64:
			return g == float64(w)
		case float64:
			return g == w
		}
	}
	return fmt.Sprintf("%v", got) == fmt.Sprintf("%v", want)
}
