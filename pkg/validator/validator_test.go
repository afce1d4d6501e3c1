package validator

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/miki725/subui/pkg/client"
	"github.com/miki725/subui/pkg/route"
	"github.com/miki725/subui/pkg/session"
)

// fakeSubject is a minimal Subject for exercising validators directly.
type fakeSubject struct {
	key       string
	describe  string
	url       string
	resp      *client.Response
	routes    *route.Registry
	sessions  session.Store
	sessionID string
}

func (f *fakeSubject) Key() string                { return f.key }
func (f *fakeSubject) Describe() string           { return f.describe }
func (f *fakeSubject) URL() string                { return f.url }
func (f *fakeSubject) Response() *client.Response { return f.resp }
func (f *fakeSubject) Routes() *route.Registry    { return f.routes }
func (f *fakeSubject) Sessions() session.Store    { return f.sessions }
func (f *fakeSubject) SessionID() string          { return f.sessionID }

func newSubject(resp *client.Response) *fakeSubject {
	return &fakeSubject{
		key:      "0",
		describe: "login",
		url:      "http://subui.local/login",
		resp:     resp,
		routes: route.NewRegistry().
			MustAdd("home", "/").
			MustAdd("login", "/login").
			MustAdd("profile", "/users/{id}"),
	}
}

func response(status int, body string, headers map[string]string) *client.Response {
	h := make(http.Header)
	for k, v := range headers {
		h.Set(k, v)
	}
	return &client.Response{
		StatusCode: status,
		Header:     h,
		Body:       []byte(body),
	}
}

func assertFailures(t *testing.T, rec *Recorder, want int) {
	t.Helper()
	if len(rec.Failures) != want {
		t.Errorf("failures = %d, want %d: %v", len(rec.Failures), want, rec.Failures)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		expected int
		got      int
		failures int
	}{
		{"matching", 200, 200, 0},
		{"mismatched", 200, 404, 1},
		{"redirect expected", 302, 302, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			v := &StatusCode{Expected: tt.expected}
			v.Validate(rec, newSubject(response(tt.got, "", nil)))
			assertFailures(t, rec, tt.failures)
		})
	}
}

func TestStatusCodeCheck(t *testing.T) {
	if err := (&StatusCode{}).Check(); err == nil {
		t.Error("zero status code should fail Check")
	}
	if err := StatusOK().Check(); err != nil {
		t.Errorf("StatusOK Check: %v", err)
	}
}

func TestStatusCodeFailureMessage(t *testing.T) {
	rec := &Recorder{}
	StatusOK().Validate(rec, newSubject(response(404, "", nil)))
	want := `Response for {0:login} requesting "http://subui.local/login" returned with status code 404 != 200`
	if len(rec.Failures) != 1 || rec.Failures[0] != want {
		t.Errorf("failure = %v, want %q", rec.Failures, want)
	}
}

func TestHeader(t *testing.T) {
	tests := []struct {
		name     string
		v        *Header
		headers  map[string]string
		failures int
	}{
		{
			name:     "present with matching value",
			v:        &Header{Name: "X-Frame-Options", Expected: "DENY"},
			headers:  map[string]string{"X-Frame-Options": "DENY"},
			failures: 0,
		},
		{
			name:     "present with wrong value",
			v:        &Header{Name: "X-Frame-Options", Expected: "DENY"},
			headers:  map[string]string{"X-Frame-Options": "SAMEORIGIN"},
			failures: 1,
		},
		{
			name:     "missing",
			v:        &Header{Name: "X-Frame-Options", Expected: "DENY"},
			failures: 1,
		},
		{
			name:     "presence only",
			v:        &Header{Name: "Location", PresenceOnly: true},
			headers:  map[string]string{"Location": "/anywhere"},
			failures: 0,
		},
		{
			name:     "presence only with empty value",
			v:        &Header{Name: "X-Robots-Tag", PresenceOnly: true},
			headers:  map[string]string{"X-Robots-Tag": ""},
			failures: 0,
		},
		{
			name:     "contains match",
			v:        &Header{Name: "Content-Type", Expected: "text/html", Contains: true},
			headers:  map[string]string{"Content-Type": "text/html; charset=utf-8"},
			failures: 0,
		},
		{
			name:     "contains mismatch",
			v:        &Header{Name: "Content-Type", Expected: "application/json", Contains: true},
			headers:  map[string]string{"Content-Type": "text/html; charset=utf-8"},
			failures: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			tt.v.Validate(rec, newSubject(response(200, "", tt.headers)))
			assertFailures(t, rec, tt.failures)
		})
	}
}

func TestHeaderCheck(t *testing.T) {
	if err := (&Header{}).Check(); err == nil {
		t.Error("missing name should fail Check")
	}
	if err := (&Header{Name: "X-Foo"}).Check(); err == nil {
		t.Error("missing value without PresenceOnly should fail Check")
	}
	if err := (&Header{Name: "X-Foo", PresenceOnly: true}).Check(); err != nil {
		t.Errorf("PresenceOnly without value should pass Check: %v", err)
	}
}

func TestRedirect(t *testing.T) {
	tests := []struct {
		name     string
		resp     *client.Response
		failures int
	}{
		{
			name:     "valid redirect",
			resp:     response(302, "", map[string]string{"Location": "/"}),
			failures: 0,
		},
		{
			name:     "wrong status",
			resp:     response(200, "", map[string]string{"Location": "/"}),
			failures: 1,
		},
		{
			name:     "missing location",
			resp:     response(302, "", nil),
			failures: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			Redirect().Validate(rec, newSubject(tt.resp))
			assertFailures(t, rec, tt.failures)
		})
	}
}

func TestRedirectToRoute(t *testing.T) {
	tests := []struct {
		name     string
		route    string
		resp     *client.Response
		failures int
	}{
		{
			name:     "redirect to expected route",
			route:    "home",
			resp:     response(302, "", map[string]string{"Location": "/"}),
			failures: 0,
		},
		{
			name:     "query string is ignored",
			route:    "home",
			resp:     response(302, "", map[string]string{"Location": "/?next=/login"}),
			failures: 0,
		},
		{
			name:     "absolute location",
			route:    "profile",
			resp:     response(302, "", map[string]string{"Location": "http://subui.local/users/42"}),
			failures: 0,
		},
		{
			name:     "redirect to different route",
			route:    "home",
			resp:     response(302, "", map[string]string{"Location": "/login"}),
			failures: 1,
		},
		{
			name:     "unresolvable location",
			route:    "home",
			resp:     response(302, "", map[string]string{"Location": "/unknown/path"}),
			failures: 1,
		},
		{
			name:     "not a redirect",
			route:    "home",
			resp:     response(200, "", nil),
			failures: 2, // status and missing Location
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			v := &RedirectToRoute{Route: tt.route}
			v.Validate(rec, newSubject(tt.resp))
			assertFailures(t, rec, tt.failures)
		})
	}
}

func TestContentContains(t *testing.T) {
	tests := []struct {
		name     string
		resp     *client.Response
		expected string
		failures int
	}{
		{
			name:     "content present",
			resp:     response(200, "<h1>Welcome back</h1>", nil),
			expected: "Welcome",
			failures: 0,
		},
		{
			name:     "content missing",
			resp:     response(200, "<h1>Hello</h1>", nil),
			expected: "Welcome",
			failures: 1,
		},
		{
			name:     "non-200 also fails status check",
			resp:     response(404, "Welcome", nil),
			expected: "Welcome",
			failures: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			v := &ContentContains{Expected: tt.expected}
			v.Validate(rec, newSubject(tt.resp))
			assertFailures(t, rec, tt.failures)
		})
	}
}

func TestContentNotContains(t *testing.T) {
	rec := &Recorder{}
	v := &ContentNotContains{Unexpected: "error"}
	v.Validate(rec, newSubject(response(200, "all good", nil)))
	assertFailures(t, rec, 0)

	rec = &Recorder{}
	v.Validate(rec, newSubject(response(200, "an error occurred", nil)))
	assertFailures(t, rec, 1)
}

func TestContentNotContainsFailureMessage(t *testing.T) {
	rec := &Recorder{}
	v := &ContentNotContains{Unexpected: "error"}
	v.Validate(rec, newSubject(response(200, "an error occurred", nil)))
	want := `UnexpectedContentFound: Response for {0:login} requesting "http://subui.local/login" contains "error" in its content`
	if len(rec.Failures) != 1 || rec.Failures[0] != want {
		t.Errorf("failure = %v, want %q", rec.Failures, want)
	}
}

func TestSessionData(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	sess, _ := session.New(time.Hour)
	sess.Values["user_id"] = "42"
	sess.Values["checkout"] = map[string]any{
		"cart":   "abc",
		"empty":  "",
		"absent": nil,
	}
	store.Set(ctx, sess)

	tests := []struct {
		name     string
		v        *SessionData
		failures int
	}{
		{
			name:     "key present",
			v:        &SessionData{Key: "user_id"},
			failures: 0,
		},
		{
			name:     "key missing",
			v:        &SessionData{Key: "basket"},
			failures: 1,
		},
		{
			name:     "secondary keys present",
			v:        &SessionData{Key: "checkout", SecondaryKeys: []string{"cart"}},
			failures: 0,
		},
		{
			name:     "secondary key missing",
			v:        &SessionData{Key: "checkout", SecondaryKeys: []string{"missing"}},
			failures: 1,
		},
		{
			name:     "secondary key empty",
			v:        &SessionData{Key: "checkout", SecondaryKeys: []string{"empty"}},
			failures: 1,
		},
		{
			name:     "secondary key nil",
			v:        &SessionData{Key: "checkout", SecondaryKeys: []string{"absent"}},
			failures: 1,
		},
		{
			name:     "value not a mapping",
			v:        &SessionData{Key: "user_id", SecondaryKeys: []string{"x"}},
			failures: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			s := newSubject(response(200, "", nil))
			s.sessions = store
			s.sessionID = sess.ID
			tt.v.Validate(rec, s)
			assertFailures(t, rec, tt.failures)
		})
	}
}

func TestSessionDataWithoutSession(t *testing.T) {
	rec := &Recorder{}
	v := &SessionData{Key: "user_id"}

	// No store at all.
	v.Validate(rec, newSubject(response(200, "", nil)))
	assertFailures(t, rec, 1)

	// Store but no session cookie ever seen.
	rec = &Recorder{}
	s := newSubject(response(200, "", nil))
	s.sessions = session.NewMemoryStore()
	v.Validate(rec, s)
	assertFailures(t, rec, 1)
}

func TestJSONField(t *testing.T) {
	body := `{"user":{"name":"alice","age":30,"email":null},"ok":true}`

	tests := []struct {
		name     string
		v        *JSONField
		failures int
	}{
		{
			name:     "present",
			v:        &JSONField{Path: "user.name"},
			failures: 0,
		},
		{
			name:     "missing",
			v:        &JSONField{Path: "user.phone"},
			failures: 1,
		},
		{
			name:     "value match",
			v:        &JSONField{Path: "user.name", Expected: "alice", CheckValue: true},
			failures: 0,
		},
		{
			name:     "numeric value match",
			v:        &JSONField{Path: "user.age", Expected: 30, CheckValue: true},
			failures: 0,
		},
		{
			name:     "value mismatch",
			v:        &JSONField{Path: "user.name", Expected: "bob", CheckValue: true},
			failures: 1,
		},
		{
			name:     "null rejected by default",
			v:        &JSONField{Path: "user.email"},
			failures: 1,
		},
		{
			name:     "null allowed",
			v:        &JSONField{Path: "user.email", AllowNull: true},
			failures: 0,
		},
		{
			name:     "presence skipped and absent",
			v:        &JSONField{Path: "user.token", SkipPresence: true},
			failures: 0,
		},
		{
			name:     "presence skipped and present",
			v:        &JSONField{Path: "user.name", SkipPresence: true},
			failures: 0,
		},
		{
			name:     "presence skipped still checks value",
			v:        &JSONField{Path: "user.name", Expected: "bob", CheckValue: true, SkipPresence: true},
			failures: 1,
		},
		{
			name:     "presence skipped with absent field checks nothing",
			v:        &JSONField{Path: "user.token", Expected: "t0k3n", CheckValue: true, SkipPresence: true},
			failures: 0,
		},
		{
			name:     "presence skipped still rejects null",
			v:        &JSONField{Path: "user.email", SkipPresence: true},
			failures: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			tt.v.Validate(rec, newSubject(response(200, body, nil)))
			assertFailures(t, rec, tt.failures)
		})
	}
}

func TestJSONFieldCheck(t *testing.T) {
	if err := (&JSONField{}).Check(); err == nil {
		t.Error("missing path should fail Check")
	}
	if err := (&JSONField{Path: "a", SkipPresence: true, CheckValue: true}).Check(); err != nil {
		t.Errorf("SkipPresence with CheckValue should be valid: %v", err)
	}
}

func TestChain(t *testing.T) {
	rec := &Recorder{}
	c := Chain{
		StatusOK(),
		&ContentContains{Expected: "hello"},
	}
	c.Validate(rec, newSubject(response(404, "", nil)))
	// Status check fails once in StatusOK and once inside ContentContains,
	// plus the content failure itself.
	if len(rec.Failures) != 3 {
		t.Errorf("failures = %d, want 3: %v", len(rec.Failures), rec.Failures)
	}
}

func TestCheckAll(t *testing.T) {
	err := CheckAll([]Validator{StatusOK(), &Header{}})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !strings.Contains(err.Error(), "header name") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecorderErr(t *testing.T) {
	rec := &Recorder{}
	if rec.Err() != nil {
		t.Error("empty recorder should have nil Err")
	}
	rec.Errorf("boom %d", 1)
	if rec.Err() == nil {
		t.Error("recorder with failures should have non-nil Err")
	}
}

func TestTee(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	r := Tee(a, nil, b)
	r.Errorf("fail")
	if len(a.Failures) != 1 || len(b.Failures) != 1 {
		t.Errorf("tee did not fan out: %v / %v", a.Failures, b.Failures)
	}
}
