// Package step defines the unit of work in a workflow run.
//
// A step makes one request to the server under test and validates the
// response. Steps run in order and share state through the run's state
// context, so later steps can react to what earlier steps produced.
//
// [Base] covers most needs declaratively:
//
//	&step.Base{
//	    Name:      "login",
//	    RouteName: "login",
//	    Data:      url.Values{"username": {"alice"}},
//	    Validators: []validator.Validator{
//	        validator.StatusOK(),
//	    },
//	}
//
// Behavior is customized through the On* hook fields rather than embedding;
// each hook receives the bound step and can inspect state, rewrite request
// data, or stash values for later steps.
package step

import (
	"context"
	"net/http"
	"net/url"

	"github.com/miki725/subui/pkg/client"
	"github.com/miki725/subui/pkg/errors"
	"github.com/miki725/subui/pkg/route"
	"github.com/miki725/subui/pkg/session"
	"github.com/miki725/subui/pkg/state"
	"github.com/miki725/subui/pkg/validator"
)

// KeyURLParams is the state key [StatefulURLParams] reads URL parameters from.
const KeyURLParams = "url_params"

// Step is one unit of a workflow run.
type Step interface {
	// Init binds the step to its run before the request is made.
	Init(b Binding)

	// Request performs the step's HTTP request.
	Request(ctx context.Context) (*client.Response, error)

	// Validate runs the step's validators against the response.
	Validate(t validator.Reporter)
}

// Entry pairs a step with its key in the run.
type Entry struct {
	Key  string
	Step Step
}

// Sequence is an ordered list of keyed steps.
type Sequence []Entry

// Get returns the step with the given key.
func (s Sequence) Get(key string) (Step, bool) {
	for _, e := range s {
		if e.Key == key {
			return e.Step, true
		}
	}
	return nil, false
}

// At returns the entry at position i.
func (s Sequence) At(i int) Entry {
	return s[i]
}

// Index returns the position of the given key, or -1.
func (s Sequence) Index(key string) int {
	for i, e := range s {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// Keys returns the step keys in run order.
func (s Sequence) Keys() []string {
	keys := make([]string, len(s))
	for i, e := range s {
		keys[i] = e.Key
	}
	return keys
}

// Binding carries everything a step needs from its run.
type Binding struct {
	// Client sends the step's requests.
	Client *client.Client

	// Steps is the full run sequence, for navigating between steps.
	Steps Sequence

	// Index is this step's position in the sequence.
	Index int

	// Key is this step's key.
	Key string

	// State is the run's shared state context.
	State *state.Context

	// Routes is the route registry.
	Routes *route.Registry

	// Sessions is the server's session store, when shared. May be nil.
	Sessions session.Store
}

// Base is a declarative step. The zero value is not usable; at minimum
// RouteName must be set.
type Base struct {
	// RouteName is the named route to request.
	RouteName string

	// Name describes the step in failure messages. Defaults to RouteName.
	Name string

	// URLParams fill the route pattern's placeholders.
	URLParams map[string]string

	// Method is the HTTP method. Defaults to POST.
	Method string

	// Data is sent as an urlencoded form body.
	Data url.Values

	// JSON, when set, is sent as a JSON body instead of Data.
	JSON any

	// Query is appended to the request URL.
	Query url.Values

	// Headers are added to the request.
	Headers map[string]string

	// Validators run against the response.
	Validators []validator.Validator

	// URLParamsFunc, when set, computes the URL parameters at request
	// time instead of URLParams.
	URLParamsFunc func(b *Base) map[string]string

	// Hooks, run in order around the request/validate cycle.
	OnPreRequest   func(b *Base)
	OnPostRequest  func(b *Base)
	OnPreValidate  func(b *Base)
	OnPostValidate func(b *Base)

	binding  Binding
	response *client.Response
}

var _ Step = (*Base)(nil)
var _ validator.Subject = (*Base)(nil)

// Init stores the run binding. Runners call this before Request.
func (b *Base) Init(binding Binding) {
	b.binding = binding
	b.response = nil
}

// Binding returns the step's run binding. Valid after Init.
func (b *Base) Binding() Binding {
	return b.binding
}

// State returns the run's shared state context.
func (b *Base) State() *state.Context {
	return b.binding.State
}

// Key returns the step's key within the run.
func (b *Base) Key() string {
	return b.binding.Key
}

// Describe returns the step name for failure messages.
func (b *Base) Describe() string {
	if b.Name != "" {
		return b.Name
	}
	return b.RouteName
}

// Routes returns the run's route registry.
func (b *Base) Routes() *route.Registry {
	return b.binding.Routes
}

// Sessions returns the run's shared session store, or nil.
func (b *Base) Sessions() session.Store {
	return b.binding.Sessions
}

// Response returns the response of the last Request call.
func (b *Base) Response() *client.Response {
	return b.response
}

// SessionID returns the session ID from the response cookie, falling back to
// the client's cookie jar so mid-run steps see the session established
// earlier.
func (b *Base) SessionID() string {
	if b.response != nil {
		if c := b.response.Cookie(session.CookieName); c != nil {
			return c.Value
		}
	}
	if b.binding.Client != nil {
		if c := b.binding.Client.Cookie(session.CookieName); c != nil {
			return c.Value
		}
	}
	return ""
}

// urlParams resolves the effective URL parameters.
func (b *Base) urlParams() map[string]string {
	if b.URLParamsFunc != nil {
		return b.URLParamsFunc(b)
	}
	return b.URLParams
}

// request builds the client request for this step.
func (b *Base) request() client.Request {
	method := b.Method
	if method == "" {
		method = http.MethodPost
	}
	req := client.Request{
		Method:    method,
		Route:     b.RouteName,
		URLParams: b.urlParams(),
		Query:     b.Query,
		Headers:   b.Headers,
	}
	if b.JSON != nil {
		req.JSON = b.JSON
	} else {
		req.Form = b.Data
	}
	return req
}

// URL returns the absolute URL the step requests. Empty when the route
// cannot be reversed; Request surfaces the underlying error.
func (b *Base) URL() string {
	if b.binding.Client == nil {
		return ""
	}
	u, err := b.binding.Client.URL(b.request())
	if err != nil {
		return ""
	}
	return u
}

// Request performs the step's HTTP request, running the pre and post request
// hooks around it.
func (b *Base) Request(ctx context.Context) (*client.Response, error) {
	if b.binding.Client == nil {
		return nil, errors.New(errors.ErrCodeInvalidStep,
			"step {%s:%s} was not initialized with a client", b.Key(), b.Describe())
	}

	if b.OnPreRequest != nil {
		b.OnPreRequest(b)
	}

	resp, err := b.binding.Client.Do(ctx, b.request())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRequestFailed, err,
			"step {%s:%s} request failed", b.Key(), b.Describe())
	}
	b.response = resp

	if b.OnPostRequest != nil {
		b.OnPostRequest(b)
	}
	return resp, nil
}

// Validate runs the step's validators against the last response, with the
// pre and post validate hooks around them.
func (b *Base) Validate(t validator.Reporter) {
	if b.OnPreValidate != nil {
		b.OnPreValidate(b)
	}
	for _, v := range b.Validators {
		v.Validate(t, b)
	}
	if b.OnPostValidate != nil {
		b.OnPostValidate(b)
	}
}

// Check verifies the step and its validators are correctly configured.
func (b *Base) Check() error {
	if b.RouteName == "" {
		return errors.New(errors.ErrCodeInvalidStep, "step %q requires a route name", b.Name)
	}
	return validator.CheckAll(b.Validators)
}

// =============================================================================
// Navigation
// =============================================================================

// Prev returns the step immediately before this one, or nil on the first.
func (b *Base) Prev() Step {
	if b.binding.Index <= 0 {
		return nil
	}
	return b.binding.Steps.At(b.binding.Index - 1).Step
}

// Next returns the step immediately after this one, or nil on the last.
func (b *Base) Next() Step {
	if b.binding.Index < 0 || b.binding.Index >= len(b.binding.Steps)-1 {
		return nil
	}
	return b.binding.Steps.At(b.binding.Index + 1).Step
}

// PrevSteps returns all earlier steps, nearest first.
func (b *Base) PrevSteps() []Step {
	if b.binding.Index <= 0 {
		return nil
	}
	steps := make([]Step, 0, b.binding.Index)
	for i := b.binding.Index - 1; i >= 0; i-- {
		steps = append(steps, b.binding.Steps.At(i).Step)
	}
	return steps
}

// NextSteps returns all later steps, nearest first.
func (b *Base) NextSteps() []Step {
	if b.binding.Index < 0 {
		return nil
	}
	var steps []Step
	for i := b.binding.Index + 1; i < len(b.binding.Steps); i++ {
		steps = append(steps, b.binding.Steps.At(i).Step)
	}
	return steps
}

// =============================================================================
// Stateful URL parameters
// =============================================================================

// StatefulURLParams returns a URLParamsFunc that reads URL parameters from
// the run state under [KeyURLParams], falling back to the step's own
// URLParams. Earlier steps populate the state:
//
//	b.State().Set(step.KeyURLParams, map[string]string{"id": created.ID})
func StatefulURLParams() func(b *Base) map[string]string {
	return func(b *Base) map[string]string {
		if st := b.State(); st != nil {
			if v, ok := st.Get(KeyURLParams); ok {
				if params, ok := v.(map[string]string); ok {
					return params
				}
			}
		}
		return b.URLParams
	}
}
