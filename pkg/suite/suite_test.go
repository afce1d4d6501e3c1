package suite

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/miki725/subui/pkg/errors"
	"github.com/miki725/subui/pkg/session"
)

const checkoutSuite = `
name = "checkout"
base_url = "http://localhost:8000"

[routes]
home = "/"
login = "/login"
cart = "/cart"

[[steps]]
key = "login"
route = "login"
data = { username = "alice" }

  [[steps.validators]]
  type = "redirect_to_route"
  route = "home"

  [[steps.validators]]
  type = "session"
  key = "user_id"

[[steps]]
key = "cart"
route = "cart"

  [[steps.validators]]
  type = "status_ok"

  [[steps.validators]]
  type = "contains"
  content = "added to cart"
`

func TestLoad(t *testing.T) {
	def, err := Load([]byte(checkoutSuite))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if def.Name != "checkout" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.Routes) != 3 {
		t.Errorf("routes = %d, want 3", len(def.Routes))
	}
	if len(def.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(def.Steps))
	}
	if def.Steps[0].Key != "login" || def.Steps[0].Data["username"] != "alice" {
		t.Errorf("first step = %+v", def.Steps[0])
	}
	if len(def.Steps[0].Validators) != 2 {
		t.Errorf("login validators = %d, want 2", len(def.Steps[0].Validators))
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"not toml", "{{{"},
		{"missing name", `base_url = "http://x"` + "\n[routes]\nhome = \"/\"\n[[steps]]\nroute = \"home\""},
		{
			"no routes",
			"name = \"x\"\n[[steps]]\nroute = \"home\"",
		},
		{
			"no steps",
			"name = \"x\"\n[routes]\nhome = \"/\"",
		},
		{
			"unknown route reference",
			"name = \"x\"\n[routes]\nhome = \"/\"\n[[steps]]\nroute = \"missing\"",
		},
		{
			"invalid route pattern",
			"name = \"x\"\n[routes]\nhome = \"no-slash\"\n[[steps]]\nroute = \"home\"",
		},
		{
			"duplicate step keys",
			"name = \"x\"\n[routes]\nhome = \"/\"\n[[steps]]\nkey = \"a\"\nroute = \"home\"\n[[steps]]\nkey = \"a\"\nroute = \"home\"",
		},
		{
			"unknown validator type",
			"name = \"x\"\n[routes]\nhome = \"/\"\n[[steps]]\nroute = \"home\"\n[[steps.validators]]\ntype = \"bogus\"",
		},
		{
			"misconfigured validator",
			"name = \"x\"\n[routes]\nhome = \"/\"\n[[steps]]\nroute = \"home\"\n[[steps.validators]]\ntype = \"status\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.toml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidSuite) {
				t.Errorf("error = %v, want INVALID_SUITE", err)
			}
		})
	}
}

func TestStepDefDefaults(t *testing.T) {
	s := StepDef{Route: "login"}
	if s.EffectiveKey(3) != "3" {
		t.Errorf("EffectiveKey = %q, want position", s.EffectiveKey(3))
	}
	if s.EffectiveName() != "login" {
		t.Errorf("EffectiveName = %q, want route", s.EffectiveName())
	}

	s = StepDef{Key: "k", Name: "n", Route: "login"}
	if s.EffectiveKey(3) != "k" || s.EffectiveName() != "n" {
		t.Errorf("explicit key/name not used")
	}
}

func TestBuildAndRun(t *testing.T) {
	store := session.NewMemoryStore()

	r := chi.NewRouter()
	r.Use(session.Middleware(store))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("home"))
	})
	r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		sess.Values["user_id"] = "42"
		http.Redirect(w, r, "/", http.StatusFound)
	})
	r.Post("/cart", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("added to cart"))
	})

	def, err := Load([]byte(checkoutSuite))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	run, err := def.Build(BuildConfig{Handler: r, Sessions: store})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	transcript, err := run.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !transcript.Passed {
		for _, s := range transcript.Steps {
			t.Logf("step %s failures: %v", s.Key, s.Failures)
		}
		t.Error("suite run should pass")
	}
	if transcript.Suite != "checkout" {
		t.Errorf("suite = %q", transcript.Suite)
	}
}

func TestBuildValidatorTypes(t *testing.T) {
	defs := []ValidatorDef{
		{Type: "status", Status: 200},
		{Type: "status_ok"},
		{Type: "header", Header: "X-Foo", Value: "bar"},
		{Type: "content_type", Value: "text/html"},
		{Type: "location"},
		{Type: "redirect"},
		{Type: "redirect_to_route", Route: "home"},
		{Type: "contains", Content: "x"},
		{Type: "not_contains", Content: "x"},
		{Type: "session", Key: "user_id"},
		{Type: "json_field", Path: "user.id"},
	}
	for _, vd := range defs {
		t.Run(vd.Type, func(t *testing.T) {
			v, err := buildValidator(vd)
			if err != nil {
				t.Fatalf("buildValidator: %v", err)
			}
			if err := v.Check(); err != nil {
				t.Errorf("Check: %v", err)
			}
		})
	}

	if _, err := buildValidator(ValidatorDef{Type: "nope"}); err == nil {
		t.Error("unknown type should error")
	}
}

func TestToDOT(t *testing.T) {
	def, err := Load([]byte(checkoutSuite))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	dot := ToDOT(def)
	for _, want := range []string{
		"digraph workflow",
		`"checkout"`,
		`"login"`,
		`"cart"`,
		`"checkout" -> "login"`,
		`"login" -> "cart"`,
		"POST /login",
		"2 validator(s)",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}
