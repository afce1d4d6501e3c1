// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about workflow runs, HTTP requests, and report storage.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetRunnerHooks(&myRunnerHooks{})
//	    observability.SetHTTPHooks(&myHTTPHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Runner().OnStepStart(ctx, key, name)
//	// ... execute step ...
//	observability.Runner().OnStepComplete(ctx, key, status, failures, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Runner Hooks
// =============================================================================

// RunnerHooks receives events from workflow runs.
type RunnerHooks interface {
	// OnRunStart records the beginning of a workflow run.
	OnRunStart(ctx context.Context, runID string, stepCount int)

	// OnStepStart records the beginning of a single step.
	OnStepStart(ctx context.Context, key, step string)

	// OnStepComplete records a finished step with its response status,
	// the number of validation failures, and any request error.
	OnStepComplete(ctx context.Context, key string, status, failures int, duration time.Duration, err error)

	// OnRunComplete records the end of a workflow run.
	OnRunComplete(ctx context.Context, runID string, passed bool, duration time.Duration)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from workflow client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from report storage backends.
type StoreHooks interface {
	// OnSave records a transcript write.
	OnSave(ctx context.Context, backend, runID string, err error)

	// OnLoad records a transcript read.
	OnLoad(ctx context.Context, backend, runID string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRunnerHooks is a no-op implementation of RunnerHooks.
type NoopRunnerHooks struct{}

func (NoopRunnerHooks) OnRunStart(context.Context, string, int)                            {}
func (NoopRunnerHooks) OnStepStart(context.Context, string, string)                        {}
func (NoopRunnerHooks) OnStepComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopRunnerHooks) OnRunComplete(context.Context, string, bool, time.Duration) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnSave(context.Context, string, string, error) {}
func (NoopStoreHooks) OnLoad(context.Context, string, string, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	runnerHooks RunnerHooks = NoopRunnerHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	hooksMu     sync.RWMutex
)

// SetRunnerHooks registers custom runner hooks.
// This should be called once at application startup before any runs.
func SetRunnerHooks(h RunnerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		runnerHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any requests.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Runner returns the registered runner hooks.
func Runner() RunnerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return runnerHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	runnerHooks = NoopRunnerHooks{}
	httpHooks = NoopHTTPHooks{}
	storeHooks = NoopStoreHooks{}
}
