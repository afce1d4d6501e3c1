// Package state provides the shared state passed between workflow steps.
//
// State is organized as a stack of frames. Lookups search from the most
// recently pushed frame down to the base frame, so a step can temporarily
// override values for later steps without destroying earlier ones:
//
//	st := state.New(map[string]any{"user": "alice"})
//	st.Push(map[string]any{"url_params": map[string]string{"id": "42"}})
//	v, ok := st.Get("url_params") // from the pushed frame
//	u, ok := st.Get("user")       // from the base frame
//	st.Pop()                      // drop the override
//
// A Context is safe for concurrent use, although a workflow run accesses it
// sequentially, one step at a time.
package state

import (
	"maps"
	"sync"
)

// Context is a layered key/value store shared by all steps in a run.
type Context struct {
	mu     sync.RWMutex
	frames []map[string]any
}

// New creates a Context with a single base frame seeded from values.
// A nil seed creates an empty base frame.
func New(values map[string]any) *Context {
	base := make(map[string]any, len(values))
	maps.Copy(base, values)
	return &Context{frames: []map[string]any{base}}
}

// Get returns the value for key, searching frames from newest to oldest.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.frames) - 1; i >= 0; i-- {
		if v, ok := c.frames[i][key]; ok {
			return v, true
		}
	}
	return nil, false
}

// GetDefault returns the value for key, or def when the key is absent.
func (c *Context) GetDefault(key string, def any) any {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Has reports whether key exists in any frame.
func (c *Context) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value under key in the topmost frame.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames[len(c.frames)-1][key] = value
}

// Push adds a new frame initialized from values. Later lookups see the new
// frame first. A nil values map pushes an empty frame.
func (c *Context) Push(values map[string]any) {
	frame := make(map[string]any, len(values))
	maps.Copy(frame, values)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
}

// Pop removes and returns the topmost frame. The base frame is never removed;
// popping it returns nil and leaves the Context unchanged.
func (c *Context) Pop() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.frames) == 1 {
		return nil
	}
	top := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	return top
}

// Depth returns the number of frames, including the base frame.
func (c *Context) Depth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Flatten returns a merged copy of all frames, newest values winning.
// Mutating the returned map does not affect the Context.
func (c *Context) Flatten() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	merged := make(map[string]any)
	for _, frame := range c.frames {
		maps.Copy(merged, frame)
	}
	return merged
}
