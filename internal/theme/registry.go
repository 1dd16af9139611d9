package theme

import (
	"sync"
)

// Registry tracks the active palette and notifies subscribers when it
// changes. Consumers subscribe once instead of re-reading global state;
// the returned cancel func detaches the subscriber.
type Registry struct {
	mu      sync.Mutex
	current Palette
	nextID  int
	subs    map[int]func(Palette)
}

// NewRegistry creates a registry with the given initial palette.
func NewRegistry(initial Palette) *Registry {
	return &Registry{
		current: initial,
		subs:    make(map[int]func(Palette)),
	}
}

// Current returns the active palette.
func (r *Registry) Current() Palette {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Subscribe registers a callback invoked on every palette change.
// The callback runs on the goroutine that calls SetTheme.
func (r *Registry) Subscribe(fn func(Palette)) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// SetTheme switches the active theme by name and notifies subscribers.
func (r *Registry) SetTheme(name string) error {
	p, err := ByName(name)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.current = p
	subs := make([]func(Palette), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(p)
	}
	return nil
}
