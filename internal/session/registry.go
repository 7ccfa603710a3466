package session

import (
	"sync"

	"github.com/rs/zerolog"
)

// OwnedSink is a Sink that can be narrowed to one owner, so records can be
// attributed to the device that produced them.
type OwnedSink interface {
	Sink
	ForOwner(owner string) Sink
}

// Registry hands out one Engine per device.
type Registry struct {
	mu      sync.Mutex
	engines map[string]*Engine
	sink    Sink
	opts    Options
}

// NewRegistry creates a Registry whose engines share sink and opts.
func NewRegistry(sink Sink, opts Options) *Registry {
	return &Registry{
		engines: make(map[string]*Engine),
		sink:    sink,
		opts:    opts,
	}
}

// Get returns the engine for owner, creating it on first use.
func (r *Registry) Get(owner string) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[owner]; ok {
		return e
	}
	opts := r.opts
	opts.Log = r.opts.Log.With().Str("device_id", owner).Logger()
	sink := r.sink
	if owned, ok := sink.(OwnedSink); ok {
		sink = owned.ForOwner(owner)
	}
	e := NewEngine(sink, opts)
	r.engines[owner] = e
	return e
}

// Lookup returns the engine for owner without creating one.
func (r *Registry) Lookup(owner string) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.engines[owner]
	return e, ok
}

// ActiveCount returns how many engines hold an active session.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	engines := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		engines = append(engines, e)
	}
	r.mu.Unlock()

	n := 0
	for _, e := range engines {
		if e.State().Active() {
			n++
		}
	}
	return n
}

// Close stops every engine's countdown.
func (r *Registry) Close(log zerolog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for owner, e := range r.engines {
		e.Close()
		delete(r.engines, owner)
	}
	log.Info().Msg("Session engines closed")
}
