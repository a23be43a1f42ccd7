package peer

import "github.com/ashureev/tradebot/internal/domain"

// Factory builds the handler for a peer.
type Factory func(id domain.SteamID) Handler

// Registry maps peers to their handlers. It is not synchronized: it belongs to the
// event loop goroutine.
type Registry struct {
	factory  Factory
	handlers map[domain.SteamID]Handler
}

// NewRegistry creates an empty registry backed by factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		handlers: make(map[domain.SteamID]Handler),
	}
}

// GetOrCreate returns the cached handler for id, creating it on first use.
func (r *Registry) GetOrCreate(id domain.SteamID) Handler {
	if h, ok := r.handlers[id]; ok {
		return h
	}
	h := r.factory(id)
	r.handlers[id] = h
	return h
}

// Remove evicts the handler for id.
func (r *Registry) Remove(id domain.SteamID) {
	delete(r.handlers, id)
}

// Clear evicts every handler.
func (r *Registry) Clear() {
	clear(r.handlers)
}

// Len returns the number of cached handlers.
func (r *Registry) Len() int {
	return len(r.handlers)
}
