package peer

import (
	"testing"

	"github.com/ashureev/tradebot/internal/domain"
)

type stubHandler struct{ id domain.SteamID }

func (s *stubHandler) Peer() domain.SteamID { return s.id }

func newCountingRegistry() (*Registry, *int) {
	created := 0
	return NewRegistry(func(id domain.SteamID) Handler {
		created++
		return &stubHandler{id: id}
	}), &created
}

func TestRegistryGetOrCreateCaches(t *testing.T) {
	r, created := newCountingRegistry()

	first := r.GetOrCreate(7)
	second := r.GetOrCreate(7)
	if first != second {
		t.Fatal("expected the same handler instance for repeated lookups")
	}
	if *created != 1 {
		t.Fatalf("expected factory to run once, ran %d times", *created)
	}
	if first.Peer() != 7 {
		t.Fatalf("handler built for wrong peer %v", first.Peer())
	}
}

func TestRegistryRemoveCreatesFresh(t *testing.T) {
	r, created := newCountingRegistry()

	first := r.GetOrCreate(7)
	r.Remove(7)
	if r.Len() != 0 {
		t.Fatal("handler should be gone after Remove")
	}
	if r.GetOrCreate(7) == first {
		t.Fatal("expected a new handler after eviction")
	}
	if *created != 2 {
		t.Fatalf("expected two constructions, got %d", *created)
	}
}

func TestRegistryClear(t *testing.T) {
	r, _ := newCountingRegistry()
	r.GetOrCreate(1)
	r.GetOrCreate(2)
	if r.Len() != 2 {
		t.Fatalf("expected 2 handlers, got %d", r.Len())
	}
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}
