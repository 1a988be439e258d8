package application

import (
	"sync"
	"sync/atomic"

	"github.com/collabtext/otrelay/domain"
)

// Registry owns the shared map of document id to Document, created lazily
// on first join referencing its id, and the process-wide colour
// round-robin counter (no correctness depends on colour uniqueness).
// GetOrCreate must be safe under concurrent access since connection
// goroutines for different documents may race to create the same document.
type Registry struct {
	mu        sync.Mutex
	documents map[string]*domain.Document
	colorIdx  uint64
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{documents: make(map[string]*domain.Document)}
}

// GetOrCreate returns the document for id, creating it if this is the
// first reference.
func (r *Registry) GetOrCreate(id string) *domain.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.documents[id]; ok {
		return d
	}
	d := domain.NewDocument(id)
	r.documents[id] = d
	return d
}

// Get returns the document for id if it has been created, and whether it
// exists. Used by the HTTP collaborator endpoint's 404 case.
func (r *Registry) Get(id string) (*domain.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.documents[id]
	return d, ok
}

// Count reports the number of known documents, for the health endpoint.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.documents)
}

// NextColor advances the round-robin counter and returns the palette entry
// for it. The counter is monotonic and may be advanced without
// coordination across documents; collisions merely yield identical
// colours.
func (r *Registry) NextColor() string {
	i := atomic.AddUint64(&r.colorIdx, 1) - 1
	return domain.ColorPalette[i%uint64(len(domain.ColorPalette))]
}
