package shared

import (
	"context"
	"sync"
)

// Persister registers entities with an external unit of work.
// Registration is fire-and-forget; the unit of work writes on Flush.
type Persister interface {
	Persist(entity any) error
	Remove(entity any) error
	Flush(ctx context.Context) error
}

// PersistenceHelper gives domain services access to a Persister that is wired
// after construction. Using it before SetManager is a precondition failure.
type PersistenceHelper struct {
	mu      sync.RWMutex
	manager Persister
}

// NewPersistenceHelper creates a helper, optionally already wired
func NewPersistenceHelper(manager Persister) *PersistenceHelper {
	return &PersistenceHelper{manager: manager}
}

// SetManager wires the persistence manager
func (h *PersistenceHelper) SetManager(manager Persister) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.manager = manager
}

// Persist schedules the entity for insertion or update
func (h *PersistenceHelper) Persist(entity any) error {
	m, err := h.get()
	if err != nil {
		return err
	}
	return m.Persist(entity)
}

// Remove schedules the entity for deletion
func (h *PersistenceHelper) Remove(entity any) error {
	m, err := h.get()
	if err != nil {
		return err
	}
	return m.Remove(entity)
}

// Flush writes every scheduled change
func (h *PersistenceHelper) Flush(ctx context.Context) error {
	m, err := h.get()
	if err != nil {
		return err
	}
	return m.Flush(ctx)
}

func (h *PersistenceHelper) get() (Persister, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.manager == nil {
		return nil, PreconditionFailed("Persistence manager is not set")
	}
	return h.manager, nil
}
