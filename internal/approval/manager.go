package approval

import (
	"context"
	"sync"
	"time"
)

// Manager is the gate registry internal/core talks to: it creates gates,
// routes approvals to them, and mirrors every mutation to a Store so a
// gate's state survives a process restart.
type Manager struct {
	mu    sync.Mutex
	store Store
	gates map[string]*Gate
}

// NewManager returns a Manager backed by store. Pass NewMemoryStore() for
// a process-local gate registry, or NewPostgresStore(db) for one that
// survives restarts.
func NewManager(store Store) *Manager {
	return &Manager{store: store, gates: make(map[string]*Gate)}
}

// Open creates a new Pending gate for planID and persists its initial
// record.
func (m *Manager) Open(ctx context.Context, id, planID string, now time.Time) (*Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := NewGate(id, planID, now)
	m.gates[id] = g
	if err := m.store.Save(ctx, g.Snapshot()); err != nil {
		return nil, err
	}
	return g, nil
}

// Approve records userID's approval against gate id, loading it from the
// store first if it isn't already cached in memory. Returns the gate's
// state after the call.
func (m *Manager) Approve(ctx context.Context, id, userID string, now time.Time) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.get(ctx, id)
	if err != nil {
		return "", err
	}

	state := g.Approve(userID, now)
	if err := m.store.Save(ctx, g.Snapshot()); err != nil {
		return "", err
	}
	return state, nil
}

// IsReady reports whether gate id has reached Ready. Re-energization
// callers must call this before proceeding (spec §4.8).
func (m *Manager) IsReady(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.get(ctx, id)
	if err != nil {
		return false, err
	}
	return g.IsReady(), nil
}

// get returns the cached gate for id, loading it from the store on a
// cache miss. Callers must hold m.mu.
func (m *Manager) get(ctx context.Context, id string) (*Gate, error) {
	if g, ok := m.gates[id]; ok {
		return g, nil
	}
	r, ok, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGateNotFound
	}
	g := restore(r)
	m.gates[id] = g
	return g, nil
}
