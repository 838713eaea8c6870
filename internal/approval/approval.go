// Package approval implements the dual-approval gate (C9): a small state
// machine that accumulates distinct approver identities for a
// re-energization request and flips Pending to Ready once at least two
// distinct users have signed off.
package approval

import (
	"sync"
	"time"

	"loto/pkg/apperror"
)

// State is a gate's lifecycle stage.
type State string

const (
	StatePending State = "pending"
	StateReady   State = "ready"
)

// MinApprovers is the distinct-approver cardinality required to reach
// Ready (spec §4.8: "cardinality >= 2").
const MinApprovers = 2

// Gate tracks approvals for a single re-energization request. Ready is
// terminal: once reached, further Approve calls are no-ops.
type Gate struct {
	mu        sync.RWMutex
	id        string
	planID    string
	approvers map[string]time.Time
	state     State
	createdAt time.Time
	readyAt   time.Time
}

// NewGate opens a Pending gate for the given plan id.
func NewGate(id, planID string, now time.Time) *Gate {
	return &Gate{
		id:        id,
		planID:    planID,
		approvers: make(map[string]time.Time),
		state:     StatePending,
		createdAt: now,
	}
}

// Approve records an approval from userID. The same user approving twice
// is idempotent: it neither adds a second entry nor re-triggers the
// Pending->Ready transition. Returns the gate's state after the call.
func (g *Gate) Approve(userID string, now time.Time) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateReady {
		return StateReady
	}
	if userID == "" {
		return g.state
	}
	if _, seen := g.approvers[userID]; !seen {
		g.approvers[userID] = now
	}
	if len(g.approvers) >= MinApprovers {
		g.state = StateReady
		g.readyAt = now
	}
	return g.state
}

// IsReady reports whether the gate has reached Ready. Re-energization
// callers must check this before proceeding (spec §4.8).
func (g *Gate) IsReady() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state == StateReady
}

// Approvers returns the distinct approver ids recorded so far, in no
// particular order.
func (g *Gate) Approvers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.approvers))
	for u := range g.approvers {
		out = append(out, u)
	}
	return out
}

// ID returns the gate's identifier.
func (g *Gate) ID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.id
}

// PlanID returns the isolation plan this gate guards.
func (g *Gate) PlanID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.planID
}

// Snapshot renders the gate's current state as a plain record, suitable
// for persistence or for returning to a caller across a package
// boundary.
func (g *Gate) Snapshot() Record {
	g.mu.RLock()
	defer g.mu.RUnlock()
	approvers := make([]string, 0, len(g.approvers))
	for u := range g.approvers {
		approvers = append(approvers, u)
	}
	return Record{
		ID:        g.id,
		PlanID:    g.planID,
		State:     g.state,
		Approvers: approvers,
		CreatedAt: g.createdAt,
		ReadyAt:   g.readyAt,
	}
}

// Record is the durable, serializable form of a Gate.
type Record struct {
	ID        string
	PlanID    string
	State     State
	Approvers []string
	CreatedAt time.Time
	ReadyAt   time.Time
}

// restore rebuilds a Gate from a Record, used when loading from a Store.
func restore(r Record) *Gate {
	approvers := make(map[string]time.Time, len(r.Approvers))
	for _, u := range r.Approvers {
		approvers[u] = r.CreatedAt
	}
	return &Gate{
		id:        r.ID,
		planID:    r.PlanID,
		approvers: approvers,
		state:     r.State,
		createdAt: r.CreatedAt,
		readyAt:   r.ReadyAt,
	}
}

// ErrGateNotFound is returned when a lookup targets an unknown gate id.
var ErrGateNotFound = apperror.New(apperror.CodeNotFound, "approval gate not found")
