package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"loto/pkg/database"
)

// postgresStore persists Gate records to the approval_gates table via the
// shared connection pool (pkg/database). Approvers are stored as a JSON
// array rather than a join table: the gate's whole lifecycle lives in one
// row, which keeps Save a single upsert.
type postgresStore struct {
	db database.DB
}

// NewPostgresStore returns a Store backed by Postgres. Callers are
// expected to have already run the approval_gates migration (see
// migrations/0001_approval_gates.sql) via pkg/database's Migrator.
func NewPostgresStore(db database.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Save(ctx context.Context, r Record) error {
	approvers, err := json.Marshal(r.Approvers)
	if err != nil {
		return fmt.Errorf("marshal approvers: %w", err)
	}

	const q = `
INSERT INTO approval_gates (id, plan_id, state, approvers, created_at, ready_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	state = EXCLUDED.state,
	approvers = EXCLUDED.approvers,
	ready_at = EXCLUDED.ready_at
`
	var readyAt *time.Time
	if !r.ReadyAt.IsZero() {
		readyAt = &r.ReadyAt
	}
	_, err = s.db.Exec(ctx, q, r.ID, r.PlanID, string(r.State), approvers, r.CreatedAt, readyAt)
	if err != nil {
		return fmt.Errorf("save approval gate %s: %w", r.ID, err)
	}
	return nil
}

func (s *postgresStore) Load(ctx context.Context, id string) (Record, bool, error) {
	const q = `SELECT id, plan_id, state, approvers, created_at, ready_at FROM approval_gates WHERE id = $1`

	var (
		r             Record
		state         string
		approversJSON []byte
		readyAt       *time.Time
	)
	row := s.db.QueryRow(ctx, q, id)
	if err := row.Scan(&r.ID, &r.PlanID, &state, &approversJSON, &r.CreatedAt, &readyAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("load approval gate %s: %w", id, err)
	}
	r.State = State(state)
	if readyAt != nil {
		r.ReadyAt = *readyAt
	}
	if err := json.Unmarshal(approversJSON, &r.Approvers); err != nil {
		return Record{}, false, fmt.Errorf("unmarshal approvers for gate %s: %w", id, err)
	}
	return r, true, nil
}

func (s *postgresStore) List(ctx context.Context) ([]Record, error) {
	const q = `SELECT id, plan_id, state, approvers, created_at, ready_at FROM approval_gates ORDER BY created_at`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list approval gates: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r             Record
			state         string
			approversJSON []byte
			readyAt       *time.Time
		)
		if err := rows.Scan(&r.ID, &r.PlanID, &state, &approversJSON, &r.CreatedAt, &readyAt); err != nil {
			return nil, fmt.Errorf("scan approval gate row: %w", err)
		}
		r.State = State(state)
		if readyAt != nil {
			r.ReadyAt = *readyAt
		}
		if err := json.Unmarshal(approversJSON, &r.Approvers); err != nil {
			return nil, fmt.Errorf("unmarshal approvers: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
