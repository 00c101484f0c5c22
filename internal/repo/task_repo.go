package repo

import (
	"context"
	"time"

	dom "Tempo/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepo interface {
	Upsert(ctx context.Context, ownerID string, items []dom.Task) error
	List(ctx context.Context, ownerID string) ([]dom.Task, error)
}

type PGTaskRepo struct {
	db *pgxpool.Pool
}

func NewPGTaskRepo(db *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

func (r *PGTaskRepo) Upsert(ctx context.Context, ownerID string, items []dom.Task) error {
	const q = `
		INSERT INTO tasks
		  (owner_id, id, name, project_id, parent_id, status, priority, estimated_units,
		   actual_units, interval_seconds, state, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (owner_id, id) DO UPDATE SET
		  name = EXCLUDED.name,
		  project_id = EXCLUDED.project_id,
		  parent_id = EXCLUDED.parent_id,
		  status = EXCLUDED.status,
		  priority = EXCLUDED.priority,
		  estimated_units = EXCLUDED.estimated_units,
		  actual_units = EXCLUDED.actual_units,
		  interval_seconds = EXCLUDED.interval_seconds,
		  state = EXCLUDED.state,
		  sort_order = EXCLUDED.sort_order,
		  updated_at = EXCLUDED.updated_at
		WHERE tasks.updated_at <= EXCLUDED.updated_at`
	now := time.Now().UTC()
	b := &pgx.Batch{}
	for _, t := range items {
		stamp(&t.Record, ownerID, now)
		t.Normalize()
		b.Queue(q, t.OwnerID, t.ID, t.Name, t.ProjectID, t.ParentID, t.Status, t.Priority,
			t.EstimatedUnits, t.ActualUnits, t.IntervalSeconds, string(t.State), t.Order, t.CreatedAt, t.UpdatedAt)
	}
	return upsertAll(ctx, r.db, b)
}

func (r *PGTaskRepo) List(ctx context.Context, ownerID string) ([]dom.Task, error) {
	query := `
		SELECT owner_id, id, name, project_id, parent_id, status, priority, estimated_units,
		       actual_units, interval_seconds, state, sort_order, created_at, updated_at
		FROM tasks WHERE owner_id = $1 AND state <> 'deleted'
		ORDER BY sort_order, id`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.Task{}
	for rows.Next() {
		var (
			t     dom.Task
			state string
		)
		if err := rows.Scan(&t.OwnerID, &t.ID, &t.Name, &t.ProjectID, &t.ParentID, &t.Status, &t.Priority,
			&t.EstimatedUnits, &t.ActualUnits, &t.IntervalSeconds, &state, &t.Order, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.State = dom.LifecycleState(state)
		list = append(list, t)
	}
	return list, rows.Err()
}
