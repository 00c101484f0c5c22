package repo

import (
	"context"
	"time"

	dom "Tempo/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProjectRepo interface {
	Upsert(ctx context.Context, ownerID string, items []dom.Project) error
	List(ctx context.Context, ownerID string) ([]dom.Project, error)
}

type PGProjectRepo struct {
	db *pgxpool.Pool
}

func NewPGProjectRepo(db *pgxpool.Pool) *PGProjectRepo {
	return &PGProjectRepo{db: db}
}

// Upsert writes items keyed by (owner, id). An existing row is only
// overwritten by an update that is not older than it (last writer wins).
func (r *PGProjectRepo) Upsert(ctx context.Context, ownerID string, items []dom.Project) error {
	const q = `
		INSERT INTO projects
		  (owner_id, id, name, color, parent_id, kind, type_tag, state, sort_order,
		   task_count, completed_count, focus_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (owner_id, id) DO UPDATE SET
		  name = EXCLUDED.name,
		  color = EXCLUDED.color,
		  parent_id = EXCLUDED.parent_id,
		  kind = EXCLUDED.kind,
		  type_tag = EXCLUDED.type_tag,
		  state = EXCLUDED.state,
		  sort_order = EXCLUDED.sort_order,
		  task_count = EXCLUDED.task_count,
		  completed_count = EXCLUDED.completed_count,
		  focus_seconds = EXCLUDED.focus_seconds,
		  updated_at = EXCLUDED.updated_at
		WHERE projects.updated_at <= EXCLUDED.updated_at`
	now := time.Now().UTC()
	b := &pgx.Batch{}
	for _, p := range items {
		stamp(&p.Record, ownerID, now)
		if p.Kind == "" {
			p.Kind = dom.KindRegular
		}
		b.Queue(q, p.OwnerID, p.ID, p.Name, p.Color, p.ParentID, string(p.Kind), p.TypeTag,
			string(p.State), p.Order, p.TaskCount, p.CompletedCount, p.FocusSeconds, p.CreatedAt, p.UpdatedAt)
	}
	return upsertAll(ctx, r.db, b)
}

// List returns the owner's live projects; tombstones are left out.
func (r *PGProjectRepo) List(ctx context.Context, ownerID string) ([]dom.Project, error) {
	query := `
		SELECT owner_id, id, name, color, parent_id, kind, type_tag, state, sort_order,
		       task_count, completed_count, focus_seconds, created_at, updated_at
		FROM projects WHERE owner_id = $1 AND state <> 'deleted'
		ORDER BY sort_order, id`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.Project{}
	for rows.Next() {
		var (
			p     dom.Project
			kind  string
			state string
		)
		if err := rows.Scan(&p.OwnerID, &p.ID, &p.Name, &p.Color, &p.ParentID, &kind, &p.TypeTag,
			&state, &p.Order, &p.TaskCount, &p.CompletedCount, &p.FocusSeconds, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Kind = dom.ProjectKind(kind)
		p.State = dom.LifecycleState(state)
		list = append(list, p)
	}
	return list, rows.Err()
}
