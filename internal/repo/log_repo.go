package repo

import (
	"context"
	"time"

	dom "Tempo/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogRepo stores timed focus sessions ("pomodoro logs").
type LogRepo interface {
	Upsert(ctx context.Context, ownerID string, items []dom.TimedSession) error
	List(ctx context.Context, ownerID string) ([]dom.TimedSession, error)
}

type PGLogRepo struct {
	db *pgxpool.Pool
}

func NewPGLogRepo(db *pgxpool.Pool) *PGLogRepo {
	return &PGLogRepo{db: db}
}

func (r *PGLogRepo) Upsert(ctx context.Context, ownerID string, items []dom.TimedSession) error {
	const q = `
		INSERT INTO pomodoro_logs
		  (owner_id, id, task_id, status, start_time, end_time, duration, state, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (owner_id, id) DO UPDATE SET
		  task_id = EXCLUDED.task_id,
		  status = EXCLUDED.status,
		  start_time = EXCLUDED.start_time,
		  end_time = EXCLUDED.end_time,
		  duration = EXCLUDED.duration,
		  state = EXCLUDED.state,
		  sort_order = EXCLUDED.sort_order,
		  updated_at = EXCLUDED.updated_at
		WHERE pomodoro_logs.updated_at <= EXCLUDED.updated_at`
	now := time.Now().UTC()
	b := &pgx.Batch{}
	for _, s := range items {
		stamp(&s.Record, ownerID, now)
		b.Queue(q, s.OwnerID, s.ID, s.TaskID, s.Status, s.StartTime, s.EndTime, s.Duration,
			string(s.State), s.Order, s.CreatedAt, s.UpdatedAt)
	}
	return upsertAll(ctx, r.db, b)
}

func (r *PGLogRepo) List(ctx context.Context, ownerID string) ([]dom.TimedSession, error) {
	query := `
		SELECT owner_id, id, task_id, status, start_time, end_time, duration, state, sort_order, created_at, updated_at
		FROM pomodoro_logs WHERE owner_id = $1 AND state <> 'deleted'
		ORDER BY start_time, id`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.TimedSession{}
	for rows.Next() {
		var (
			s     dom.TimedSession
			state string
		)
		if err := rows.Scan(&s.OwnerID, &s.ID, &s.TaskID, &s.Status, &s.StartTime, &s.EndTime, &s.Duration,
			&state, &s.Order, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.State = dom.LifecycleState(state)
		list = append(list, s)
	}
	return list, rows.Err()
}
