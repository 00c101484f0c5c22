package repo

import (
	"context"
	"time"

	dom "Tempo/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingsRepo interface {
	// Upsert stores s unless a newer document exists, and returns what is stored.
	Upsert(ctx context.Context, ownerID string, s dom.Settings) (dom.Settings, error)
	// Get returns pgx.ErrNoRows when the owner has no settings yet.
	Get(ctx context.Context, ownerID string) (dom.Settings, error)
}

type PGSettingsRepo struct {
	db *pgxpool.Pool
}

func NewPGSettingsRepo(db *pgxpool.Pool) *PGSettingsRepo {
	return &PGSettingsRepo{db: db}
}

func (r *PGSettingsRepo) Upsert(ctx context.Context, ownerID string, s dom.Settings) (dom.Settings, error) {
	stamp(&s.Record, ownerID, time.Now().UTC())
	if s.Values == nil {
		s.Values = map[string]any{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO settings (owner_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id) DO UPDATE SET
		  data = EXCLUDED.data,
		  updated_at = EXCLUDED.updated_at
		WHERE settings.updated_at <= EXCLUDED.updated_at`,
		ownerID, s.Values, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return dom.Settings{}, err
	}
	return r.Get(ctx, ownerID)
}

func (r *PGSettingsRepo) Get(ctx context.Context, ownerID string) (dom.Settings, error) {
	s := dom.Settings{Record: dom.Record{ID: dom.SettingsID, OwnerID: ownerID, State: dom.StateActive}}
	err := r.db.QueryRow(ctx,
		`SELECT data, created_at, updated_at FROM settings WHERE owner_id = $1`, ownerID,
	).Scan(&s.Values, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
