package repo

import (
	"context"
	"fmt"
	"time"

	dom "Tempo/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// upsertAll runs every queued statement inside one transaction, so a
// collection push either lands completely or not at all.
func upsertAll(ctx context.Context, db *pgxpool.Pool, b *pgx.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert #%d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// stamp fills server-side defaults before a record is written.
func stamp(r *dom.Record, ownerID string, now time.Time) {
	r.OwnerID = ownerID
	if r.State == "" {
		r.State = dom.StateActive
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	r.Dirty = false
}
