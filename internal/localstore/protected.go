package localstore

import (
	"context"
	"log/slog"
	"sync"

	"Tempo/internal/domain"
)

// Guard decides which records are protected from destructive operations and
// reacts to bulk clears.
type Guard interface {
	Protects(c Collection, id string) bool
	// AfterClear runs asynchronously once Clear(c) has completed.
	AfterClear(ctx context.Context, c Collection)
}

// Protected is a Store decorator enforcing a Guard at the API boundary:
// deleting (or tombstoning) a protected record is a no-op, and a bulk clear
// schedules the guard's repair.
type Protected struct {
	Store
	guard Guard
	log   *slog.Logger
	wg    sync.WaitGroup
}

// Protect wraps s with g.
func Protect(s Store, g Guard, log *slog.Logger) *Protected {
	return &Protected{Store: s, guard: g, log: log}
}

func (p *Protected) Put(ctx context.Context, c Collection, r Row) error {
	if r.State == domain.StateDeleted && p.guard.Protects(c, r.ID) {
		p.log.Warn("ignored tombstone of protected record", slog.String("collection", string(c)), slog.String("id", r.ID))
		return nil
	}
	return p.Store.Put(ctx, c, r)
}

func (p *Protected) PutAll(ctx context.Context, c Collection, rows []Row) error {
	kept := rows[:0:0]
	for _, r := range rows {
		if r.State == domain.StateDeleted && p.guard.Protects(c, r.ID) {
			p.log.Warn("ignored tombstone of protected record", slog.String("collection", string(c)), slog.String("id", r.ID))
			continue
		}
		kept = append(kept, r)
	}
	return p.Store.PutAll(ctx, c, kept)
}

func (p *Protected) Delete(ctx context.Context, c Collection, id string) error {
	if p.guard.Protects(c, id) {
		p.log.Debug("ignored delete of protected record", slog.String("collection", string(c)), slog.String("id", id))
		return nil
	}
	return p.Store.Delete(ctx, c, id)
}

func (p *Protected) Clear(ctx context.Context, c Collection) error {
	if err := p.Store.Clear(ctx, c); err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.guard.AfterClear(context.WithoutCancel(ctx), c)
	}()
	return nil
}

// Wait blocks until every pending AfterClear has returned.
func (p *Protected) Wait() { p.wg.Wait() }
