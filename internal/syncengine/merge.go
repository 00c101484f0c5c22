package syncengine

import (
	"context"
	"fmt"
	"time"

	"Tempo/internal/domain"
	"Tempo/internal/localstore"
)

// batch is what one sync round pushes.
type batch[T any] struct {
	items []T
	// pushed maps each pushed id to the version (updatedAt) that was sent.
	pushed   map[string]time.Time
	rejected int
}

// collect reads the rows selected by f. Rows failing check stay local and
// dirty; they are counted, not pushed.
func collect[T any, PT localstore.EntityPtr[T]](ctx context.Context, s localstore.Store, c localstore.Collection,
	f localstore.Filter, check func(PT) error) (batch[T], error) {
	rows, err := s.GetAll(ctx, c, f)
	if err != nil {
		return batch[T]{}, err
	}
	b := batch[T]{items: make([]T, 0, len(rows)), pushed: make(map[string]time.Time, len(rows))}
	for _, r := range rows {
		v, err := localstore.Decode[T, PT](r)
		if err != nil {
			return batch[T]{}, err
		}
		if check != nil {
			if err := check(PT(&v)); err != nil {
				b.rejected++
				continue
			}
		}
		b.items = append(b.items, v)
		b.pushed[r.ID] = r.UpdatedAt
	}
	return b, nil
}

// reply is the server's answer to one push.
type reply[T any] struct {
	snapshot []T
	syncTime int64
	// rejected counts records the server refused; rejectedIDs names them
	// when the server reports ids.
	rejected    int
	rejectedIDs []string
}

// unconfirm forgets the push of records the server refused, so the merge
// treats them as pending local edits. A server that only reports a count
// leaves every pushed live record missing from the snapshot unconfirmed.
func unconfirm[T any, PT localstore.EntityPtr[T]](b *batch[T], r reply[T]) {
	if r.rejected == 0 && len(r.rejectedIDs) == 0 {
		return
	}
	for _, id := range r.rejectedIDs {
		delete(b.pushed, id)
	}
	if r.rejected <= len(r.rejectedIDs) {
		return
	}
	inSnapshot := make(map[string]bool, len(r.snapshot))
	for i := range r.snapshot {
		inSnapshot[PT(&r.snapshot[i]).Meta().ID] = true
	}
	for i := range b.items {
		m := PT(&b.items[i]).Meta()
		if !inSnapshot[m.ID] && m.State != domain.StateDeleted {
			delete(b.pushed, m.ID)
		}
	}
}

// syncWith runs one push/merge round.
func syncWith[T any, PT localstore.EntityPtr[T]](ctx context.Context, e *Engine, c localstore.Collection,
	f localstore.Filter, check func(PT) error,
	push func(ctx context.Context, items []T) (reply[T], error)) (Result, error) {
	b, err := collect[T, PT](ctx, e.store, c, f, check)
	if err != nil {
		return Result{}, err
	}
	r, err := push(ctx, b.items)
	if err != nil {
		return Result{Rejected: b.rejected}, err
	}
	unconfirm[T, PT](&b, r)
	res := Result{Synced: len(b.items) - r.rejected, Rejected: b.rejected + r.rejected, SyncTime: r.syncTime}
	res.Merged, res.Removed, err = mergeSnapshot[T, PT](ctx, e.store, c, b.pushed, r.snapshot, e.keeper(c))
	return res, err
}

// mergeSnapshot writes the server snapshot locally as clean rows. The server
// wins for every id it returns, except over local edits it has not seen:
// rows that are dirty and were not pushed this round (or changed after being
// read for the push) are left alone. Local rows missing from the snapshot
// are removed unless they are such pending edits or keep reports them. A nil
// keep disables removal.
func mergeSnapshot[T any, PT localstore.EntityPtr[T]](ctx context.Context, s localstore.Store, c localstore.Collection,
	pushed map[string]time.Time, snapshot []T, keep func(id string) bool) (merged, removed int, err error) {
	local, err := s.GetAll(ctx, c, localstore.All())
	if err != nil {
		return 0, 0, err
	}
	byID := make(map[string]localstore.Row, len(local))
	for _, r := range local {
		byID[r.ID] = r
	}
	pending := func(r localstore.Row) bool {
		if !r.Dirty {
			return false
		}
		at, ok := pushed[r.ID]
		return !ok || r.UpdatedAt.After(at)
	}

	inSnapshot := make(map[string]bool, len(snapshot))
	rows := make([]localstore.Row, 0, len(snapshot))
	for i := range snapshot {
		p := PT(&snapshot[i])
		m := p.Meta()
		inSnapshot[m.ID] = true
		if cur, ok := byID[m.ID]; ok && pending(cur) {
			continue
		}
		m.Dirty = false
		row, err := localstore.Encode(p)
		if err != nil {
			return 0, 0, err
		}
		rows = append(rows, row)
	}
	if err := s.PutAll(ctx, c, rows); err != nil {
		return 0, 0, fmt.Errorf("merge %s: %w", c, err)
	}
	if keep == nil {
		return len(rows), 0, nil
	}

	for _, r := range local {
		if inSnapshot[r.ID] || pending(r) || keep(r.ID) {
			continue
		}
		if err := s.Delete(ctx, c, r.ID); err != nil {
			return len(rows), removed, fmt.Errorf("merge %s: %w", c, err)
		}
		removed++
	}
	return len(rows), removed, nil
}
