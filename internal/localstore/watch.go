package localstore

import "context"

// Watched is a Store decorator that reports dirty writes.
type Watched struct {
	Store
	onDirty func(Collection)
}

// Watch calls fn(c) after every successful write that leaves a dirty row in c.
func Watch(s Store, fn func(Collection)) *Watched {
	return &Watched{Store: s, onDirty: fn}
}

func (w *Watched) Put(ctx context.Context, c Collection, r Row) error {
	if err := w.Store.Put(ctx, c, r); err != nil {
		return err
	}
	if r.Dirty {
		w.onDirty(c)
	}
	return nil
}

func (w *Watched) PutAll(ctx context.Context, c Collection, rows []Row) error {
	if err := w.Store.PutAll(ctx, c, rows); err != nil {
		return err
	}
	for _, r := range rows {
		if r.Dirty {
			w.onDirty(c)
			break
		}
	}
	return nil
}
