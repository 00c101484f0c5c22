package hydration

import (
	"context"

	"Tempo/internal/domain"
	"Tempo/internal/dto"
	"Tempo/internal/localstore"
)

// persist writes the server snapshot as clean rows. Local rows with pending
// edits are left as they are.
func (c *Coordinator) persist(ctx context.Context, data dto.LoadData) error {
	if err := persistAll(ctx, c.store, localstore.Projects, data.Projects); err != nil {
		return err
	}
	if err := persistAll(ctx, c.store, localstore.Tasks, data.Tasks); err != nil {
		return err
	}
	if err := persistAll(ctx, c.store, localstore.Logs, data.PomodoroLogs); err != nil {
		return err
	}
	if data.Settings != nil {
		s := *data.Settings
		s.ID = domain.SettingsID
		return persistAll(ctx, c.store, localstore.Settings, []domain.Settings{s})
	}
	return nil
}

func persistAll[T any, PT localstore.EntityPtr[T]](ctx context.Context, s localstore.Store, c localstore.Collection, items []T) error {
	if len(items) == 0 {
		return nil
	}
	dirty, err := s.GetAll(ctx, c, localstore.DirtyOnly())
	if err != nil {
		return err
	}
	pending := make(map[string]bool, len(dirty))
	for _, r := range dirty {
		pending[r.ID] = true
	}
	rows := make([]localstore.Row, 0, len(items))
	for i := range items {
		p := PT(&items[i])
		if pending[p.Meta().ID] {
			continue
		}
		p.Meta().Dirty = false
		row, err := localstore.Encode(p)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return s.PutAll(ctx, c, rows)
}
