package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"Tempo/internal/domain"
)

// EntityPtr lets the typed helpers decode into T while calling Entity
// methods on *T.
type EntityPtr[T any] interface {
	*T
	domain.Entity
}

// Encode turns an entity into its stored row. The indexed columns are taken
// from the entity itself, so they never disagree with the payload.
func Encode(e domain.Entity) (Row, error) {
	m := e.Meta()
	data, err := json.Marshal(e)
	if err != nil {
		return Row{}, fmt.Errorf("localstore: encode %s: %w", m.ID, err)
	}
	k := e.Keys()
	return Row{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		State:     m.State,
		Dirty:     m.Dirty,
		ParentID:  k.ParentID,
		TaskID:    k.TaskID,
		ProjectID: k.ProjectID,
		Order:     m.Order,
		UpdatedAt: m.UpdatedAt,
		Data:      data,
	}, nil
}

// Decode is the inverse of Encode. The row's dirty column wins over the
// payload.
func Decode[T any, PT EntityPtr[T]](r Row) (T, error) {
	var v T
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return v, fmt.Errorf("localstore: decode %s: %w", r.ID, err)
	}
	m := PT(&v).Meta()
	m.Dirty = r.Dirty
	if m.State == "" {
		m.State = r.State
	}
	return v, nil
}

// Load reads one entity.
func Load[T any, PT EntityPtr[T]](ctx context.Context, s Store, c Collection, id string) (T, error) {
	r, err := s.Get(ctx, c, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T, PT](r)
}

// LoadAll reads every entity of c matching f.
func LoadAll[T any, PT EntityPtr[T]](ctx context.Context, s Store, c Collection, f Filter) ([]T, error) {
	rows, err := s.GetAll(ctx, c, f)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := Decode[T, PT](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Save writes one entity.
func Save(ctx context.Context, s Store, c Collection, e domain.Entity) error {
	r, err := Encode(e)
	if err != nil {
		return err
	}
	return s.Put(ctx, c, r)
}

// SaveAll writes entities atomically.
func SaveAll[T any, PT EntityPtr[T]](ctx context.Context, s Store, c Collection, items []T) error {
	rows := make([]Row, 0, len(items))
	for i := range items {
		r, err := Encode(PT(&items[i]))
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}
	return s.PutAll(ctx, c, rows)
}
