// Package localstore is the device-resident record store: one SQLite file
// holding every synced collection, with secondary indexes on lifecycle
// state, dirty flag and parent references.
//
// Destructive operations can be intercepted by wrapping a Store with
// Protect, and dirty writes observed with Watch. Call sites keep using the
// Store interface either way.
package localstore

import (
	"context"
	"time"

	"Tempo/internal/domain"
)

// Collection names a record collection.
type Collection string

const (
	Projects Collection = "projects"
	Tasks    Collection = "tasks"
	Logs     Collection = "logs"
	Settings Collection = "settings"
)

// Collections lists every synced collection in sync order.
var Collections = []Collection{Projects, Tasks, Logs, Settings}

// Row is the stored form of a record: indexed columns plus the JSON payload.
type Row struct {
	ID        string
	OwnerID   string
	State     domain.LifecycleState
	Dirty     bool
	ParentID  string
	TaskID    string
	ProjectID string
	Order     float64
	UpdatedAt time.Time
	Data      []byte
}

// Filter selects rows by indexed columns. Zero fields do not filter.
type Filter struct {
	OwnerID   string
	State     domain.LifecycleState
	Dirty     *bool
	ParentID  string
	TaskID    string
	ProjectID string
}

// DirtyOnly selects rows not yet acknowledged by the remote store.
func DirtyOnly() Filter {
	d := true
	return Filter{Dirty: &d}
}

// All selects every row.
func All() Filter { return Filter{} }

// Store is the keyed local store.
type Store interface {
	// Get returns domain.ErrNotFound when id is absent.
	Get(ctx context.Context, c Collection, id string) (Row, error)
	GetAll(ctx context.Context, c Collection, f Filter) ([]Row, error)
	Count(ctx context.Context, c Collection, f Filter) (int, error)
	Put(ctx context.Context, c Collection, r Row) error
	// PutAll writes rows atomically.
	PutAll(ctx context.Context, c Collection, rows []Row) error
	Delete(ctx context.Context, c Collection, id string) error
	Clear(ctx context.Context, c Collection) error
}

// Meta is a small key/value area for markers that are not records.
type Meta interface {
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
	DeleteMeta(ctx context.Context, key string) error
}
