package domain

import "time"

// LifecycleState is the lifecycle of any synced record.
type LifecycleState string

const (
	StateActive   LifecycleState = "active"
	StateArchived LifecycleState = "archived"
	// StateDeleted marks a tombstone: the record is kept until the remote side
	// has acknowledged the delete.
	StateDeleted LifecycleState = "deleted"
)

// Record is the common part of every synced entity.
// Dirty means "modified locally, not yet acknowledged by the remote store".
type Record struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"ownerId"`
	Dirty     bool           `json:"dirty,omitempty"`
	State     LifecycleState `json:"state"`
	Order     float64        `json:"order"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Meta gives access to the embedded Record.
func (r *Record) Meta() *Record { return r }

// Touch marks the record as locally modified at now.
func (r *Record) Touch(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.State == "" {
		r.State = StateActive
	}
	r.UpdatedAt = now
	r.Dirty = true
}

// IndexKeys are the secondary-index values a record exposes to the local store.
type IndexKeys struct {
	ParentID  string
	TaskID    string
	ProjectID string
}

// Entity is implemented by every collection type.
type Entity interface {
	Meta() *Record
	Keys() IndexKeys
}
