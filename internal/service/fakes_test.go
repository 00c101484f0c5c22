package service

import (
	"context"
	"sort"
	"sync"
	"time"

	dom "Tempo/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memTable is an in-memory stand-in for one Postgres sync table with the
// same last-writer-wins and tombstone rules.
type memTable[T any] struct {
	mu   sync.Mutex
	rows map[string]map[string]T
	meta func(*T) *dom.Record
}

func newMemTable[T any](meta func(*T) *dom.Record) *memTable[T] {
	return &memTable[T]{rows: map[string]map[string]T{}, meta: meta}
}

func (m *memTable[T]) Upsert(_ context.Context, ownerID string, items []T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[ownerID] == nil {
		m.rows[ownerID] = map[string]T{}
	}
	now := time.Now().UTC()
	for _, it := range items {
		r := m.meta(&it)
		r.OwnerID = ownerID
		r.Dirty = false
		if r.State == "" {
			r.State = dom.StateActive
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
		if old, ok := m.rows[ownerID][r.ID]; ok && m.meta(&old).UpdatedAt.After(r.UpdatedAt) {
			continue
		}
		m.rows[ownerID][r.ID] = it
	}
	return nil
}

func (m *memTable[T]) List(_ context.Context, ownerID string) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []T{}
	for _, it := range m.rows[ownerID] {
		if m.meta(&it).State != dom.StateDeleted {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.meta(&out[i]).ID < m.meta(&out[j]).ID })
	return out, nil
}

func newProjectTable() *memTable[dom.Project] {
	return newMemTable(func(p *dom.Project) *dom.Record { return &p.Record })
}

func newTaskTable() *memTable[dom.Task] {
	return newMemTable(func(t *dom.Task) *dom.Record { return &t.Record })
}

func newLogTable() *memTable[dom.TimedSession] {
	return newMemTable(func(s *dom.TimedSession) *dom.Record { return &s.Record })
}

type memSettings struct {
	mu   sync.Mutex
	docs map[string]dom.Settings
}

func (m *memSettings) Upsert(ctx context.Context, ownerID string, s dom.Settings) (dom.Settings, error) {
	m.mu.Lock()
	if m.docs == nil {
		m.docs = map[string]dom.Settings{}
	}
	s.ID = dom.SettingsID
	s.OwnerID = ownerID
	s.Dirty = false
	if old, ok := m.docs[ownerID]; !ok || !old.UpdatedAt.After(s.UpdatedAt) {
		m.docs[ownerID] = s
	}
	m.mu.Unlock()
	return m.Get(ctx, ownerID)
}

func (m *memSettings) Get(_ context.Context, ownerID string) (dom.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.docs[ownerID]
	if !ok {
		return dom.Settings{}, pgx.ErrNoRows
	}
	return s, nil
}

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]dom.User
	calls int
}

func newMemUsers(users ...dom.User) *memUsers {
	m := &memUsers{byID: map[string]dom.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (dom.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return dom.User{}, pgx.ErrNoRows
}

func (m *memUsers) GetByID(_ context.Context, id string) (dom.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	u, ok := m.byID[id]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, u dom.User) (dom.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return dom.User{}, &pgconn.PgError{Code: "23505"}
		}
	}
	u.CreatedAt = time.Now().UTC()
	m.byID[u.ID] = u
	return u, nil
}
