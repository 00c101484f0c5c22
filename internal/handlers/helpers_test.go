package handlers

import (
	"context"
	"fmt"
	"sync"

	"Tempo/internal/auth"
	dom "Tempo/internal/domain"

	"github.com/jackc/pgx/v5"
)

type memRegistry struct {
	mu       sync.Mutex
	n        int
	sessions map[string]auth.Session
}

func newMemRegistry() *memRegistry {
	return &memRegistry{sessions: map[string]auth.Session{}}
}

func (m *memRegistry) Create(_ context.Context, s auth.Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	tok := fmt.Sprintf("tok-%d", m.n)
	m.sessions[tok] = s
	return tok, nil
}

func (m *memRegistry) Lookup(_ context.Context, token string) (auth.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	return s, ok, nil
}

func (m *memRegistry) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]dom.User
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (dom.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return dom.User{}, pgx.ErrNoRows
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (dom.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memUserRepo) Create(_ context.Context, u dom.User) (dom.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = map[string]dom.User{}
	}
	m.users[u.ID] = u
	return u, nil
}
