package service

import (
	"context"
	"errors"
	"testing"

	dom "Tempo/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterAndLogin(t *testing.T) {
	svc := NewUserService(newMemUsers())
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Ada@Example.com ", "secret1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "ada", u.DisplayName)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	got, err := svc.ValidateCredentials(ctx, "ADA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.ValidateCredentials(ctx, "ada@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = svc.ValidateCredentials(ctx, "nobody@example.com", "secret1")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestUserService_DuplicateEmail(t *testing.T) {
	svc := NewUserService(newMemUsers())
	ctx := context.Background()
	_, err := svc.Register(ctx, "a@example.com", "secret1", "A")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "a@example.com", "secret2", "B")
	assert.True(t, errors.Is(err, ErrEmailTaken))
}

func TestUserService_GetByID(t *testing.T) {
	svc := NewUserService(newMemUsers(dom.User{ID: "u1", Email: "a@example.com"}))
	u, err := svc.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)

	_, err = svc.GetByID(context.Background(), "nope")
	assert.True(t, errors.Is(err, dom.ErrNotFound))
}
