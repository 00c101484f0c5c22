//go:build e2e

package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestStore_Lifecycle(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	s := NewStore(rdb, time.Minute)

	token, err := s.Create(ctx, Session{UserID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)
	assert.Len(t, token, 32)

	got, ok, err := s.Lookup(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID)
	assert.False(t, got.CreatedAt.IsZero())

	ttl, err := rdb.TTL(ctx, sessionKeyPrefix+token).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)

	require.NoError(t, s.Delete(ctx, token))
	_, ok, err = s.Lookup(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Expiry(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	s := NewStore(rdb, time.Second)

	token, err := s.Create(ctx, Session{UserID: "u1"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok, err := s.Lookup(ctx, token)
		return err == nil && !ok
	}, 5*time.Second, 200*time.Millisecond)
}

func TestStore_LookupErrorOmitsToken(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	s := NewStore(rdb, time.Minute)

	token := "0123456789abcdef0123456789abcdef"
	require.NoError(t, rdb.Set(ctx, sessionKeyPrefix+token, "{not json", time.Minute).Err())

	_, ok, err := s.Lookup(ctx, token)
	require.Error(t, err)
	assert.False(t, ok)
	assert.NotContains(t, err.Error(), token)
}
