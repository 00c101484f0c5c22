//go:build e2e

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	dom "Tempo/internal/domain"
	"Tempo/internal/utils"
	"Tempo/migrations"
)

func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "tempo",
				"POSTGRES_USER":     "tempo",
				"POSTGRES_PASSWORD": "secret",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://tempo:secret@%s:%s/tempo?sslmode=disable", host, port.Port())

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	require.NoError(t, err)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	require.NoError(t, err)
	_, err = provider.Up(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestRepos_LastWriterWins(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()

	users := NewPGUserRepo(pool)
	_, err := users.Create(ctx, dom.User{ID: "u1", Email: "u1@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	_, err = users.Create(ctx, dom.User{ID: "u2", Email: "u1@example.com", PasswordHash: "x"})
	assert.True(t, utils.IsPGUniqueViolation(err))

	tasks := NewPGTaskRepo(pool)
	t0 := time.Now().UTC().Truncate(time.Millisecond)
	task := dom.Task{Record: dom.Record{ID: "t1", UpdatedAt: t0}, Name: "v1", ProjectID: "inbox"}
	require.NoError(t, tasks.Upsert(ctx, "u1", []dom.Task{task}))

	older := task
	older.Name = "stale"
	older.UpdatedAt = t0.Add(-time.Minute)
	require.NoError(t, tasks.Upsert(ctx, "u1", []dom.Task{older}))

	list, err := tasks.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "v1", list[0].Name)
	assert.Equal(t, dom.DefaultIntervalSeconds, list[0].IntervalSeconds)

	newer := task
	newer.Name = "v2"
	newer.UpdatedAt = t0.Add(time.Minute)
	require.NoError(t, tasks.Upsert(ctx, "u1", []dom.Task{newer}))
	list, err = tasks.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "v2", list[0].Name)

	tomb := newer
	tomb.State = dom.StateDeleted
	tomb.UpdatedAt = t0.Add(2 * time.Minute)
	require.NoError(t, tasks.Upsert(ctx, "u1", []dom.Task{tomb}))
	list, err = tasks.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepos_SessionsAndSettings(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	_, err := NewPGUserRepo(pool).Create(ctx, dom.User{ID: "u1", Email: "u1@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	logs := NewPGLogRepo(pool)
	s := dom.TimedSession{Record: dom.Record{ID: "s1"}, TaskID: "t1", Status: dom.SessionCompleted,
		StartTime: 1_700_000_000_000, EndTime: 1_700_000_060_000, Duration: 60_000}
	require.NoError(t, logs.Upsert(ctx, "u1", []dom.TimedSession{s}))
	got, err := logs.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(60_000), got[0].Duration)

	settings := NewPGSettingsRepo(pool)
	saved, err := settings.Upsert(ctx, "u1", dom.Settings{Values: map[string]any{"theme": "dark"}})
	require.NoError(t, err)
	assert.Equal(t, "dark", saved.Values["theme"])
	loaded, err := settings.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "dark", loaded.Values["theme"])

	projects := NewPGProjectRepo(pool)
	require.NoError(t, projects.Upsert(ctx, "u1", []dom.Project{{Record: dom.Record{ID: "p1"}, Name: "Mine", Kind: dom.KindRegular}}))
	list, err := projects.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0].OwnerID)
}
