package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Tempo/internal/domain"
)

func TestSaveLoad_Task(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	parent := "t0"

	task := domain.Task{
		Record:          domain.Record{ID: "t1", OwnerID: "u1", State: domain.StateActive, Dirty: true, Order: 4},
		Name:            "write report",
		ProjectID:       "inbox",
		ParentID:        &parent,
		IntervalSeconds: 1500,
	}
	require.NoError(t, Save(ctx, s, Tasks, &task))

	row, err := s.Get(ctx, Tasks, "t1")
	require.NoError(t, err)
	assert.Equal(t, "inbox", row.ProjectID)
	assert.Equal(t, "t0", row.ParentID)
	assert.True(t, row.Dirty)

	got, err := Load[domain.Task](ctx, s, Tasks, "t1")
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestDecode_DirtyColumnWins(t *testing.T) {
	got, err := Decode[domain.Project](Row{ID: "p", Dirty: true, Data: []byte(`{"id":"p","name":"x","state":"active"}`)})
	require.NoError(t, err)
	assert.True(t, got.Dirty)
	assert.Equal(t, "x", got.Name)
}

func TestSaveAll_LoadAll_Sessions(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	sessions := []domain.TimedSession{
		{Record: domain.Record{ID: "s1", Dirty: true, UpdatedAt: now}, TaskID: "t1", Status: domain.SessionCompleted, StartTime: 1000, EndTime: 2500, Duration: 1500},
		{Record: domain.Record{ID: "s2", UpdatedAt: now}, TaskID: "t2", Status: domain.SessionTodo},
	}
	require.NoError(t, SaveAll(ctx, s, Logs, sessions))

	forTask, err := LoadAll[domain.TimedSession](ctx, s, Logs, Filter{TaskID: "t1"})
	require.NoError(t, err)
	require.Len(t, forTask, 1)
	assert.Equal(t, int64(1500), forTask[0].Duration)
	assert.True(t, forTask[0].Dirty)

	dirty, err := LoadAll[domain.TimedSession](ctx, s, Logs, DirtyOnly())
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, "s1", dirty[0].ID)
}
