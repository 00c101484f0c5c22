package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	dom "Tempo/internal/domain"
	"Tempo/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func newTestSyncService() *SyncService {
	s := NewSyncService(Repos{
		Projects: newProjectTable(),
		Tasks:    newTaskTable(),
		Logs:     newLogTable(),
		Settings: &memSettings{},
		Users:    newMemUsers(dom.User{ID: "u1", Email: "a@example.com", DisplayName: "A"}),
	}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return testNow }
	return s
}

func TestSyncProjects_ReturnsOwnerSnapshot(t *testing.T) {
	svc := newTestSyncService()
	ctx := context.Background()

	_, err := svc.SyncProjects(ctx, "u2", []dom.Project{{Record: dom.Record{ID: "other"}, Name: "Other"}})
	require.NoError(t, err)

	res, err := svc.SyncProjects(ctx, "u1", []dom.Project{
		{Record: dom.Record{ID: "p1"}, Name: "Work"},
		{Record: dom.Record{ID: "p2", State: dom.StateDeleted}, Name: "Gone"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, testNow.UnixMilli(), res.SyncTime)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, "p1", res.Projects[0].ID)
	assert.Equal(t, "u1", res.Projects[0].OwnerID)
	assert.False(t, res.Projects[0].Dirty)
}

func TestSyncProjects_OlderUpdateLoses(t *testing.T) {
	svc := newTestSyncService()
	ctx := context.Background()
	newer := testNow
	older := testNow.Add(-time.Minute)

	_, err := svc.SyncProjects(ctx, "u1", []dom.Project{{Record: dom.Record{ID: "p1", UpdatedAt: newer}, Name: "New"}})
	require.NoError(t, err)
	res, err := svc.SyncProjects(ctx, "u1", []dom.Project{{Record: dom.Record{ID: "p1", UpdatedAt: older}, Name: "Old"}})
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, "New", res.Projects[0].Name)
}

func TestSyncLogs_RejectsInvalidSessions(t *testing.T) {
	svc := newTestSyncService()
	res, err := svc.SyncLogs(context.Background(), "u1", []dom.TimedSession{
		{Record: dom.Record{ID: "ok"}, Status: dom.SessionCompleted, StartTime: 1000, EndTime: 2000, Duration: 1000},
		{Record: dom.Record{ID: "bad"}, Status: dom.SessionCompleted, StartTime: 1000, EndTime: 2000, Duration: 5000},
		{Record: dom.Record{ID: "cancel"}, Status: dom.SessionCancelled},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SyncedCount)
	assert.Equal(t, 1, res.RejectedCount)
	assert.Equal(t, []string{"bad"}, res.RejectedIDs)
	ids := []string{}
	for _, l := range res.Logs {
		ids = append(ids, l.ID)
	}
	assert.ElementsMatch(t, []string{"ok", "cancel"}, ids)
}

func TestLoad_NoSettingsAndUnknownUser(t *testing.T) {
	svc := newTestSyncService()
	ctx := context.Background()

	data, err := svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, data.Settings)
	assert.Equal(t, "a@example.com", data.User.Email)
	assert.Empty(t, data.Projects)

	_, err = svc.Load(ctx, "ghost")
	assert.True(t, errors.Is(err, dom.ErrNotFound))
}

func TestSyncAll_Counts(t *testing.T) {
	svc := newTestSyncService()
	res, err := svc.SyncAll(context.Background(), "u1", dto.SyncAllRequest{
		Projects: []dom.Project{{Record: dom.Record{ID: "p1"}}},
		Tasks:    []dom.Task{{Record: dom.Record{ID: "t1"}, ProjectID: "p1"}, {Record: dom.Record{ID: "t2"}, ProjectID: "p1"}},
		PomodoroLogs: []dom.TimedSession{
			{Record: dom.Record{ID: "l1"}, Status: dom.SessionPaused},
		},
		Settings: &dom.Settings{Values: map[string]any{"theme": "dark"}},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ProjectsSynced)
	assert.Equal(t, 2, res.TasksSynced)
	assert.Equal(t, 0, res.LogsSynced)
	assert.Equal(t, 1, res.LogsRejected)
	assert.Equal(t, []string{"l1"}, res.LogsRejectedIDs)
	assert.True(t, res.SettingsSynced)
	assert.Equal(t, testNow.UnixMilli(), res.Timestamp)
}

func TestLegacySync_InjectsSystemProjects(t *testing.T) {
	svc := newTestSyncService()
	inbox := dom.NewSystemProject(dom.Catalogue[7], 7)
	inbox.Name = "My Inbox"

	res, err := svc.LegacySync(context.Background(), "u1", dto.SyncAllRequest{
		Projects: []dom.Project{inbox, {Record: dom.Record{ID: "p1"}, Name: "Work"}},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Data.Projects, len(dom.Catalogue)+1)

	byID := map[string]dom.Project{}
	for _, p := range res.Data.Projects {
		byID[p.ID] = p
	}
	for _, e := range dom.Catalogue {
		require.Contains(t, byID, e.ID)
		assert.Equal(t, e.TypeTag, byID[e.ID].TypeTag)
	}
	assert.Equal(t, "My Inbox", byID["inbox"].Name, "stored system project is not replaced by the default")
	assert.Equal(t, 1000, byID["inbox"].TypeTag)
}
