package syncengine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"Tempo/internal/domain"
	"Tempo/internal/dto"
	"Tempo/internal/localstore"

	"github.com/stretchr/testify/require"
)

// table mimics one remote collection: last writer wins, tombstones are kept
// but never returned.
type table[T any, PT localstore.EntityPtr[T]] struct {
	rows map[string]T
}

func (t *table[T, PT]) upsert(items []T) {
	if t.rows == nil {
		t.rows = map[string]T{}
	}
	for _, it := range items {
		m := PT(&it).Meta()
		m.Dirty = false
		if old, ok := t.rows[m.ID]; ok && PT(&old).Meta().UpdatedAt.After(m.UpdatedAt) {
			continue
		}
		t.rows[m.ID] = it
	}
}

func (t *table[T, PT]) snapshot() []T {
	out := []T{}
	for _, it := range t.rows {
		if PT(&it).Meta().State != domain.StateDeleted {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return PT(&out[i]).Meta().ID < PT(&out[j]).Meta().ID })
	return out
}

type fakeRemote struct {
	mu       sync.Mutex
	projects table[domain.Project, *domain.Project]
	tasks    table[domain.Task, *domain.Task]
	logs     table[domain.TimedSession, *domain.TimedSession]
	settings *domain.Settings

	calls     map[string]int
	pushedLog []domain.TimedSession
	failOn    string
	// rejectLog is the server's own session check; countOnly hides the
	// rejected ids like an older server does.
	rejectLog func(domain.TimedSession) bool
	countOnly bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{calls: map[string]int{}}
}

func (f *fakeRemote) call(name string) error {
	f.calls[name]++
	if f.failOn == name {
		return domain.ErrNetwork
	}
	return nil
}

func (f *fakeRemote) SyncProjects(_ context.Context, items []domain.Project) (dto.SyncProjectsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("projects"); err != nil {
		return dto.SyncProjectsResponse{}, err
	}
	f.projects.upsert(items)
	return dto.SyncProjectsResponse{Success: true, Projects: f.projects.snapshot(), SyncTime: 1}, nil
}

func (f *fakeRemote) SyncTasks(_ context.Context, items []domain.Task) (dto.SyncTasksResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("tasks"); err != nil {
		return dto.SyncTasksResponse{}, err
	}
	f.tasks.upsert(items)
	return dto.SyncTasksResponse{Success: true, Tasks: f.tasks.snapshot(), SyncTime: 2}, nil
}

func (f *fakeRemote) SyncLogs(_ context.Context, items []domain.TimedSession) (dto.SyncLogsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("logs"); err != nil {
		return dto.SyncLogsResponse{}, err
	}
	f.pushedLog = append(f.pushedLog, items...)
	kept, rejected := f.screenLogs(items)
	f.logs.upsert(kept)
	res := dto.SyncLogsResponse{Success: true, Logs: f.logs.snapshot(), SyncedCount: len(kept),
		RejectedCount: len(rejected), SyncTime: 3}
	if !f.countOnly {
		res.RejectedIDs = rejected
	}
	return res, nil
}

func (f *fakeRemote) screenLogs(items []domain.TimedSession) (kept []domain.TimedSession, rejected []string) {
	for _, l := range items {
		if f.rejectLog != nil && f.rejectLog(l) {
			rejected = append(rejected, l.ID)
			continue
		}
		kept = append(kept, l)
	}
	return kept, rejected
}

func (f *fakeRemote) SyncSettings(_ context.Context, s domain.Settings) (dto.SyncSettingsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("settings"); err != nil {
		return dto.SyncSettingsResponse{}, err
	}
	s.Dirty = false
	f.settings = &s
	return dto.SyncSettingsResponse{Success: true, Settings: s}, nil
}

func (f *fakeRemote) Load(context.Context) (dto.LoadData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("load"); err != nil {
		return dto.LoadData{}, err
	}
	return dto.LoadData{
		Projects:     f.projects.snapshot(),
		Tasks:        f.tasks.snapshot(),
		PomodoroLogs: f.logs.snapshot(),
		Settings:     f.settings,
	}, nil
}

func (f *fakeRemote) LegacySync(_ context.Context, req dto.SyncAllRequest) (dto.LegacySyncResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("legacy"); err != nil {
		return dto.LegacySyncResponse{}, err
	}
	f.projects.upsert(req.Projects)
	f.tasks.upsert(req.Tasks)
	f.pushedLog = append(f.pushedLog, req.PomodoroLogs...)
	kept, rejected := f.screenLogs(req.PomodoroLogs)
	f.logs.upsert(kept)
	if req.Settings != nil {
		s := *req.Settings
		s.Dirty = false
		f.settings = &s
	}
	return dto.LegacySyncResponse{
		SyncAllResponse: dto.SyncAllResponse{
			Success:         true,
			ProjectsSynced:  len(req.Projects),
			TasksSynced:     len(req.Tasks),
			LogsSynced:      len(kept),
			LogsRejected:    len(rejected),
			LogsRejectedIDs: rejected,
			SettingsSynced:  req.Settings != nil,
		},
		Data: dto.LoadData{
			Projects:     domain.WithSystemProjects(f.projects.snapshot()),
			Tasks:        f.tasks.snapshot(),
			PomodoroLogs: f.logs.snapshot(),
			Settings:     f.settings,
		},
	}, nil
}

type gate bool

func (g gate) CanSync() bool { return bool(g) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *localstore.SQLite {
	t.Helper()
	s, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func save(t *testing.T, s localstore.Store, c localstore.Collection, e domain.Entity) {
	t.Helper()
	e.Meta().Touch(time.Now())
	require.NoError(t, localstore.Save(context.Background(), s, c, e))
}
