package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dom "Tempo/internal/domain"
	"Tempo/internal/dto"
	"Tempo/internal/firewall"
	"Tempo/internal/repo"
	"Tempo/internal/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"

	"Tempo/internal/cache"
)

// Repos groups the remote collections.
type Repos struct {
	Projects repo.ProjectRepo
	Tasks    repo.TaskRepo
	Logs     repo.LogRepo
	Settings repo.SettingsRepo
	Users    repo.UserRepo
}

// SyncService is the remote side of the sync contract: every push is an
// upsert followed by the owner's full snapshot of that collection.
type SyncService struct {
	repos Repos
	cache *cache.SnapshotCache
	sf    singleflight.Group
	log   *slog.Logger
	now   func() time.Time
}

// NewSyncService creates a SyncService. If c is nil, caching is disabled.
func NewSyncService(r Repos, c *cache.SnapshotCache, log *slog.Logger) *SyncService {
	return &SyncService{repos: r, cache: c, log: log, now: time.Now}
}

func (s *SyncService) SyncProjects(ctx context.Context, userID string, items []dom.Project) (dto.SyncProjectsResponse, error) {
	if err := s.repos.Projects.Upsert(ctx, userID, items); err != nil {
		return dto.SyncProjectsResponse{}, upsertError("projects", err)
	}
	s.invalidateCache(ctx, userID)
	list, err := s.repos.Projects.List(ctx, userID)
	if err != nil {
		return dto.SyncProjectsResponse{}, fmt.Errorf("list projects: %w", err)
	}
	return dto.SyncProjectsResponse{Success: true, Projects: list, SyncTime: s.now().UnixMilli()}, nil
}

func (s *SyncService) SyncTasks(ctx context.Context, userID string, items []dom.Task) (dto.SyncTasksResponse, error) {
	if err := s.repos.Tasks.Upsert(ctx, userID, items); err != nil {
		return dto.SyncTasksResponse{}, upsertError("tasks", err)
	}
	s.invalidateCache(ctx, userID)
	list, err := s.repos.Tasks.List(ctx, userID)
	if err != nil {
		return dto.SyncTasksResponse{}, fmt.Errorf("list tasks: %w", err)
	}
	return dto.SyncTasksResponse{Success: true, Tasks: list, SyncTime: s.now().UnixMilli()}, nil
}

// SyncLogs runs the firewall again on the server: a device on an old build
// may push sessions the current rules reject. Rejected sessions are dropped
// and named in the response so the device keeps them, the rest is stored.
func (s *SyncService) SyncLogs(ctx context.Context, userID string, items []dom.TimedSession) (dto.SyncLogsResponse, error) {
	now := s.now()
	valid := make([]dom.TimedSession, 0, len(items))
	var rejected []string
	for _, l := range items {
		if err := firewall.Check(l, now); err != nil {
			rejected = append(rejected, l.ID)
			s.log.Warn("session rejected", slog.String("user", userID), slog.String("error", err.Error()))
			continue
		}
		if !firewall.KnownStatus(l.Status) {
			s.log.Warn("session with unknown status accepted",
				slog.String("user", userID), slog.String("id", l.ID), slog.String("status", l.Status))
		}
		valid = append(valid, l)
	}
	if err := s.repos.Logs.Upsert(ctx, userID, valid); err != nil {
		return dto.SyncLogsResponse{}, upsertError("logs", err)
	}
	s.invalidateCache(ctx, userID)
	list, err := s.repos.Logs.List(ctx, userID)
	if err != nil {
		return dto.SyncLogsResponse{}, fmt.Errorf("list logs: %w", err)
	}
	return dto.SyncLogsResponse{
		Success:       true,
		Logs:          list,
		SyncedCount:   len(valid),
		RejectedCount: len(rejected),
		RejectedIDs:   rejected,
		SyncTime:      now.UnixMilli(),
	}, nil
}

func (s *SyncService) SyncSettings(ctx context.Context, userID string, in dom.Settings) (dto.SyncSettingsResponse, error) {
	stored, err := s.repos.Settings.Upsert(ctx, userID, in)
	if err != nil {
		return dto.SyncSettingsResponse{}, upsertError("settings", err)
	}
	s.invalidateCache(ctx, userID)
	return dto.SyncSettingsResponse{Success: true, Settings: stored}, nil
}

// upsertError maps a missing owner row to dom.ErrNotFound: a session can
// outlive its account.
func upsertError(what string, err error) error {
	if utils.IsPGForeignKeyViolation(err) {
		return fmt.Errorf("upsert %s: owner: %w", what, dom.ErrNotFound)
	}
	return fmt.Errorf("upsert %s: %w", what, err)
}

// Load returns the user's full snapshot. Concurrent loads for one user share
// a single database round.
func (s *SyncService) Load(ctx context.Context, userID string) (dto.LoadData, error) {
	if s.cache == nil {
		return s.load(ctx, userID)
	}
	v, err, _ := s.sf.Do("load:"+userID, func() (interface{}, error) {
		if data, err := s.cache.Get(ctx, userID); err == nil && data != nil {
			return *data, nil
		}
		data, err := s.load(ctx, userID)
		if err != nil {
			return nil, err
		}
		_ = s.cache.Set(ctx, userID, data)
		return data, nil
	})
	if err != nil {
		return dto.LoadData{}, err
	}
	return v.(dto.LoadData), nil
}

func (s *SyncService) load(ctx context.Context, userID string) (dto.LoadData, error) {
	u, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dto.LoadData{}, dom.ErrNotFound
		}
		return dto.LoadData{}, err
	}
	projects, err := s.repos.Projects.List(ctx, userID)
	if err != nil {
		return dto.LoadData{}, fmt.Errorf("list projects: %w", err)
	}
	tasks, err := s.repos.Tasks.List(ctx, userID)
	if err != nil {
		return dto.LoadData{}, fmt.Errorf("list tasks: %w", err)
	}
	logs, err := s.repos.Logs.List(ctx, userID)
	if err != nil {
		return dto.LoadData{}, fmt.Errorf("list logs: %w", err)
	}
	data := dto.LoadData{
		Projects:     projects,
		Tasks:        tasks,
		PomodoroLogs: logs,
		User:         dto.UserResponse{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName},
	}
	settings, err := s.repos.Settings.Get(ctx, userID)
	switch {
	case err == nil:
		data.Settings = &settings
	case !errors.Is(err, pgx.ErrNoRows):
		return dto.LoadData{}, fmt.Errorf("get settings: %w", err)
	}
	return data, nil
}

// SyncAll pushes every collection in order. The first failure aborts the
// remaining collections.
func (s *SyncService) SyncAll(ctx context.Context, userID string, req dto.SyncAllRequest) (dto.SyncAllResponse, error) {
	out := dto.SyncAllResponse{}
	if _, err := s.SyncProjects(ctx, userID, req.Projects); err != nil {
		return out, err
	}
	out.ProjectsSynced = len(req.Projects)
	if _, err := s.SyncTasks(ctx, userID, req.Tasks); err != nil {
		return out, err
	}
	out.TasksSynced = len(req.Tasks)
	logs, err := s.SyncLogs(ctx, userID, req.PomodoroLogs)
	if err != nil {
		return out, err
	}
	out.LogsSynced = logs.SyncedCount
	out.LogsRejected = logs.RejectedCount
	out.LogsRejectedIDs = logs.RejectedIDs
	if req.Settings != nil {
		if _, err := s.SyncSettings(ctx, userID, *req.Settings); err != nil {
			return out, err
		}
		out.SettingsSynced = true
	}
	out.Success = true
	out.Timestamp = s.now().UnixMilli()
	return out, nil
}

// LegacySync serves clients that predate the per-collection contract: one
// combined push, answered with the full snapshot. Those clients cannot seed
// system projects themselves, so every missing catalogue entry is added to
// the returned projects.
func (s *SyncService) LegacySync(ctx context.Context, userID string, req dto.SyncAllRequest) (dto.LegacySyncResponse, error) {
	res, err := s.SyncAll(ctx, userID, req)
	if err != nil {
		return dto.LegacySyncResponse{}, err
	}
	data, err := s.Load(ctx, userID)
	if err != nil {
		return dto.LegacySyncResponse{}, err
	}
	before := len(data.Projects)
	data.Projects = dom.WithSystemProjects(data.Projects)
	if n := len(data.Projects) - before; n > 0 {
		s.log.Info("legacy sync: injected system projects", slog.String("user", userID), slog.Int("count", n))
	}
	return dto.LegacySyncResponse{SyncAllResponse: res, Data: data}, nil
}

func (s *SyncService) invalidateCache(ctx context.Context, userID string) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, userID)
	}
}
