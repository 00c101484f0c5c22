// Package syncengine pushes locally modified records to the remote store and
// merges the remote snapshot back, one collection at a time.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"Tempo/internal/domain"
	"Tempo/internal/dto"
	"Tempo/internal/firewall"
	"Tempo/internal/localstore"
)

// MetaLastSyncTime is the meta key holding the last complete SyncAll (epoch ms).
const MetaLastSyncTime = "lastSyncTime"

// Remote is the server side of the sync contract.
type Remote interface {
	SyncProjects(ctx context.Context, items []domain.Project) (dto.SyncProjectsResponse, error)
	SyncTasks(ctx context.Context, items []domain.Task) (dto.SyncTasksResponse, error)
	SyncLogs(ctx context.Context, items []domain.TimedSession) (dto.SyncLogsResponse, error)
	SyncSettings(ctx context.Context, s domain.Settings) (dto.SyncSettingsResponse, error)
	Load(ctx context.Context) (dto.LoadData, error)
	LegacySync(ctx context.Context, req dto.SyncAllRequest) (dto.LegacySyncResponse, error)
}

// Gate tells the engine whether syncing is allowed right now.
type Gate interface {
	CanSync() bool
}

// Result describes one collection sync.
type Result struct {
	Collection localstore.Collection
	// Synced is how many pushed records the server accepted.
	Synced int
	// Rejected counts sessions the firewall kept back (locally or remotely).
	Rejected int
	// Merged is how many snapshot records were written locally.
	Merged int
	// Removed is how many local records disappeared because the server no
	// longer has them.
	Removed  int
	SyncTime int64
}

// Engine syncs the local store with a Remote.
type Engine struct {
	store  localstore.Store
	meta   localstore.Meta
	remote Remote
	gate   Gate
	guard  localstore.Guard
	log    *slog.Logger
	now    func() time.Time

	locks map[localstore.Collection]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithGuard makes merges keep the records g protects even when the server
// snapshot lacks them.
func WithGuard(g localstore.Guard) Option {
	return func(e *Engine) { e.guard = g }
}

// New returns an Engine. store should be the guarded store so remote deletes
// cannot remove system projects.
func New(store localstore.Store, meta localstore.Meta, remote Remote, gate Gate, log *slog.Logger, opts ...Option) *Engine {
	locks := make(map[localstore.Collection]*sync.Mutex, len(localstore.Collections))
	for _, c := range localstore.Collections {
		locks[c] = &sync.Mutex{}
	}
	e := &Engine{store: store, meta: meta, remote: remote, gate: gate, log: log, now: time.Now, locks: locks}
	for _, o := range opts {
		o(e)
	}
	return e
}

// keeper returns the prune exemption for c.
func (e *Engine) keeper(c localstore.Collection) func(string) bool {
	if e.guard == nil {
		return func(string) bool { return false }
	}
	return func(id string) bool { return e.guard.Protects(c, id) }
}

// SyncCollection pushes the dirty records of c and merges the snapshot.
func (e *Engine) SyncCollection(ctx context.Context, c localstore.Collection) (Result, error) {
	return e.syncCollection(ctx, c, localstore.DirtyOnly())
}

// SyncCollectionFull pushes every record of c, dirty or not.
func (e *Engine) SyncCollectionFull(ctx context.Context, c localstore.Collection) (Result, error) {
	return e.syncCollection(ctx, c, localstore.All())
}

func (e *Engine) syncCollection(ctx context.Context, c localstore.Collection, f localstore.Filter) (Result, error) {
	if !e.gate.CanSync() {
		return Result{Collection: c}, domain.ErrNotReady
	}
	mu, ok := e.locks[c]
	if !ok {
		return Result{Collection: c}, fmt.Errorf("syncengine: unknown collection %q", c)
	}
	mu.Lock()
	defer mu.Unlock()

	start := e.now()
	var (
		res Result
		err error
	)
	switch c {
	case localstore.Projects:
		res, err = syncWith(ctx, e, c, f, nil, func(ctx context.Context, items []domain.Project) (reply[domain.Project], error) {
			r, err := e.remote.SyncProjects(ctx, items)
			return reply[domain.Project]{snapshot: r.Projects, syncTime: r.SyncTime}, err
		})
	case localstore.Tasks:
		res, err = syncWith(ctx, e, c, f, nil, func(ctx context.Context, items []domain.Task) (reply[domain.Task], error) {
			r, err := e.remote.SyncTasks(ctx, items)
			return reply[domain.Task]{snapshot: r.Tasks, syncTime: r.SyncTime}, err
		})
	case localstore.Logs:
		res, err = syncWith(ctx, e, c, f, e.checkSession, func(ctx context.Context, items []domain.TimedSession) (reply[domain.TimedSession], error) {
			r, err := e.remote.SyncLogs(ctx, items)
			return reply[domain.TimedSession]{snapshot: r.Logs, syncTime: r.SyncTime,
				rejected: r.RejectedCount, rejectedIDs: r.RejectedIDs}, err
		})
	case localstore.Settings:
		res, err = e.syncSettings(ctx, f)
	}
	res.Collection = c
	if err != nil {
		e.log.Warn("sync failed", slog.String("collection", string(c)), slog.String("error", err.Error()))
		return res, err
	}
	e.log.Info("collection synced",
		slog.String("collection", string(c)),
		slog.Int("pushed", res.Synced),
		slog.Int("rejected", res.Rejected),
		slog.Int("merged", res.Merged),
		slog.Int("removed", res.Removed),
		slog.Duration("dur", e.now().Sub(start)),
	)
	return res, nil
}

// syncSettings pushes the local document when it changed. Otherwise the
// settings endpoint has nothing to send, so the stored document is pulled
// from the load snapshot instead.
func (e *Engine) syncSettings(ctx context.Context, f localstore.Filter) (Result, error) {
	b, err := collect[domain.Settings](ctx, e.store, localstore.Settings, f, nil)
	if err != nil {
		return Result{}, err
	}
	if len(b.items) == 0 {
		return e.pullSettings(ctx)
	}
	r, err := e.remote.SyncSettings(ctx, b.items[0])
	if err != nil {
		return Result{}, err
	}
	stored := r.Settings
	stored.ID = domain.SettingsID
	merged, _, err := mergeSnapshot(ctx, e.store, localstore.Settings, b.pushed, []domain.Settings{stored}, nil)
	if err != nil {
		return Result{}, err
	}
	return Result{Synced: 1, Merged: merged, SyncTime: e.now().UnixMilli()}, nil
}

func (e *Engine) pullSettings(ctx context.Context) (Result, error) {
	data, err := e.remote.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	if data.Settings == nil {
		return Result{}, nil
	}
	stored := *data.Settings
	stored.ID = domain.SettingsID
	merged, _, err := mergeSnapshot(ctx, e.store, localstore.Settings, nil, []domain.Settings{stored}, nil)
	if err != nil {
		return Result{}, err
	}
	return Result{Merged: merged, SyncTime: e.now().UnixMilli()}, nil
}

// SyncAll syncs every collection in order and records the sync time when all
// of them succeeded. A failing collection does not stop the others.
func (e *Engine) SyncAll(ctx context.Context) ([]Result, error) {
	if !e.gate.CanSync() {
		return nil, domain.ErrNotReady
	}
	var (
		out  []Result
		errs []error
	)
	for _, c := range localstore.Collections {
		res, err := e.SyncCollection(ctx, c)
		out = append(out, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
		}
	}
	if len(errs) > 0 {
		return out, errors.Join(errs...)
	}
	now := e.now().UnixMilli()
	if err := e.meta.SetMeta(ctx, MetaLastSyncTime, strconv.FormatInt(now, 10)); err != nil {
		return out, err
	}
	return out, nil
}

// LastSyncTime returns the time of the last complete SyncAll.
func (e *Engine) LastSyncTime(ctx context.Context) (time.Time, bool, error) {
	v, ok, err := e.meta.GetMeta(ctx, MetaLastSyncTime)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("syncengine: bad %s %q: %w", MetaLastSyncTime, v, err)
	}
	return time.UnixMilli(ms), true, nil
}

// SyncLegacy pushes every record through the combined legacy endpoint and
// merges the returned snapshot into all collections.
func (e *Engine) SyncLegacy(ctx context.Context) (dto.SyncAllResponse, error) {
	if !e.gate.CanSync() {
		return dto.SyncAllResponse{}, domain.ErrNotReady
	}
	for _, c := range localstore.Collections {
		e.locks[c].Lock()
		defer e.locks[c].Unlock()
	}

	projects, err := collect[domain.Project](ctx, e.store, localstore.Projects, localstore.All(), nil)
	if err != nil {
		return dto.SyncAllResponse{}, err
	}
	tasks, err := collect[domain.Task](ctx, e.store, localstore.Tasks, localstore.All(), nil)
	if err != nil {
		return dto.SyncAllResponse{}, err
	}
	logs, err := collect[domain.TimedSession](ctx, e.store, localstore.Logs, localstore.All(), e.checkSession)
	if err != nil {
		return dto.SyncAllResponse{}, err
	}
	settings, err := collect[domain.Settings](ctx, e.store, localstore.Settings, localstore.All(), nil)
	if err != nil {
		return dto.SyncAllResponse{}, err
	}
	req := dto.SyncAllRequest{Projects: projects.items, Tasks: tasks.items, PomodoroLogs: logs.items}
	if len(settings.items) > 0 {
		req.Settings = &settings.items[0]
	}

	res, err := e.remote.LegacySync(ctx, req)
	if err != nil {
		return dto.SyncAllResponse{}, err
	}
	if _, _, err := mergeSnapshot(ctx, e.store, localstore.Projects, projects.pushed, res.Data.Projects, e.keeper(localstore.Projects)); err != nil {
		return dto.SyncAllResponse{}, err
	}
	if _, _, err := mergeSnapshot(ctx, e.store, localstore.Tasks, tasks.pushed, res.Data.Tasks, e.keeper(localstore.Tasks)); err != nil {
		return dto.SyncAllResponse{}, err
	}
	unconfirm[domain.TimedSession](&logs, reply[domain.TimedSession]{snapshot: res.Data.PomodoroLogs,
		rejected: res.LogsRejected, rejectedIDs: res.LogsRejectedIDs})
	if _, _, err := mergeSnapshot(ctx, e.store, localstore.Logs, logs.pushed, res.Data.PomodoroLogs, e.keeper(localstore.Logs)); err != nil {
		return dto.SyncAllResponse{}, err
	}
	if res.Data.Settings != nil {
		s := *res.Data.Settings
		s.ID = domain.SettingsID
		if _, _, err := mergeSnapshot(ctx, e.store, localstore.Settings, settings.pushed, []domain.Settings{s}, nil); err != nil {
			return dto.SyncAllResponse{}, err
		}
	}
	res.SyncAllResponse.LogsRejected += logs.rejected
	return res.SyncAllResponse, nil
}

func (e *Engine) checkSession(s *domain.TimedSession) error {
	if !firewall.KnownStatus(s.Status) {
		e.log.Warn("session with unknown status", slog.String("id", s.ID), slog.String("status", s.Status))
	}
	return firewall.Check(*s, e.now())
}
