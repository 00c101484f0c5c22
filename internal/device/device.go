// Package device wires the offline side together: the SQLite store, the
// system-project guard, the API client, hydration and the sync engine.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"Tempo/internal/client"
	"Tempo/internal/config"
	"Tempo/internal/domain"
	"Tempo/internal/dto"
	"Tempo/internal/hydration"
	"Tempo/internal/localstore"
	"Tempo/internal/seeder"
	"Tempo/internal/syncengine"
)

// Meta keys owned by the device.
const (
	MetaToken  = "token"
	MetaUserID = "userId"
)

// Remote is the API surface the device needs.
type Remote interface {
	hydration.Remote
	syncengine.Remote
	SetToken(token string)
	Login(ctx context.Context, email, password string) (dto.LoginResponse, error)
	Register(ctx context.Context, email, password, displayName string) (dto.LoginResponse, error)
	Logout(ctx context.Context) error
}

// Device is one signed-in (or signed-out) installation.
type Device struct {
	db        *localstore.SQLite
	protected *localstore.Protected
	// records is the store user edits go through: guarded and watched.
	records localstore.Store

	Remote    Remote
	Seeder    *seeder.Seeder
	Hydration *hydration.Coordinator
	Engine    *syncengine.Engine

	debouncer *syncengine.Debouncer
	cancel    context.CancelFunc
	log       *slog.Logger
}

// Open opens the local store at cfg.DBPath and connects it to cfg.ServerURL.
func Open(ctx context.Context, cfg config.DeviceConfig, log *slog.Logger) (*Device, error) {
	db, err := localstore.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	remote := client.New(cfg.ServerURL, cfg.Timeout(), log)
	d, err := New(ctx, db, remote, cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// New wires a device over an opened store. The stored credential, if any, is
// handed to remote.
func New(ctx context.Context, db *localstore.SQLite, remote Remote, cfg config.DeviceConfig, log *slog.Logger) (*Device, error) {
	token, _, err := db.GetMeta(ctx, MetaToken)
	if err != nil {
		return nil, err
	}
	remote.SetToken(token)

	sd := seeder.New(db, log)
	protected := localstore.Protect(db, sd, log)
	coord := hydration.New(protected, db, sd, remote, log)
	engine := syncengine.New(protected, db, remote, coord, log, syncengine.WithGuard(sd))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	deb := syncengine.NewDebouncer(cfg.DebounceWindow(), syncengine.AutoSync(runCtx, engine, log))

	return &Device{
		db:        db,
		protected: protected,
		records:   localstore.Watch(protected, deb.Notify),
		Remote:    remote,
		Seeder:    sd,
		Hydration: coord,
		Engine:    engine,
		debouncer: deb,
		cancel:    cancel,
		log:       log,
	}, nil
}

// Close runs pending syncs, waits for background repairs and closes the
// store.
func (d *Device) Close() error {
	d.debouncer.Flush()
	d.debouncer.Stop()
	d.protected.Wait()
	d.cancel()
	return d.db.Close()
}

// Store returns the guarded store user edits go through.
func (d *Device) Store() localstore.Store { return d.records }

// UserID returns the signed-in user, if any.
func (d *Device) UserID(ctx context.Context) (string, bool, error) {
	return d.db.GetMeta(ctx, MetaUserID)
}

// Login signs in and stores the credential. Signing in as a different user
// than the previous one drops the previous user's local data first.
func (d *Device) Login(ctx context.Context, email, password string) (dto.UserResponse, error) {
	resp, err := d.Remote.Login(ctx, email, password)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return resp.User, d.signedIn(ctx, resp)
}

// Register creates an account and signs in.
func (d *Device) Register(ctx context.Context, email, password, displayName string) (dto.UserResponse, error) {
	resp, err := d.Remote.Register(ctx, email, password, displayName)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return resp.User, d.signedIn(ctx, resp)
}

func (d *Device) signedIn(ctx context.Context, resp dto.LoginResponse) error {
	prev, ok, err := d.UserID(ctx)
	if err != nil {
		return err
	}
	if ok && prev != resp.User.ID {
		d.log.Info("different user signed in, dropping local data", slog.String("previous", prev), slog.String("user", resp.User.ID))
		if err := d.wipe(ctx); err != nil {
			return err
		}
	}
	if err := d.db.SetMeta(ctx, MetaToken, resp.Token); err != nil {
		return err
	}
	if err := d.db.SetMeta(ctx, MetaUserID, resp.User.ID); err != nil {
		return err
	}
	d.Remote.SetToken(resp.Token)
	return nil
}

// Logout ends the server session and clears everything the user owned on
// this device. System projects are reseeded by the guard. An unreachable
// server does not prevent the local sign-out.
func (d *Device) Logout(ctx context.Context) error {
	if d.Remote.Token() != "" {
		if err := d.Remote.Logout(ctx); err != nil {
			if !errors.Is(err, domain.ErrNetwork) && !errors.Is(err, domain.ErrAuth) {
				return err
			}
			d.log.Warn("server logout failed", slog.String("error", err.Error()))
		}
	}
	d.debouncer.Stop()
	if err := d.wipe(ctx); err != nil {
		return err
	}
	for _, k := range []string{MetaToken, MetaUserID} {
		if err := d.db.DeleteMeta(ctx, k); err != nil {
			return err
		}
	}
	d.Remote.SetToken("")
	return nil
}

func (d *Device) wipe(ctx context.Context) error {
	for _, c := range localstore.Collections {
		if err := d.protected.Clear(ctx, c); err != nil {
			return err
		}
	}
	if err := d.db.DeleteMeta(ctx, syncengine.MetaLastSyncTime); err != nil {
		return err
	}
	return d.Hydration.Reset(ctx)
}

// Hydrate brings the store up for the signed-in user. The first run that
// replaces local data with the server's is followed by one more run over the
// persisted data, which skips the fetch; the returned outcome covers both.
func (d *Device) Hydrate(ctx context.Context) (*hydration.Outcome, error) {
	userID, ok, err := d.UserID(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("not signed in: %w", domain.ErrAuth)
	}
	first, err := d.Hydration.Acquire(ctx, userID)
	if err != nil || !first.ReloadRequired {
		return first, err
	}

	d.log.Info("reloading after first hydration", slog.String("user", userID))
	d.Hydration.Restart()
	second, err := d.Hydration.Acquire(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}
	out := *second
	out.Seeded = first.Seeded
	out.Fetched = true
	return &out, nil
}

// Status summarises the device state.
type Status struct {
	UserID    string
	SignedIn  bool
	Hydration hydration.Status
	LastSync  int64
	Pending   map[localstore.Collection]int
	Projects  int
}

func (d *Device) Status(ctx context.Context) (Status, error) {
	var st Status
	var err error
	st.UserID, st.SignedIn, err = d.UserID(ctx)
	if err != nil {
		return st, err
	}
	st.Hydration = d.Hydration.Status()
	last, ok, err := d.Engine.LastSyncTime(ctx)
	if err != nil {
		return st, err
	}
	if ok {
		st.LastSync = last.UnixMilli()
	}
	st.Pending = make(map[localstore.Collection]int, len(localstore.Collections))
	for _, c := range localstore.Collections {
		n, err := d.db.Count(ctx, c, localstore.DirtyOnly())
		if err != nil {
			return st, err
		}
		st.Pending[c] = n
	}
	st.Projects, err = d.db.Count(ctx, localstore.Projects, localstore.All())
	return st, err
}
