// Package hydration brings the local store to a usable state for a signed-in
// user: credential check, system seeding, first fetch from the server and an
// integrity check, in that order.
package hydration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"Tempo/internal/domain"
	"Tempo/internal/dto"
	"Tempo/internal/localstore"
	"Tempo/internal/seeder"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

// MetaHydratedUser holds the id of the user whose data was fetched in this
// session. Cleared on logout.
const MetaHydratedUser = "hydratedUser"

// Remote is the part of the API client hydration needs.
type Remote interface {
	// Token returns the stored credential, empty when signed out.
	Token() string
	Verify(ctx context.Context) (dto.UserResponse, error)
	Load(ctx context.Context) (dto.LoadData, error)
}

// Seeder ensures the system catalogue is present.
type Seeder interface {
	Seed(ctx context.Context) (seeder.Report, error)
	Validate(ctx context.Context) (seeder.Validation, error)
}

// Outcome is the shared result of one hydration run. Callers that joined the
// same run receive the same pointer.
type Outcome struct {
	State   domain.HydrationState
	UserID  string
	Seeded  seeder.Report
	Fetched bool
	// Offline is set when the server could not be reached and a previous
	// hydration of the same user was reused.
	Offline bool
	// ReloadRequired asks the caller to rebuild its views once: this run
	// replaced the local data with the server's.
	ReloadRequired bool
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	State     domain.HydrationState
	UserID    string
	Err       error
	UpdatedAt time.Time
}

// Coordinator runs hydration at most once at a time.
type Coordinator struct {
	store  localstore.Store
	meta   localstore.Meta
	seeder Seeder
	remote Remote
	log    *slog.Logger

	verifyAttempts uint64
	retryInterval  time.Duration

	sf singleflight.Group

	mu       sync.Mutex
	status   Status
	inflight string
	outcome  *Outcome
	ready    chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRetry sets how often and how fast credential verification is retried.
func WithRetry(attempts int, initial time.Duration) Option {
	return func(c *Coordinator) {
		if attempts > 0 {
			c.verifyAttempts = uint64(attempts)
		}
		if initial > 0 {
			c.retryInterval = initial
		}
	}
}

func New(store localstore.Store, meta localstore.Meta, sd Seeder, remote Remote, log *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:          store,
		meta:           meta,
		seeder:         sd,
		remote:         remote,
		log:            log,
		verifyAttempts: 3,
		retryInterval:  500 * time.Millisecond,
		status:         Status{State: domain.HydrationUninitialized, UpdatedAt: time.Now()},
		ready:          make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Acquire hydrates the store for userID. A call made while a run for the same
// user is in flight joins it; a call for another user fails with
// domain.ErrMutexConflict. Once READY, further calls return the stored
// outcome until Reset or Restart.
//
// Joined callers share the first caller's ctx.
func (c *Coordinator) Acquire(ctx context.Context, userID string) (*Outcome, error) {
	if userID == "" {
		return nil, fmt.Errorf("hydration: empty user: %w", domain.ErrAuth)
	}
	if o, done, err := c.precheck(userID); done {
		return o, err
	}
	v, err, _ := c.sf.Do(userID, func() (interface{}, error) {
		if o, done, err := c.claim(userID); done {
			return o, err
		}
		defer c.release()
		return c.run(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Outcome), nil
}

// precheck answers without running when possible.
func (c *Coordinator) precheck(userID string) (*Outcome, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != "" && c.inflight != userID {
		return nil, true, fmt.Errorf("hydration for %s: %w", c.inflight, domain.ErrMutexConflict)
	}
	if c.status.State == domain.HydrationReady && c.outcome != nil && c.outcome.UserID == userID {
		return c.outcome, true, nil
	}
	return nil, false, nil
}

// claim marks userID as in flight, unless another user got there first or
// the run already completed.
func (c *Coordinator) claim(userID string) (*Outcome, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != "" && c.inflight != userID {
		return nil, true, fmt.Errorf("hydration for %s: %w", c.inflight, domain.ErrMutexConflict)
	}
	if c.status.State == domain.HydrationReady && c.outcome != nil && c.outcome.UserID == userID {
		return c.outcome, true, nil
	}
	c.inflight = userID
	// READY for someone else: waiters must see a fresh channel.
	select {
	case <-c.ready:
		c.ready = make(chan struct{})
		c.outcome = nil
	default:
	}
	return nil, false, nil
}

func (c *Coordinator) release() {
	c.mu.Lock()
	c.inflight = ""
	c.mu.Unlock()
}

func (c *Coordinator) run(ctx context.Context, userID string) (*Outcome, error) {
	out := &Outcome{UserID: userID}
	start := time.Now()

	c.transition(domain.HydrationAuthValidating, userID, nil)
	offline, err := c.validateAuth(ctx, userID)
	if err != nil {
		return nil, c.fail(domain.HydrationAuthValidating, userID, err)
	}
	out.Offline = offline

	c.transition(domain.HydrationSeeding, userID, nil)
	out.Seeded, err = c.seeder.Seed(ctx)
	if err != nil {
		return nil, c.fail(domain.HydrationSeeding, userID, err)
	}

	c.transition(domain.HydrationFetching, userID, nil)
	hydrated, err := c.hydratedFor(ctx, userID)
	if err != nil {
		return nil, c.fail(domain.HydrationFetching, userID, err)
	}
	count, err := c.store.Count(ctx, localstore.Projects, localstore.All())
	if err != nil {
		return nil, c.fail(domain.HydrationFetching, userID, err)
	}
	var data dto.LoadData
	switch {
	case hydrated && count >= len(domain.Catalogue):
		c.log.Debug("fetch skipped, local data present", slog.String("user", userID), slog.Int("projects", count))
	case offline:
		c.log.Warn("fetch skipped, server unreachable", slog.String("user", userID))
	default:
		data, err = c.remote.Load(ctx)
		if err != nil {
			return nil, c.fail(domain.HydrationFetching, userID, err)
		}
		out.Fetched = true
	}

	if out.Fetched {
		c.transition(domain.HydrationPersisting, userID, nil)
		if err := c.persist(ctx, data); err != nil {
			return nil, c.fail(domain.HydrationPersisting, userID, err)
		}
	}

	c.transition(domain.HydrationVerifying, userID, nil)
	if err := c.verify(ctx); err != nil {
		return nil, c.fail(domain.HydrationVerifying, userID, err)
	}

	if out.Fetched {
		if err := c.meta.SetMeta(ctx, MetaHydratedUser, userID); err != nil {
			return nil, c.fail(domain.HydrationVerifying, userID, err)
		}
		out.ReloadRequired = !hydrated
	}
	out.State = domain.HydrationReady

	c.mu.Lock()
	c.outcome = out
	c.mu.Unlock()
	c.transition(domain.HydrationReady, userID, nil)
	c.log.Info("hydration complete",
		slog.String("user", userID),
		slog.Bool("fetched", out.Fetched),
		slog.Bool("offline", out.Offline),
		slog.Int("seeded", out.Seeded.Inserted),
		slog.Duration("dur", time.Since(start)),
	)
	return out, nil
}

// validateAuth confirms the stored credential with the server. A missing
// credential fails immediately; a rejected one is not retried. When the
// server stays unreachable, a user that was hydrated before may continue
// offline.
func (c *Coordinator) validateAuth(ctx context.Context, userID string) (offline bool, err error) {
	if c.remote.Token() == "" {
		return false, fmt.Errorf("no stored credential: %w", domain.ErrAuth)
	}
	attempt := 0
	op := func() (dto.UserResponse, error) {
		attempt++
		u, err := c.remote.Verify(ctx)
		if errors.Is(err, domain.ErrAuth) {
			return u, backoff.Permanent(err)
		}
		if err != nil {
			c.log.Debug("credential check failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
		}
		return u, err
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.verifyAttempts-1), ctx)

	u, err := backoff.RetryWithData[dto.UserResponse](op, policy)
	if err != nil {
		if errors.Is(err, domain.ErrNetwork) {
			if hydrated, merr := c.hydratedFor(ctx, userID); merr == nil && hydrated {
				return true, nil
			}
		}
		return false, err
	}
	if u.ID != userID {
		return false, fmt.Errorf("credential belongs to %q, not %q: %w", u.ID, userID, domain.ErrAuth)
	}
	return false, nil
}

func (c *Coordinator) hydratedFor(ctx context.Context, userID string) (bool, error) {
	v, ok, err := c.meta.GetMeta(ctx, MetaHydratedUser)
	if err != nil {
		return false, err
	}
	return ok && v == userID, nil
}

// verify fails when no structural record survived; a partial catalogue is
// repaired.
func (c *Coordinator) verify(ctx context.Context) error {
	v, err := c.seeder.Validate(ctx)
	if err != nil {
		return err
	}
	if v.Valid {
		return nil
	}
	if len(v.MissingIDs) >= len(domain.Catalogue) {
		return fmt.Errorf("no system projects after seeding: %w", domain.ErrIntegrity)
	}
	c.log.Warn("system projects missing, reseeding", slog.Any("missing", v.MissingIDs))
	_, err = c.seeder.Seed(ctx)
	return err
}

func (c *Coordinator) fail(stage domain.HydrationState, userID string, err error) error {
	err = fmt.Errorf("hydration %s: %w", stage, err)
	c.transition(domain.HydrationError, userID, err)
	return err
}

func (c *Coordinator) transition(to domain.HydrationState, userID string, err error) {
	c.mu.Lock()
	from := c.status.State
	c.status = Status{State: to, UserID: userID, Err: err, UpdatedAt: time.Now()}
	if to == domain.HydrationReady {
		select {
		case <-c.ready:
		default:
			close(c.ready)
		}
	}
	c.mu.Unlock()

	attrs := []any{slog.String("from", string(from)), slog.String("to", string(to)), slog.String("user", userID)}
	if err != nil {
		c.log.Error("hydration state", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	c.log.Debug("hydration state", attrs...)
}

// Reset returns to UNINITIALIZED and forgets which user was hydrated. Used on
// logout.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.restart()
	return c.meta.DeleteMeta(ctx, MetaHydratedUser)
}

// Restart returns to UNINITIALIZED but keeps the hydration marker, so the
// next Acquire for the same user skips the fetch.
func (c *Coordinator) Restart() {
	c.restart()
}

func (c *Coordinator) restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = Status{State: domain.HydrationUninitialized, UpdatedAt: time.Now()}
	c.outcome = nil
	select {
	case <-c.ready:
		c.ready = make(chan struct{})
	default:
	}
}

// CanSync reports whether hydration is READY.
func (c *Coordinator) CanSync() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.State == domain.HydrationReady
}

// Ready returns a channel closed when READY is reached. After Reset or
// Restart a new channel is handed out.
func (c *Coordinator) Ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}
