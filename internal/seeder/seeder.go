// Package seeder guarantees that the structural system projects exist in the
// local store, and guards them against destructive operations.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"Tempo/internal/domain"
	"Tempo/internal/localstore"
)

// Report counts what a seeding pass changed.
type Report struct {
	Inserted int
	Patched  int
}

// Validation is the result of comparing the catalogue with the local store.
type Validation struct {
	Valid      bool
	MissingIDs []string
}

// Seeder keeps the catalogue of system projects present and intact.
// It implements localstore.Guard.
type Seeder struct {
	store localstore.Store
	log   *slog.Logger
	now   func() time.Time

	// serialises seeding passes; a reseed triggered by Clear may overlap a
	// hydration seed otherwise.
	mu sync.Mutex
}

// New returns a Seeder writing to store. store must be the undecorated store
// (or at least one that is not guarded by this seeder).
func New(store localstore.Store, log *slog.Logger) *Seeder {
	return &Seeder{store: store, log: log, now: time.Now}
}

// Seed inserts missing catalogue entries and repairs entries whose
// discriminator drifted. Calling it twice in a row is a no-op the second time.
func (s *Seeder) Seed(ctx context.Context) (Report, error) {
	return s.run(ctx, false)
}

// ForceReseed is Seed plus revival: archived or tombstoned system projects
// are reactivated and catalogue names restored.
func (s *Seeder) ForceReseed(ctx context.Context) (Report, error) {
	return s.run(ctx, true)
}

func (s *Seeder) run(ctx context.Context, force bool) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.currentSystemProjects(ctx)
	if err != nil {
		return Report{}, err
	}

	var (
		rep  Report
		rows []localstore.Row
		now  = s.now().UTC()
	)
	for i, entry := range domain.Catalogue {
		p, ok := existing[entry.ID]
		if !ok {
			fresh := domain.NewSystemProject(entry, i)
			fresh.CreatedAt = now
			fresh.UpdatedAt = now
			row, err := localstore.Encode(&fresh)
			if err != nil {
				return Report{}, err
			}
			rows = append(rows, row)
			rep.Inserted++
			continue
		}
		if !repair(&p, entry, force) {
			continue
		}
		p.Touch(now)
		row, err := localstore.Encode(&p)
		if err != nil {
			return Report{}, err
		}
		rows = append(rows, row)
		rep.Patched++
	}

	if err := s.store.PutAll(ctx, localstore.Projects, rows); err != nil {
		return Report{}, fmt.Errorf("seeder: write catalogue: %w", err)
	}
	if rep.Inserted > 0 || rep.Patched > 0 {
		s.log.Info("system projects seeded",
			slog.Int("inserted", rep.Inserted),
			slog.Int("patched", rep.Patched),
			slog.Bool("force", force))
	}
	return rep, nil
}

// repair corrects p in place and reports whether anything changed. The id,
// parent and order are never touched.
func repair(p *domain.Project, entry domain.SystemEntry, force bool) bool {
	changed := false
	if p.TypeTag != entry.TypeTag {
		p.TypeTag = entry.TypeTag
		changed = true
	}
	if p.Kind != domain.KindSystem {
		p.Kind = domain.KindSystem
		changed = true
	}
	if force {
		if p.State != domain.StateActive {
			p.State = domain.StateActive
			changed = true
		}
		if p.Name != entry.Name {
			p.Name = entry.Name
			changed = true
		}
	}
	return changed
}

// Validate reports which catalogue ids are missing locally.
func (s *Seeder) Validate(ctx context.Context) (Validation, error) {
	existing, err := s.currentSystemProjects(ctx)
	if err != nil {
		return Validation{}, err
	}
	v := Validation{Valid: true}
	for _, entry := range domain.Catalogue {
		if _, ok := existing[entry.ID]; !ok {
			v.Valid = false
			v.MissingIDs = append(v.MissingIDs, entry.ID)
		}
	}
	return v, nil
}

func (s *Seeder) currentSystemProjects(ctx context.Context) (map[string]domain.Project, error) {
	out := make(map[string]domain.Project, len(domain.Catalogue))
	for _, entry := range domain.Catalogue {
		p, err := localstore.Load[domain.Project](ctx, s.store, localstore.Projects, entry.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seeder: read %s: %w", entry.ID, err)
		}
		out[entry.ID] = p
	}
	return out, nil
}

// Protects implements localstore.Guard.
func (s *Seeder) Protects(c localstore.Collection, id string) bool {
	return c == localstore.Projects && domain.IsSystemID(id)
}

// AfterClear implements localstore.Guard: a cleared project collection is
// reseeded straight away.
func (s *Seeder) AfterClear(ctx context.Context, c localstore.Collection) {
	if c != localstore.Projects {
		return
	}
	rep, err := s.ForceReseed(ctx)
	if err != nil {
		s.log.Error("reseed after clear failed", slog.String("error", err.Error()))
		return
	}
	s.log.Info("reseeded after clear", slog.Int("inserted", rep.Inserted))
}
