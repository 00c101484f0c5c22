package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"Tempo/internal/domain"
	"Tempo/internal/firewall"
	"Tempo/internal/localstore"
)

// NewTask holds the user-supplied fields of a task.
type NewTask struct {
	Name            string
	ProjectID       string
	ParentID        string
	Priority        int
	EstimatedUnits  int
	IntervalSeconds int
}

// AddTask stores a new task locally. It is pushed by the next sync.
func (d *Device) AddTask(ctx context.Context, in NewTask) (domain.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Task{}, fmt.Errorf("task name is required: %w", domain.ErrValidation)
	}
	if in.ProjectID == "" {
		in.ProjectID = "inbox"
	}
	if err := d.requireActive(ctx, localstore.Projects, in.ProjectID); err != nil {
		return domain.Task{}, err
	}
	owner, _, err := d.UserID(ctx)
	if err != nil {
		return domain.Task{}, err
	}

	t := domain.Task{
		Record:          domain.Record{ID: uuid.NewString(), OwnerID: owner},
		Name:            name,
		ProjectID:       in.ProjectID,
		Priority:        in.Priority,
		EstimatedUnits:  in.EstimatedUnits,
		IntervalSeconds: in.IntervalSeconds,
	}
	if in.ParentID != "" {
		if err := d.requireActive(ctx, localstore.Tasks, in.ParentID); err != nil {
			return domain.Task{}, err
		}
		parent := in.ParentID
		t.ParentID = &parent
	}
	t.Normalize()
	t.Touch(time.Now())
	if err := localstore.Save(ctx, d.records, localstore.Tasks, &t); err != nil {
		return domain.Task{}, err
	}
	d.log.Debug("task added", slog.String("id", t.ID), slog.String("project", t.ProjectID))
	return t, nil
}

// DeleteTask tombstones a task; the row goes away once the server has
// acknowledged the delete.
func (d *Device) DeleteTask(ctx context.Context, id string) error {
	t, err := localstore.Load[domain.Task](ctx, d.records, localstore.Tasks, id)
	if err != nil {
		return err
	}
	t.State = domain.StateDeleted
	t.Touch(time.Now())
	return localstore.Save(ctx, d.records, localstore.Tasks, &t)
}

// ListTasks returns the live tasks, optionally of one project.
func (d *Device) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	return localstore.LoadAll[domain.Task](ctx, d.records, localstore.Tasks,
		localstore.Filter{State: domain.StateActive, ProjectID: projectID})
}

// ListProjects returns the live projects, system projects included.
func (d *Device) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return localstore.LoadAll[domain.Project](ctx, d.records, localstore.Projects,
		localstore.Filter{State: domain.StateActive})
}

// NewSession describes a focus interval to record.
type NewSession struct {
	TaskID string
	Status string
	// End defaults to now.
	End      time.Time
	Duration time.Duration
}

// LogSession records a timed session. Sessions the firewall would reject are
// refused here rather than at sync time.
func (d *Device) LogSession(ctx context.Context, in NewSession) (domain.TimedSession, error) {
	if err := d.requireActive(ctx, localstore.Tasks, in.TaskID); err != nil {
		return domain.TimedSession{}, err
	}
	owner, _, err := d.UserID(ctx)
	if err != nil {
		return domain.TimedSession{}, err
	}
	now := time.Now()
	if in.Status == "" {
		in.Status = domain.SessionCompleted
	}
	if in.End.IsZero() {
		in.End = now
	}

	s := domain.TimedSession{
		Record: domain.Record{ID: uuid.NewString(), OwnerID: owner},
		TaskID: in.TaskID,
		Status: in.Status,
	}
	switch {
	case in.Duration > 0:
		s.EndTime = in.End.UnixMilli()
		s.Duration = in.Duration.Milliseconds()
		s.StartTime = s.EndTime - s.Duration
	case in.Status == domain.SessionRunning, in.Status == domain.SessionActive, in.Status == domain.SessionPaused:
		s.StartTime = in.End.UnixMilli()
	}
	if err := firewall.Check(s, now); err != nil {
		return domain.TimedSession{}, err
	}
	s.Touch(now)
	if err := localstore.Save(ctx, d.records, localstore.Logs, &s); err != nil {
		return domain.TimedSession{}, err
	}
	return s, nil
}

func (d *Device) requireActive(ctx context.Context, c localstore.Collection, id string) error {
	r, err := d.records.Get(ctx, c, id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s %q does not exist: %w", strings.TrimSuffix(string(c), "s"), id, domain.ErrValidation)
	}
	if err != nil {
		return err
	}
	if r.State == domain.StateDeleted {
		return fmt.Errorf("%s %q is deleted: %w", strings.TrimSuffix(string(c), "s"), id, domain.ErrValidation)
	}
	return nil
}
