package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"Tempo/internal/device"
	"Tempo/internal/domain"
)

// prepareLocal makes sure the system projects exist and, when signed in,
// that the store is hydrated so the edit is synced on exit.
func prepareLocal(ctx context.Context, d *device.Device, log *slog.Logger) error {
	if _, ok, err := d.UserID(ctx); err != nil {
		return err
	} else if ok && tryHydrate(ctx, d, log) {
		return nil
	}
	_, err := d.Seeder.Seed(ctx)
	return err
}

// NewTaskCommand creates the task command group.
func NewTaskCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(newTaskAddCommand(opts))
	cmd.AddCommand(newTaskListCommand(opts))
	cmd.AddCommand(newTaskRemoveCommand(opts))
	return cmd
}

func newTaskAddCommand(opts *RootOptions) *cobra.Command {
	in := device.NewTask{}
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task",
		Long: `Add a task to a project (the inbox by default). The task is stored locally
and pushed to the server when signed in.

Example:
  tempo task add "Write report" --estimate 4
  tempo task add "Subtask" --parent 3f2a...`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = strings.Join(args, " ")
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				if err := prepareLocal(ctx, d, log); err != nil {
					return err
				}
				t, err := d.AddTask(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.ProjectID, "project", "inbox", "project id")
	cmd.Flags().StringVar(&in.ParentID, "parent", "", "parent task id")
	cmd.Flags().IntVar(&in.Priority, "priority", 0, "priority")
	cmd.Flags().IntVar(&in.EstimatedUnits, "estimate", 0, "estimated focus units")
	cmd.Flags().IntVar(&in.IntervalSeconds, "interval", domain.DefaultIntervalSeconds, "length of one focus unit in seconds")
	return cmd
}

func newTaskListCommand(opts *RootOptions) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				tasks, err := d.ListTasks(ctx, project)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tPROJECT\tSTATUS\tUNITS\tNAME\tSYNCED")
				for _, t := range tasks {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%t\n",
						t.ID, t.ProjectID, t.Status, t.ActualUnits, t.EstimatedUnits, t.Name, !t.Dirty)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "only tasks of this project")
	return cmd
}

func newTaskRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				if err := prepareLocal(ctx, d, log); err != nil {
					return err
				}
				return d.DeleteTask(ctx, args[0])
			})
		},
	}
}

// NewProjectCommand creates the project command group.
func NewProjectCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect projects",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects, system projects included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				projects, err := d.ListProjects(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tKIND\tTYPE\tNAME")
				for _, p := range projects {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.Kind, p.TypeTag, p.Name)
				}
				return tw.Flush()
			})
		},
	})
	return cmd
}

// NewSessionCommand creates the session command group.
func NewSessionCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Record focus sessions",
	}

	in := device.NewSession{}
	var ago time.Duration
	logCmd := &cobra.Command{
		Use:   "log <task-id>",
		Short: "Record a focus session for a task",
		Long: `Record a focus session. Completed sessions need a duration; the session
ends now unless --ago is given.

Example:
  tempo session log 3f2a... --duration 25m
  tempo session log 3f2a... --duration 25m --ago 1h
  tempo session log 3f2a... --status running`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.TaskID = args[0]
			if ago > 0 {
				in.End = time.Now().Add(-ago)
			}
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				if err := prepareLocal(ctx, d, log); err != nil {
					return err
				}
				s, err := d.LogSession(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s.ID)
				return nil
			})
		},
	}
	logCmd.Flags().StringVar(&in.Status, "status", domain.SessionCompleted, "session status")
	logCmd.Flags().DurationVar(&in.Duration, "duration", 0, "session length, e.g. 25m")
	logCmd.Flags().DurationVar(&ago, "ago", 0, "how long ago the session ended")
	cmd.AddCommand(logCmd)
	return cmd
}
