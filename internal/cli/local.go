package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"Tempo/internal/device"
	"Tempo/internal/domain"
	"Tempo/internal/localstore"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert or repair the system projects",
		Long: `Insert missing system projects and repair drifted ones. With --force,
archived or deleted system projects are revived and their names restored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				seed := d.Seeder.Seed
				if force {
					seed = d.Seeder.ForceReseed
				}
				rep, err := seed(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d inserted, %d repaired\n", rep.Inserted, rep.Patched)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "revive archived or deleted system projects")
	return cmd
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every system project is present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				v, err := d.Seeder.Validate(ctx)
				if err != nil {
					return err
				}
				if v.Valid {
					fmt.Fprintf(cmd.OutOrStdout(), "ok: %d system projects present\n", len(domain.Catalogue))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "missing: %v\n", v.MissingIDs)
				return fmt.Errorf("%d system projects missing: %w", len(v.MissingIDs), domain.ErrIntegrity)
			})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sign-in, hydration and pending changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				st, err := d.Status(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if st.SignedIn {
					fmt.Fprintf(w, "user:      %s\n", st.UserID)
				} else {
					fmt.Fprintln(w, "user:      (signed out)")
				}
				fmt.Fprintf(w, "hydration: %s\n", st.Hydration.State)
				if st.LastSync > 0 {
					fmt.Fprintf(w, "last sync: %s\n", time.UnixMilli(st.LastSync).Format(time.RFC3339))
				} else {
					fmt.Fprintln(w, "last sync: never")
				}
				fmt.Fprintf(w, "projects:  %d\n", st.Projects)
				for _, c := range localstore.Collections {
					fmt.Fprintf(w, "pending %-9s %d\n", string(c)+":", st.Pending[c])
				}
				return nil
			})
		},
	}
}
