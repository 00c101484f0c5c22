package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"Tempo/internal/device"
	"Tempo/internal/domain"
)

type credentials struct {
	Email    string
	Password string
	Name     string
}

// password returns the flag value, TEMPO_PASSWORD, or the first line of
// stdin, in that order.
func (c *credentials) password(cmd *cobra.Command) (string, error) {
	if c.Password != "" {
		return c.Password, nil
	}
	if p := os.Getenv("TEMPO_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// NewLoginCommand creates the login command.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	creds := &credentials{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and hydrate the local store",
		Long: `Sign in with email and password. The credential is stored in the local
database and the store is hydrated for the signed-in user.

Example:
  tempo login --email me@example.com
  TEMPO_PASSWORD=secret tempo login --email me@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := creds.password(cmd)
			if err != nil {
				return err
			}
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				u, err := d.Login(ctx, creds.Email, pw)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", u.Email, u.ID)
				return hydrateAndReport(ctx, cmd, d)
			})
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password (prefer TEMPO_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	creds := &credentials{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := creds.password(cmd)
			if err != nil {
				return err
			}
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				u, err := d.Register(ctx, creds.Email, pw, creds.Name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", u.Email, u.ID)
				return hydrateAndReport(ctx, cmd, d)
			})
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password (prefer TEMPO_PASSWORD)")
	cmd.Flags().StringVar(&creds.Name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local data",
		Long: `Sign out on the server (when reachable) and remove every record of the
signed-in user from the local database. Unsynced changes are lost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				if err := d.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

// NewHydrateCommand creates the hydrate command.
func NewHydrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hydrate",
		Short: "Verify the credential, seed system projects and fetch server data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDevice(cmd, opts, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				return hydrateAndReport(ctx, cmd, d)
			})
		},
	}
}

func hydrateAndReport(ctx context.Context, cmd *cobra.Command, d *device.Device) error {
	out, err := d.Hydrate(ctx)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "hydration %s for %s\n", out.State, out.UserID)
	fmt.Fprintf(w, "  seeded:  %d inserted, %d repaired\n", out.Seeded.Inserted, out.Seeded.Patched)
	fmt.Fprintf(w, "  fetched: %t\n", out.Fetched)
	if out.Offline {
		fmt.Fprintln(w, "  server unreachable, using local data")
	}
	return nil
}

// tryHydrate hydrates when signed in; failures only downgrade the command
// to local-only.
func tryHydrate(ctx context.Context, d *device.Device, log *slog.Logger) bool {
	if _, err := d.Hydrate(ctx); err != nil {
		if errors.Is(err, domain.ErrAuth) {
			log.Debug("not hydrated, working locally", slog.String("error", err.Error()))
		} else {
			log.Warn("not hydrated, working locally", slog.String("error", err.Error()))
		}
		return false
	}
	return true
}
