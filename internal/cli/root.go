// Package cli holds the cobra commands of the tempo device binary.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"Tempo/internal/config"
	"Tempo/internal/device"
)

// OpenFunc opens the device for a command.
type OpenFunc func(ctx context.Context, cfg config.DeviceConfig, log *slog.Logger) (*device.Device, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	ConfigPath string

	// Open overrides how the device is opened (tests). Defaults to device.Open.
	Open OpenFunc
}

// NewRootCommand creates the root command of the tempo CLI.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Open: device.Open}
	return newRoot(opts, version)
}

func newRoot(opts *RootOptions, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tempo",
		Short: "Tempo - offline-first tasks and focus sessions",
		Long: `Tempo keeps projects, tasks and focus sessions in a local database and
converges them with the Tempo server whenever it is reachable.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewHydrateCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewTaskCommand(opts))
	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))

	return cmd
}

// withDevice loads the config, opens the device, runs fn and closes the
// device again. Pending automatic syncs run on close.
func withDevice(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, d *device.Device, log *slog.Logger) error) error {
	cfg, err := config.LoadDevice(opts.ConfigPath)
	if err != nil {
		return err
	}
	log := newLogger(cmd.ErrOrStderr(), cfg.Log, opts.Verbose)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	open := opts.Open
	if open == nil {
		open = device.Open
	}
	d, err := open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			log.Error("closing local store", slog.String("error", cerr.Error()))
		}
	}()
	return fn(ctx, d, log)
}

func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
