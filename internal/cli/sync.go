package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Tempo/internal/device"
	"Tempo/internal/localstore"
	"Tempo/internal/syncengine"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Full   bool
	Legacy bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "sync [collection]",
		Short: "Push local changes and merge the server snapshot",
		Long: `Sync one collection (projects, tasks, logs, settings) or all of them.
The store is hydrated first.

Example:
  tempo sync
  tempo sync tasks --full
  tempo sync --legacy`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: collectionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Legacy && len(args) > 0 {
				return fmt.Errorf("--legacy syncs every collection; drop %q", args[0])
			}
			return withDevice(cmd, opts.RootOptions, func(ctx context.Context, d *device.Device, log *slog.Logger) error {
				if _, err := d.Hydrate(ctx); err != nil {
					return err
				}
				return runSync(ctx, cmd, d, opts, args)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Full, "full", false, "push every record, not only modified ones")
	cmd.Flags().BoolVar(&opts.Legacy, "legacy", false, "use the combined legacy endpoint")
	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, d *device.Device, opts *SyncOptions, args []string) error {
	w := cmd.OutOrStdout()
	if opts.Legacy {
		resp, err := d.Engine.SyncLegacy(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "legacy sync: %d projects, %d tasks, %d logs (%d rejected), settings %t\n",
			resp.ProjectsSynced, resp.TasksSynced, resp.LogsSynced, resp.LogsRejected, resp.SettingsSynced)
		return nil
	}

	if len(args) == 1 {
		c, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		syncOne := d.Engine.SyncCollection
		if opts.Full {
			syncOne = d.Engine.SyncCollectionFull
		}
		res, err := syncOne(ctx, c)
		printResults(w, []syncengine.Result{res})
		return err
	}

	var (
		results []syncengine.Result
		err     error
	)
	if opts.Full {
		for _, c := range localstore.Collections {
			res, cerr := d.Engine.SyncCollectionFull(ctx, c)
			results = append(results, res)
			if cerr != nil && err == nil {
				err = cerr
			}
		}
	} else {
		results, err = d.Engine.SyncAll(ctx)
	}
	printResults(w, results)
	return err
}

func printResults(w io.Writer, results []syncengine.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTION\tPUSHED\tREJECTED\tMERGED\tREMOVED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", r.Collection, r.Synced, r.Rejected, r.Merged, r.Removed)
	}
	_ = tw.Flush()
}

func collectionNames() []string {
	out := make([]string, 0, len(localstore.Collections))
	for _, c := range localstore.Collections {
		out = append(out, string(c))
	}
	return out
}

func parseCollection(name string) (localstore.Collection, error) {
	for _, c := range localstore.Collections {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown collection %q: must be one of %v", name, collectionNames())
}
