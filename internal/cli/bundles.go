package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rmod/internal/store"
)

// BundlesOptions holds flags for the bundles command group.
type BundlesOptions struct {
	*RootOptions
	DB string
}

// NewBundlesCommand creates the bundles command group.
func NewBundlesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BundlesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bundles",
		Short: "Inspect and maintain a bundle database",
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "bundle database (default: database in rmod.cue)")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List stored bundles, oldest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundlesList(cmd, opts)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "rm <id>...",
		Short:         "Delete bundles and prune unreferenced sources",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundlesRemove(cmd, opts, args)
		},
	})

	return cmd
}

// withStore opens the configured database and runs fn against it. Failures
// are reported through f.
func (o *BundlesOptions) withStore(cmd *cobra.Command, f *OutputFormatter, fn func(*store.Store) error) error {
	path := o.DB
	if path == "" {
		cfg, err := o.loadConfig()
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
		}
		path = cfg.Database
	}
	if path == "" {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "no database: pass --db or set database in rmod.cue", nil)
	}

	st, err := openStore(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNoBundle, "failed to open database", err)
	}
	defer st.Close()
	return fn(st)
}

func runBundlesList(cmd *cobra.Command, opts *BundlesOptions) error {
	f := opts.formatter(cmd)
	return opts.withStore(cmd, f, func(st *store.Store) error {
		bundles, err := st.ListBundles(cmd.Context())
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeLoadFailed, "failed to list bundles", err)
		}
		if f.Format == "json" {
			return f.Success(bundles)
		}
		if len(bundles) == 0 {
			fmt.Fprintln(f.Writer, "No bundles stored.")
			return nil
		}
		for _, b := range bundles {
			fmt.Fprintf(f.Writer, "%s  %3d ops  %s  %s\n", b.ID, b.Ops, b.Hash[:12], strings.Join(b.Entries, " "))
		}
		return nil
	})
}

// RemoveResult is the JSON payload of bundles rm.
type RemoveResult struct {
	Removed       []string `json:"removed"`
	PrunedSources int64    `json:"pruned_sources"`
}

func runBundlesRemove(cmd *cobra.Command, opts *BundlesOptions, ids []string) error {
	f := opts.formatter(cmd)
	return opts.withStore(cmd, f, func(st *store.Store) error {
		result := RemoveResult{Removed: make([]string, 0, len(ids))}
		for _, id := range ids {
			if err := st.DeleteBundle(cmd.Context(), id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return f.Fail(ExitCommandError, ErrCodeNoBundle, "bundle not found", err)
				}
				return f.Fail(ExitFailure, ErrCodeWriteFailed, "failed to delete bundle", err)
			}
			result.Removed = append(result.Removed, id)
		}

		pruned, err := st.PruneSources(cmd.Context())
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeWriteFailed, "failed to prune sources", err)
		}
		result.PrunedSources = pruned

		if f.Format == "json" {
			return f.Success(result)
		}
		for _, id := range result.Removed {
			fmt.Fprintf(f.Writer, "✓ removed %s\n", id)
		}
		fmt.Fprintf(f.Writer, "  pruned %d source(s)\n", result.PrunedSources)
		return nil
	})
}

// openStore opens an existing database; a missing file is ErrNotFound
// rather than a fresh empty database.
func openStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, store.ErrNotFound)
	}
	return store.Open(path)
}
