package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rmod/internal/ir"
	"github.com/roach88/rmod/internal/jsrt"
	"github.com/roach88/rmod/internal/store"
	"github.com/roach88/rmod/internal/transport"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DB       string
	ID       string
	Global   string
	Requires []string
}

// RunResult is the JSON payload of a successful run.
type RunResult struct {
	ID      string         `json:"id,omitempty"`
	Exports map[string]any `json:"exports"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [bundle]",
		Short: "Load a bundle into the JavaScript runtime and run its entries",
		Long: `Load a bundle file (.json, .yaml or bootstrap .js) or a bundle stored
with build --db, run its entry modules, release deferred runs and print the
exports of every entry and every --require request.

Examples:
  rmod run bundle.json
  rmod run --db rmod.db --require ./src/util`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "load the bundle from this database")
	cmd.Flags().StringVar(&opts.ID, "id", "", "bundle ID to load from --db (default: latest)")
	cmd.Flags().StringVar(&opts.Global, "global", transport.DefaultGlobal, "runtime global used by .js bundles")
	cmd.Flags().StringArrayVar(&opts.Requires, "require", nil, "request to require from / after loading (repeatable)")

	return cmd
}

func runBundle(cmd *cobra.Command, opts *RunOptions, args []string) error {
	f := opts.formatter(cmd)

	if len(args) == 0 && opts.DB == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
		}
		opts.DB = cfg.Database
	}
	if len(args) == 0 && opts.DB == "" {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "no bundle: pass a bundle file or --db", nil)
	}

	rt, err := jsrt.New(jsrt.WithLogger(opts.logger(cmd)), jsrt.WithGlobal(opts.Global))
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeLoadFailed, "failed to start runtime", err)
	}

	var bundle *ir.Bundle
	switch {
	case len(args) == 1 && strings.EqualFold(filepath.Ext(args[0]), ".js"):
		script, err := os.ReadFile(args[0])
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNoBundle, "failed to read bundle", err)
		}
		if err := rt.Eval(args[0], string(script)); err != nil {
			return f.Fail(ExitFailure, ErrCodeLoadFailed, "failed to evaluate bundle", err)
		}
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNoBundle, "failed to read bundle", err)
		}
		if bundle, err = ir.Decode(data, ir.FormatFor(args[0])); err != nil {
			return f.Fail(ExitCommandError, ErrCodeNoBundle, "invalid bundle", err)
		}
	default:
		if bundle, err = readStored(cmd, opts.DB, opts.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return f.Fail(ExitCommandError, ErrCodeNoBundle, "bundle not found", err)
			}
			return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to read bundle", err)
		}
	}

	result := RunResult{Exports: make(map[string]any)}
	if bundle != nil {
		result.ID = bundle.ID
		f.VerboseLog("loading bundle %s (%d ops)", bundle.ID, len(bundle.Ops))
		if err := rt.Load(cmd.Context(), bundle); err != nil {
			return f.Fail(ExitFailure, ErrCodeLoadFailed, "failed to load bundle", err)
		}
	}
	if err := rt.Ready(); err != nil {
		return f.Fail(ExitFailure, ErrCodeLoadFailed, "deferred run failed", err)
	}

	if bundle != nil {
		for _, op := range bundle.Filter(ir.OpRun) {
			if exports, ok := rt.Exports(op.Path); ok {
				result.Exports[op.Path] = exports
			}
		}
	}
	for _, request := range opts.Requires {
		exports, err := rt.Require(request, "/")
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("require %q failed", request), err)
		}
		result.Exports[request] = exports
	}

	if f.Format == "json" {
		return f.Success(result)
	}
	return printExports(f, result)
}

func readStored(cmd *cobra.Command, path, id string) (*ir.Bundle, error) {
	st, err := openStore(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	if id == "" {
		return st.Latest(cmd.Context())
	}
	return st.ReadBundle(cmd.Context(), id)
}

func printExports(f *OutputFormatter, result RunResult) error {
	w := f.Writer
	if result.ID != "" {
		fmt.Fprintf(w, "✓ ran bundle %s\n", result.ID)
	} else {
		fmt.Fprintln(w, "✓ ran bundle")
	}

	keys := make([]string, 0, len(result.Exports))
	for k := range result.Exports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data, err := json.Marshal(result.Exports[k])
		if err != nil {
			data = []byte(fmt.Sprintf("%v", result.Exports[k]))
		}
		fmt.Fprintf(w, "  %s = %s\n", k, data)
	}
	return nil
}
