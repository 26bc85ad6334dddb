package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rmod/internal/graph"
	"github.com/roach88/rmod/internal/ir"
	"github.com/roach88/rmod/internal/store"
	"github.com/roach88/rmod/internal/transport"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Output       string // bundle file; "-" writes JSON to stdout
	DB           string // store the bundle in this database
	Global       string // runtime global used by .js output
	Wait         bool
	AllowMissing bool
	resolverFlags
}

// BuildResult is the JSON payload of a successful build.
type BuildResult struct {
	ID       string   `json:"id"`
	Hash     string   `json:"hash"`
	Entries  []string `json:"entries"`
	Ops      int      `json:"ops"`
	Defs     int      `json:"defs"`
	Output   string   `json:"output,omitempty"`
	Database string   `json:"database,omitempty"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build [entries...]",
		Short: "Build a module bundle from entry requests",
		Long: `Resolve the entry requests from the project root, walk every require()
they reach and emit the dep, main, remap, def and run operations that
reproduce the graph in the client runtime.

Entries default to the "entries" list in rmod.cue. The output format follows
the --output extension: .js writes bootstrap statements, .yaml/.yml writes
YAML, anything else JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "bundle file (- for stdout)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "store the bundle in this database")
	cmd.Flags().StringVar(&opts.Global, "global", transport.DefaultGlobal, "runtime global for .js output")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "defer entry runs until ready()")
	cmd.Flags().BoolVar(&opts.AllowMissing, "allow-missing", false, "skip requires that cannot be resolved")
	opts.resolverFlags.register(cmd)

	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions, entries []string) error {
	f := opts.formatter(cmd)
	cfg, r, err := opts.setup(cmd, &opts.resolverFlags)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if len(entries) == 0 {
		entries = cfg.Entries
	}
	if len(entries) == 0 {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "no entries: pass entry requests or set entries in rmod.cue", nil)
	}
	if !cmd.Flags().Changed("wait") {
		opts.Wait = cfg.Wait
	}
	if opts.DB == "" {
		opts.DB = cfg.Database
	}

	root := cfg.Root
	if root == "" {
		if root, err = opts.projectDir(); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid project directory", err)
		}
	}

	logger := opts.logger(cmd)
	builder := graph.New(r, graph.Options{
		Wait:         opts.Wait,
		AllowMissing: opts.AllowMissing,
		Logger:       logger,
	})
	bundle, err := builder.Build(cmd.Context(), root, entries, cfg.SearchPaths)
	if err != nil {
		var missing *graph.MissingError
		if errors.As(err, &missing) {
			return f.Fail(ExitFailure, ErrCodeNotFound, "unresolved require", err)
		}
		return f.Fail(ExitFailure, ErrCodeBuildFailed, "build failed", err)
	}

	hash, err := bundle.Hash()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeBuildFailed, "build failed", err)
	}

	if opts.Output != "" {
		if err := writeBundle(cmd.OutOrStdout(), opts.Output, opts.Global, bundle); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write bundle", err)
		}
	}
	if opts.DB != "" {
		if err := storeBundle(cmd, opts.DB, bundle); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to store bundle", err)
		}
		f.VerboseLog("stored bundle %s in %s", bundle.ID, opts.DB)
	}

	// The bundle itself went to stdout.
	if opts.Output == "-" {
		return nil
	}

	result := BuildResult{
		ID:       bundle.ID,
		Hash:     hash,
		Entries:  bundle.Entries,
		Ops:      len(bundle.Ops),
		Defs:     bundle.Count(ir.OpDef),
		Output:   opts.Output,
		Database: opts.DB,
	}
	if f.Format == "json" {
		return f.Success(result)
	}

	w := f.Writer
	fmt.Fprintf(w, "✓ built bundle %s (%d ops, %d defs)\n", result.ID, result.Ops, result.Defs)
	if result.Output != "" {
		fmt.Fprintf(w, "  wrote %s\n", result.Output)
	}
	if result.Database != "" {
		fmt.Fprintf(w, "  stored in %s\n", result.Database)
	}
	return nil
}

// writeBundle writes b to path, or to stdout as JSON when path is "-".
func writeBundle(stdout io.Writer, path, global string, b *ir.Bundle) error {
	if path == "-" {
		return ir.Encode(stdout, b, ir.FormatJSON)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".js") {
		err = transport.Write(file, b, transport.Options{Global: global, Header: true})
	} else {
		err = ir.Encode(file, b, ir.FormatFor(path))
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}

func storeBundle(cmd *cobra.Command, path string, b *ir.Bundle) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.WriteBundle(cmd.Context(), b)
}
