package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/rmod/internal/resolver"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	From string
	resolverFlags
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <request>",
		Short: "Resolve a require() request to its logical and real paths",
		Long: `Resolve a request exactly as require(request) would from a module in
the --from directory (default: the project directory), applying browser
overrides and node_modules lookup.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "directory the request is made from")
	opts.resolverFlags.register(cmd)

	return cmd
}

func runResolve(cmd *cobra.Command, opts *ResolveOptions, request string) error {
	f := opts.formatter(cmd)
	_, r, err := opts.setup(cmd, &opts.resolverFlags)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	from, err := opts.fromDir(opts.From)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid --from", err)
	}

	info, err := r.ResolveRequire(request, from)
	if err != nil {
		return f.Fail(ExitFailure, notFoundCode(err), fmt.Sprintf("cannot resolve %q", request), err)
	}
	if f.Format == "json" {
		return f.Success(info)
	}
	printPathInfo(f.Writer, info)
	return nil
}

// InfoOptions holds flags for the info command.
type InfoOptions struct {
	*RootOptions
	resolverFlags
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InfoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "info <path>",
		Short:         "Describe a file or directory on disk",
		Long:          "Print the logical path, real path and the dep, main and remap bindings derived for an existing path.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, opts, args[0])
		},
	}
	opts.resolverFlags.register(cmd)

	return cmd
}

func runInfo(cmd *cobra.Command, opts *InfoOptions, path string) error {
	f := opts.formatter(cmd)
	_, r, err := opts.setup(cmd, &opts.resolverFlags)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid path", err)
	}

	info, err := r.PathInfo(abs)
	if err != nil {
		return f.Fail(ExitFailure, notFoundCode(err), fmt.Sprintf("cannot describe %s", path), err)
	}
	if f.Format == "json" {
		return f.Success(info)
	}
	printPathInfo(f.Writer, info)
	return nil
}

// DeresolveOptions holds flags for the deresolve command.
type DeresolveOptions struct {
	*RootOptions
	From string
	resolverFlags
}

// NewDeresolveCommand creates the deresolve command.
func NewDeresolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeresolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "deresolve <target>",
		Short: "Print the shortest request that reaches a file",
		Long: `Print the require() string that resolves to target when required from
the --from directory (default: the project directory).

Example:
  rmod deresolve node_modules/foo/lib/index.js --from src   # foo`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeresolve(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "directory the request would be made from")
	opts.resolverFlags.register(cmd)

	return cmd
}

func runDeresolve(cmd *cobra.Command, opts *DeresolveOptions, target string) error {
	f := opts.formatter(cmd)
	_, r, err := opts.setup(cmd, &opts.resolverFlags)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	from, err := opts.fromDir(opts.From)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid --from", err)
	}

	request, err := r.Deresolve(target, from)
	if err != nil {
		return f.Fail(ExitFailure, notFoundCode(err), fmt.Sprintf("cannot deresolve %s", target), err)
	}
	if f.Format == "json" {
		return f.Success(map[string]string{"request": request})
	}
	return f.Success(request)
}

// fromDir returns from as an absolute path, or the project directory when
// from is empty.
func (o *RootOptions) fromDir(from string) (string, error) {
	if from == "" {
		return o.projectDir()
	}
	return filepath.Abs(from)
}

func notFoundCode(err error) string {
	if resolver.IsNotFound(err) {
		return ErrCodeNotFound
	}
	return ErrCodeGeneric
}

func printPathInfo(w io.Writer, info *resolver.PathInfo) {
	fmt.Fprintf(w, "logical: %s\n", info.LogicalPath)
	fmt.Fprintf(w, "real:    %s\n", info.RealPath)
	fmt.Fprintf(w, "file:    %s\n", info.FilePath)
	if info.Dep != nil {
		fmt.Fprintf(w, "dep:     %q %s@%s", info.Dep.ParentPath, info.Dep.ChildName, info.Dep.ChildVersion)
		if info.Dep.Alias != "" {
			fmt.Fprintf(w, " as %s", info.Dep.Alias)
		}
		fmt.Fprintln(w)
	}
	if info.Main != nil {
		fmt.Fprintf(w, "main:    %s (%s)\n", info.Main.Path, info.Main.FilePath)
	}
	if info.Remap != nil {
		fmt.Fprintf(w, "remap:   %s -> %s\n", info.Remap.From, info.Remap.To)
	}
}
