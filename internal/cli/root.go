package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/rmod/internal/config"
	"github.com/roach88/rmod/internal/resolver"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Dir     string // project directory holding rmod.cue
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rmod CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rmod",
		Short: "rmod - CommonJS module resolver and loader",
		Long: "Resolve require() requests against node_modules, build deduplicated " +
			"module bundles and load them into an in-memory CommonJS runtime.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Dir, "dir", "C", ".", "project directory")

	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewDeresolveCommand(opts))
	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewBundlesCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger writes to the command's stderr; Debug under --verbose.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// projectDir returns the absolute --dir.
func (o *RootOptions) projectDir() (string, error) {
	dir := o.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	dir, err := o.projectDir()
	if err != nil {
		return nil, err
	}
	return config.Load(dir)
}

// resolverFlags are the resolver settings every filesystem command can
// override. Only flags set on the command line replace config values.
type resolverFlags struct {
	root        string
	extensions  []string
	searchPaths []string
	browser     bool
	removeExt   bool
}

func (f *resolverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.root, "root", "", "project root (default: discovered)")
	cmd.Flags().StringSliceVar(&f.extensions, "ext", nil, "registered extensions, in probe order")
	cmd.Flags().StringSliceVar(&f.searchPaths, "search-path", nil, "extra lookup directory (repeatable)")
	cmd.Flags().BoolVar(&f.browser, "browser", true, "apply package.json browser overrides")
	cmd.Flags().BoolVar(&f.removeExt, "remove-ext", true, "strip registered extensions from paths")
}

func (f *resolverFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("root") {
		abs, err := filepath.Abs(f.root)
		if err != nil {
			return err
		}
		cfg.Root = abs
	}
	if flags.Changed("ext") {
		cfg.Extensions = f.extensions
	}
	if flags.Changed("search-path") {
		cfg.SearchPaths = make([]string, len(f.searchPaths))
		for i, p := range f.searchPaths {
			abs, err := filepath.Abs(p)
			if err != nil {
				return err
			}
			cfg.SearchPaths[i] = abs
		}
	}
	if flags.Changed("browser") {
		cfg.Browser = f.browser
	}
	if flags.Changed("remove-ext") {
		cfg.RemoveExt = f.removeExt
	}
	return nil
}

// setup loads the config, applies flag overrides and builds a resolver.
func (o *RootOptions) setup(cmd *cobra.Command, flags *resolverFlags) (*config.Config, *resolver.Resolver, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := flags.apply(cmd, cfg); err != nil {
		return nil, nil, err
	}
	ropts := cfg.ResolverOptions()
	ropts.Logger = o.logger(cmd)
	return cfg, resolver.New(ropts), nil
}
