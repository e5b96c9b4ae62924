// Package cli implements the stratum command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/stratum/config"
	"github.com/dshills/stratum/config/discovery"
	"github.com/dshills/stratum/config/loader"
	"github.com/dshills/stratum/internal/logging"
)

// BuildInfo describes the binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// IO holds the streams and environment the commands use.
type IO struct {
	Out     io.Writer
	Err     io.Writer
	Environ func() []string
}

// options are the flags shared by every command that composes
// configuration.
type options struct {
	io IO

	app         string
	envPrefix   string
	sources     []source
	globRoot    string
	globOrder   string
	sets        []string
	noDiscovery bool

	verbose  int
	logLevel string
	pretty   bool

	logger   zerolog.Logger
	detector *loader.Detector
}

type sourceKind uint8

const (
	sourceFile sourceKind = iota
	sourceOptional
	sourceGlob
)

// source is one --file, --optional-file or --glob flag. They share a slice
// so that layers keep the order the flags were given in.
type source struct {
	kind sourceKind
	arg  string
}

// sourceFlag implements pflag.Value, appending to the shared slice.
type sourceFlag struct {
	kind sourceKind
	list *[]source
}

func (f sourceFlag) String() string {
	var args []string
	for _, s := range *f.list {
		if s.kind == f.kind {
			args = append(args, s.arg)
		}
	}
	return "[" + strings.Join(args, ",") + "]"
}

func (f sourceFlag) Set(arg string) error {
	*f.list = append(*f.list, source{kind: f.kind, arg: arg})
	return nil
}

func (f sourceFlag) Type() string { return "stringArray" }

// NewRootCommand builds the command tree.
func NewRootCommand(info BuildInfo, streams IO) *cobra.Command {
	if streams.Out == nil {
		streams.Out = os.Stdout
	}
	if streams.Err == nil {
		streams.Err = os.Stderr
	}
	if streams.Environ == nil {
		streams.Environ = os.Environ
	}
	o := &options{io: streams, logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "stratum",
		Short: "Compose layered configuration from files, environment and flags",
		Long: `stratum merges configuration from system, user and project files,
environment variables and command-line overrides, and prints the result.

Arrays are replaced by later layers unless a sibling key ending in _add or
_remove edits them.`,
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setupLogging(cmd)
		},
	}
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)
	root.SetVersionTemplate(fmt.Sprintf("stratum %s (%s, %s)\n", info.Version, info.Commit, info.Date))

	flags := root.PersistentFlags()
	flags.StringVarP(&o.app, "app", "a", "", "application name used for hierarchical discovery")
	flags.StringVarP(&o.envPrefix, "env-prefix", "e", "", "environment variable prefix, e.g. MYAPP")
	flags.VarP(sourceFlag{kind: sourceFile, list: &o.sources}, "file", "f", "required configuration file (repeatable)")
	flags.Var(sourceFlag{kind: sourceOptional, list: &o.sources}, "optional-file", "optional configuration file (repeatable)")
	flags.Var(sourceFlag{kind: sourceGlob, list: &o.sources}, "glob", "glob of optional configuration files under --glob-root (repeatable)")
	flags.StringVar(&o.globRoot, "glob-root", ".", "directory --glob patterns are relative to")
	flags.StringVar(&o.globOrder, "glob-order", "alphabetical", "order of --glob matches (alphabetical|reverse|size|size-desc|mtime|mtime-desc)")
	flags.StringArrayVar(&o.sets, "set", nil, "override as path=value (repeatable)")
	flags.BoolVar(&o.noDiscovery, "no-discovery", false, "skip hierarchical discovery")
	flags.CountVarP(&o.verbose, "verbose", "v", "increase log verbosity (-v, -vv, -vvv)")
	flags.StringVar(&o.logLevel, "log-level", "", "log level (trace|debug|info|warn|error)")
	flags.BoolVar(&o.pretty, "pretty", false, "human-readable logs")

	root.AddCommand(
		newShowCommand(o),
		newGetCommand(o),
		newPathsCommand(o),
		newDetectCommand(o),
		newWatchCommand(o),
		newVersionCommand(info),
	)
	return root
}

// Execute runs the command tree with os.Args.
func Execute(ctx context.Context, info BuildInfo) error {
	return NewRootCommand(info, IO{}).ExecuteContext(ctx)
}

func (o *options) setupLogging(cmd *cobra.Command) error {
	settings, err := LoadSettings(o.io.Environ())
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		settings.Verbose = o.verbose
	}
	if flags.Changed("log-level") {
		settings.LogLevel = o.logLevel
	}
	if flags.Changed("pretty") {
		settings.Pretty = o.pretty
	}

	cfg := settings.logging()
	cfg.Output = o.io.Err
	o.logger = logging.New(cfg)
	return nil
}

// compose builds the composition described by the flags: discovered
// files, then --file, --optional-file and --glob in the order given, the
// environment and finally --set.
func (o *options) compose() (*config.Composition, error) {
	if o.detector == nil {
		o.detector = loader.NewDetector(loader.WithLogger(o.logger))
	}
	c := config.New(
		config.WithLogger(o.logger),
		config.WithDetector(o.detector),
		config.WithEnviron(o.io.Environ),
	)

	if o.app != "" && !o.noDiscovery {
		c = c.WithHierarchical(o.app)
	}
	order, err := discovery.ParseOrder(o.globOrder)
	if err != nil {
		return nil, err
	}
	globRoot, err := filepath.Abs(o.globRoot)
	if err != nil {
		return nil, err
	}
	for _, src := range o.sources {
		switch src.kind {
		case sourceFile:
			c = c.WithFile(src.arg)
		case sourceOptional:
			c = c.WithOptionalFile(src.arg)
		case sourceGlob:
			c = c.WithGlob(globRoot, []string{src.arg}, discovery.WithOrder(order))
		}
	}
	if o.envPrefix != "" {
		c = c.WithEnvironment(o.envPrefix)
	}
	if len(o.sets) > 0 {
		overrides, err := parseSets(o.sets)
		if err != nil {
			return nil, err
		}
		c = c.WithOverride(overrides)
	}

	if err := c.Err(); err != nil {
		return nil, err
	}
	return c, nil
}
