package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/stratum/config"
	"github.com/dshills/stratum/config/discovery"
	"github.com/dshills/stratum/config/loader"
)

// ErrPathNotFound is returned by get for a path the merged value lacks.
var ErrPathNotFound = errors.New("path not found")

func newShowCommand(o *options) *cobra.Command {
	var (
		format     string
		provenance bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.compose()
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), c, format); err != nil {
				return err
			}
			if provenance {
				printLayers(cmd.ErrOrStderr(), c)
			}
			printDiagnostics(cmd.ErrOrStderr(), c)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "json", "output format (json|yaml|toml)")
	cmd.Flags().BoolVar(&provenance, "layers", false, "list the merged layers on stderr")
	return cmd
}

func newGetCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print one value from the merged configuration",
		Long: `Print the value at a path such as server.port or features.0.

Strings are printed bare; other values are printed as JSON. The layer that
supplied the value is logged at info level (-v).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.compose()
			if err != nil {
				return err
			}
			doc, err := c.AsJSON()
			if err != nil {
				return err
			}
			out, ok := getPath(doc, args[0])
			if !ok {
				return fmt.Errorf("%w: %s", ErrPathNotFound, args[0])
			}
			if meta, ok := c.Provenance(args[0]); ok {
				o.logger.Info().EmbedObject(meta).Str("path", args[0]).Msg("value source")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func newPathsCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "List the files hierarchical discovery would try",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.app == "" {
				return errors.New("paths needs --app")
			}
			finder := discovery.New()
			found := make(map[string]bool)
			for _, f := range finder.Discover(o.app) {
				found[f.Path] = true
			}

			w := cmd.OutOrStdout()
			for _, cand := range finder.Candidates(o.app) {
				fmt.Fprintf(w, "%s\t%s\n", cand.Level, cand.Dir)
				for _, path := range cand.Paths {
					mark := " "
					if found[path] {
						mark = "*"
					}
					fmt.Fprintf(w, "  %s %s\n", mark, path)
				}
			}
			return nil
		},
	}
}

func newDetectCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>...",
		Short: "Print the detected format of configuration files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := loader.NewDetector(loader.WithLogger(o.logger), loader.WithCache(nil))
			var errs []error
			for _, path := range args {
				doc, err := d.Load(path)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d keys\n", doc.Path, doc.Format, doc.Value.Len())
			}
			return errors.Join(errs...)
		},
	}
}

func newVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stratum %s\ncommit: %s\nbuilt:  %s\n", info.Version, info.Commit, info.Date)
		},
	}
}

func render(w io.Writer, c *config.Composition, format string) error {
	f, err := loader.ParseFormatName(format)
	if err != nil {
		return fmt.Errorf("unknown output format %q", format)
	}

	var out []byte
	switch f {
	case loader.FormatJSON:
		out, err = c.AsJSON()
		out = append(out, '\n')
	case loader.FormatYAML:
		out, err = c.AsYAML()
	case loader.FormatTOML:
		out, err = c.AsTOML()
	default:
		return fmt.Errorf("cannot render %s output", f)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func printLayers(w io.Writer, c *config.Composition) {
	for i, l := range c.Layers() {
		fmt.Fprintf(w, "layer %d: %s\n", i+1, l.Meta)
	}
}

func printDiagnostics(w io.Writer, c *config.Composition) {
	for _, d := range c.Diagnostics() {
		fmt.Fprintln(w, d)
	}
}
