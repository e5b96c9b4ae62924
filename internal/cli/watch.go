package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/stratum/config"
	"github.com/dshills/stratum/config/discovery"
	"github.com/dshills/stratum/config/layer"
	"github.com/dshills/stratum/config/value"
	"github.com/dshills/stratum/config/watcher"
)

func newWatchCommand(o *options) *cobra.Command {
	var (
		format   string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the merged configuration again whenever a source file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.compose()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := render(out, c, format); err != nil {
				return err
			}

			w := watcher.New(watcher.WithDebounce(debounce), watcher.WithLogger(o.logger))
			for _, path := range o.watchPaths(c) {
				if err := w.Watch(path); err != nil {
					o.logger.Warn().Err(err).Str("path", path).Msg("cannot watch")
				}
			}

			changes := make(chan watcher.Event, 16)
			w.OnChange(func(ev watcher.Event) {
				select {
				case changes <- ev:
				default:
				}
			})
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			prev, _ := c.Merged()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case ev := <-changes:
					o.detector.Invalidate(ev.Path)
					o.logger.Info().Str("path", ev.Path).Str("op", ev.Op.String()).Msg("config file changed")

					next, err := o.compose()
					if err != nil {
						o.logger.Error().Err(err).Msg("reload failed, keeping previous configuration")
						continue
					}
					merged, _ := next.Merged()
					if !reportChanges(out, prev, merged) {
						continue
					}
					prev = merged
					if err := render(out, next, format); err != nil {
						return err
					}
					for _, path := range o.watchPaths(next) {
						_ = w.Watch(path)
					}
				}
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "json", "output format (json|yaml|toml)")
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "quiet period before reloading")
	return cmd
}

// watchPaths returns every file that can change the result: the loaded
// file layers, the explicit file flags and every discovery candidate, so
// that newly created files are picked up. New files matching --glob are
// not seen until a watched file changes.
func (o *options) watchPaths(c *config.Composition) []string {
	var paths []string
	for _, l := range c.Layers() {
		if l.Meta.Kind == layer.KindFile {
			paths = append(paths, l.Meta.Location)
		}
	}
	for _, src := range o.sources {
		if src.kind != sourceGlob {
			paths = append(paths, src.arg)
		}
	}
	if o.app != "" && !o.noDiscovery {
		for _, cand := range discovery.New().Candidates(o.app) {
			paths = append(paths, cand.Paths...)
		}
	}
	return paths
}

// reportChanges prints the keys that differ between two merged values and
// reports whether there were any.
func reportChanges(w io.Writer, old, new value.Value) bool {
	added, modified, removed := layer.Diff(old, new)
	if len(added)+len(modified)+len(removed) == 0 {
		return false
	}
	for _, k := range added {
		fmt.Fprintf(w, "+ %s\n", k)
	}
	for _, k := range modified {
		fmt.Fprintf(w, "~ %s\n", k)
	}
	for _, k := range removed {
		fmt.Fprintf(w, "- %s\n", k)
	}
	return true
}
