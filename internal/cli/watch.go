package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/imyousuf/rubyagent/internal/indexer"
)

func newWatchCmd() *cobra.Command {
	var (
		output       string
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Re-analyze whenever a Ruby file changes",
		Long: `Analyze root once, then watch it and rewrite the outputs after every
burst of changes to .rb files. Excluded paths are ignored. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			root := cfg.Root
			if len(args) == 1 {
				root = args[0]
			}
			if root == "" {
				return errRootRequired
			}
			if cmd.Flags().Changed("output") {
				cfg.Output = output
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			var p *progressReporter
			if showProgress {
				p = newProgressReporter(cmd.ErrOrStderr())
			}
			idx, err := newIndexer(cfg, st, p)
			if err != nil {
				return err
			}

			ctx, cancel := withSignals(cmd)
			defer cancel()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s...\n", root)
			err = idx.Watch(ctx, root, cfg.Output, func(o *indexer.Outcome, err error) {
				if p != nil {
					p.finish()
				}
				if err != nil {
					slog.Warn("analysis failed", slog.String("error", err.Error()))
					return
				}
				printOutcome(out, o)
			})
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}

			stats := idx.Stats()
			fmt.Fprintf(out, "\nFinal stats:\n")
			fmt.Fprintf(out, "  Runs:     %d\n", stats.Runs)
			fmt.Fprintf(out, "  Classes:  %d\n", stats.LastClasses)
			fmt.Fprintf(out, "  Files:    %d\n", stats.LastFiles)
			if stats.Failures > 0 {
				fmt.Fprintf(out, "  Failures: %d\n", stats.Failures)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "nodes.json", "path to write the aggregated JSON output")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show progress bars on stderr")

	return cmd
}
