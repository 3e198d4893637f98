package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/imyousuf/rubyagent/internal/config"
	"github.com/imyousuf/rubyagent/internal/indexer"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		output       string
		workers      int
		noStore      bool
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [root]",
		Short: "Analyze a directory and write the output files",
		Long: `Analyze every Ruby file under root and write the class nodes to the
output file, with classes_dictionary.json beside it.

The root defaults to the "root" key of the configuration. Unless the store
is disabled, the run is also recorded for 'query' and 'status'.`,
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
			if cmd.Flags().Changed("workers") {
				if workers < 1 {
					return fmt.Errorf("workers must be at least 1, got %d", workers)
				}
				cfg.Workers = workers
			}
			if noStore {
				cfg.Store.Enabled = false
			}
			return runAnalyze(cmd, cfg, root, showProgress)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "nodes.json", "path to write the aggregated JSON output")
	cmd.Flags().IntVar(&workers, "workers", 1, "parallel workers for the summary pass")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not record the run in the analysis store")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show progress bars on stderr")

	return cmd
}

func runAnalyze(cmd *cobra.Command, cfg *config.Config, root string, showProgress bool) error {
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

	out, err := idx.Run(cmd.Context(), root, cfg.Output)
	if p != nil {
		p.finish()
	}
	if err != nil {
		return err
	}
	printOutcome(cmd.OutOrStdout(), out)
	return nil
}

func printOutcome(w io.Writer, out *indexer.Outcome) {
	fmt.Fprintf(w, "Wrote %d nodes to %s\n", len(out.Result.Classes), out.Paths.Nodes)
	fmt.Fprintf(w, "Wrote classes dictionary with %d files to %s\n", out.Result.Variants.Len(), out.Paths.Dictionary)
	if id := out.RunID(); id != "" {
		fmt.Fprintf(w, "Recorded run %s\n", id)
	}
}
