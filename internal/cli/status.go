package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/imyousuf/rubyagent/internal/config"
	"github.com/imyousuf/rubyagent/internal/discover"
	"github.com/imyousuf/rubyagent/internal/store"
)

func newStatusCmd() *cobra.Command {
	var (
		prune int
		runs  int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show stored runs and files changed since the latest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openExistingStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if prune > 0 {
				n, err := st.Prune(ctx, prune)
				if err != nil {
					return fmt.Errorf("prune runs: %w", err)
				}
				fmt.Fprintf(out, "Pruned %d runs\n\n", n)
			}

			stats, err := st.Stats(ctx)
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}

			fmt.Fprintln(out, headerStyle.Render("Analysis Store Status"))
			fmt.Fprintln(out)
			printKV(out, "Store", cfg.Store.Path)
			printKV(out, "Runs", fmt.Sprint(stats.Runs))
			printKV(out, "Size", fmt.Sprintf("%d bytes", stats.LSMBytes+stats.VLogBytes))
			fmt.Fprintln(out)

			latest, err := st.LatestRun(ctx)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintln(out, "  No runs recorded.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("load latest run: %w", err)
			}

			printSection(out, "Latest run")
			printKV(out, "ID", latest.ID)
			printKV(out, "Root", latest.Root)
			printKV(out, "Started", latest.StartedAt.Format("2006-01-02 15:04:05"))
			printKV(out, "Duration", latest.Duration.String())
			printKV(out, "Files", fmt.Sprint(len(latest.Files)))
			printKV(out, "Classes", fmt.Sprint(len(latest.Classes)))
			fmt.Fprintln(out)

			if err := printChanges(out, cfg, latest); err != nil {
				return err
			}

			if runs > 0 {
				return printRecentRuns(ctx, out, st, runs)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&prune, "prune", 0, "keep only the N newest runs")
	cmd.Flags().IntVar(&runs, "runs", 5, "list the N most recent runs (0 to skip)")

	return cmd
}

func printChanges(out io.Writer, cfg *config.Config, run *store.Run) error {
	files, err := discover.Files(run.Root, discover.Options{
		Exclude:          cfg.Exclude,
		RespectGitIgnore: cfg.RespectGitIgnore,
	})
	if err != nil {
		printSection(out, "Changes since latest run")
		fmt.Fprintf(out, "    unavailable: %v\n\n", err)
		return nil
	}
	current, err := store.DigestFiles(files)
	if err != nil {
		return fmt.Errorf("digest files: %w", err)
	}
	changes := store.ChangedFiles(run, current)

	printSection(out, "Changes since latest run")
	if changes.Empty() {
		fmt.Fprintln(out, "    none")
		fmt.Fprintln(out)
		return nil
	}
	for _, path := range changes.Added {
		fmt.Fprintf(out, "    added     %s\n", path)
	}
	for _, path := range changes.Modified {
		fmt.Fprintf(out, "    modified  %s\n", path)
	}
	for _, path := range changes.Removed {
		fmt.Fprintf(out, "    removed   %s\n", path)
	}
	fmt.Fprintln(out)
	return nil
}

func printRecentRuns(ctx context.Context, out io.Writer, st *store.Store, limit int) error {
	list, err := st.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	printSection(out, "Recent runs")
	for _, r := range list {
		fmt.Fprintf(out, "    %s  %s  %d classes  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), len(r.Classes), r.Root)
	}
	fmt.Fprintln(out)
	return nil
}
