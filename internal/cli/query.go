package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/imyousuf/rubyagent/internal/analyzer"
	"github.com/imyousuf/rubyagent/internal/export"
	"github.com/imyousuf/rubyagent/internal/store"
)

// queryResult is the --json form of a query.
type queryResult struct {
	RunID    string                 `json:"run_id"`
	Name     string                 `json:"name"`
	Resolved bool                   `json:"resolved"`
	Via      string                 `json:"via"`
	FilePath string                 `json:"file_path,omitempty"`
	Classes  []analyzer.ClassRecord `json:"classes"`
}

func newQueryCmd() *cobra.Command {
	var (
		runID  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "query <name>",
		Short: "Resolve a class name against the latest stored run",
		Long: `Resolve a class reference such as Auth, Api::Auth or ::Auth the same way
call receivers are resolved during analysis, using the class registry of
the latest stored run (or --run), and show the classes in the defining file.`,
		Args: cobra.ExactArgs(1),
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

			var run *store.Run
			if runID != "" {
				run, err = st.GetRun(cmd.Context(), runID)
			} else {
				run, err = st.LatestRun(cmd.Context())
			}
			if errors.Is(err, store.ErrNotFound) {
				return errors.New("no stored run found; run 'rubyagent analyze' first")
			}
			if err != nil {
				return fmt.Errorf("load run: %w", err)
			}

			res := resolveInRun(run, args[0])
			out := cmd.OutOrStdout()
			if asJSON {
				data, err := export.Marshal(res)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			printQuery(out, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "stored run id (default: latest)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func resolveInRun(run *store.Run, name string) queryResult {
	resolution := analyzer.RegistryFromRecords(run.Classes).Resolve(name)
	res := queryResult{
		RunID:    run.ID,
		Name:     name,
		Resolved: resolution.Resolved(),
		Via:      resolution.Via.String(),
		FilePath: resolution.Path,
		Classes:  []analyzer.ClassRecord{},
	}
	if res.Resolved {
		for _, c := range run.Classes {
			if c.FilePath == resolution.Path {
				res.Classes = append(res.Classes, c)
			}
		}
	}
	return res
}

func printQuery(out io.Writer, res queryResult) {
	fmt.Fprintln(out, headerStyle.Render("Query "+res.Name))
	fmt.Fprintln(out)
	printKV(out, "Run", res.RunID)
	if !res.Resolved {
		printKV(out, "Resolved", "no")
		return
	}
	printKV(out, "Resolved", "yes ("+res.Via+")")
	printKV(out, "File", res.FilePath)
	fmt.Fprintln(out)

	printSection(out, "Classes in file")
	for _, c := range res.Classes {
		line := c.Label
		if c.Inheritance != nil {
			line += " " + *c.Inheritance
		}
		fmt.Fprintf(out, "    %s  (%d methods)\n", line, len(c.Methods))
	}
}
