package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imyousuf/rubyagent/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		root  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a .rubyagent.yaml config file",
		Long: `Write .rubyagent.yaml in the current directory with the default settings.

Every key can also be set through RUBYAGENT_* environment variables, e.g.
RUBYAGENT_SERVER_PORT=9000.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFile + "." + config.DefaultConfigType
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}

			cfg := config.Default()
			cfg.Root = root
			if err := config.WriteConfig(cfg, path); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", path)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Edit exclude patterns and the output path if needed")
			fmt.Fprintf(out, "  2. Add %s to .gitignore\n", cfg.Store.Path)
			fmt.Fprintln(out, "  3. Run 'rubyagent analyze <root>' to write nodes.json")
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "default directory to analyze")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
