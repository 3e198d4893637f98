// Package cli implements the command-line interface for rubyagent.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// errRootRequired is returned when the root command gets no directory and
// no mode flag.
var errRootRequired = errors.New("root directory is required when not using --server mode")

func newRootCmd() *cobra.Command {
	var (
		output  string
		setup   bool
		server  bool
		host    string
		port    int
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "rubyagent [root]",
		Short: "rubyagent - Ruby class structure analyzer",
		Long: `rubyagent parses Ruby sources with tree-sitter and reports every class:
its namespaces, superclass, included modules, methods, and the files that
the constants each method calls into are defined in.

Given a directory it writes the class nodes (nodes.json by default) and a
classes dictionary beside them. --server starts the HTTP API instead and
--setup runs the interactive agent setup.

Commands:
  analyze    Analyze a directory and write the output files
  serve      Start the HTTP API
  watch      Re-analyze whenever a Ruby file changes
  query      Resolve a class name against the latest stored run
  status     Show stored runs and files changed since the latest
  setup      Configure the agent profile interactively
  init       Write a .rubyagent.yaml config file
  config     Show the effective configuration
  remote     Drive a running rubyagent server
  mcp        Serve analysis tools over MCP (stdio)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case setup:
				return runSetup(cmd, "")
			case server:
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("host") {
					cfg.Server.Host = host
				}
				if cmd.Flags().Changed("port") {
					cfg.Server.Port = port
				}
				return runServe(cmd, cfg)
			}
			if len(args) == 0 {
				return errRootRequired
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Output = output
			}
			if noStore {
				cfg.Store.Enabled = false
			}
			return runAnalyze(cmd, cfg, args[0], false)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .rubyagent.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	cmd.Flags().StringVarP(&output, "output", "o", "nodes.json", "path to write the aggregated JSON output")
	cmd.Flags().BoolVar(&setup, "setup", false, "run interactive setup to configure the agent")
	cmd.Flags().BoolVar(&server, "server", false, "start the HTTP server instead of running analysis")
	cmd.Flags().StringVar(&host, "host", "localhost", "host to bind the server to")
	cmd.Flags().IntVar(&port, "port", 8000, "port to bind the server to")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not record the run in the analysis store")

	if err := viper.BindPFlag("config_file", cmd.PersistentFlags().Lookup("config")); err != nil {
		panic(fmt.Sprintf("failed to bind config flag: %v", err))
	}

	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newRemoteCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
