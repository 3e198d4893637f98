package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/imyousuf/rubyagent/internal/logging"
	"github.com/imyousuf/rubyagent/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  `Commands for running the MCP (Model Context Protocol) server.`,
	}

	mcpCmd.AddCommand(newMCPServeCmd())
	return mcpCmd
}

func newMCPServeCmd() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Start an MCP server over stdin/stdout.

Tools:
  analyze_directory  analyze a directory, optionally writing outputs
  lookup_class       resolve a class reference to its defining file
  class_variants     list the names a class can be referenced by
  list_runs          list stored analysis runs
  stats              analysis counters since start

This command is typically launched by an MCP client, not run directly.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := slog.Default()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file %s: %w", logFile, err)
				}
				defer f.Close()
				lc := logging.Config{Level: logging.Level(cfg.LogLevel), Format: logging.FormatJSON, Output: f}
				if verbose {
					lc.Level = logging.LevelDebug
				}
				logger = logging.NewLogger(lc)
				slog.SetDefault(logger)
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}
			idx, err := newIndexer(cfg, st, nil)
			if err != nil {
				return err
			}

			// stdout carries the protocol; status goes to stderr.
			fmt.Fprintln(cmd.ErrOrStderr(), "rubyagent MCP server started")
			return mcp.NewServer(idx, Version, logger).ServeStdio()
		},
	}

	cmd.Flags().StringVar(&logFile, "log", "", "write logs to this file instead of stderr")

	return cmd
}
