package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imyousuf/rubyagent/internal/config"
	"github.com/imyousuf/rubyagent/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Endpoints:
  GET  /health   liveness check
  POST /analyze  {"root": "...", "output": "..."} runs an analysis
  GET  /metrics  Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "host to bind to")
	cmd.Flags().IntVar(&port, "port", 8000, "port to bind to")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
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

	ctx, cancel := withSignals(cmd)
	defer cancel()

	srv := server.New(server.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Indexer: idx,
	})
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", srv.Addr())
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// withSignals returns a context cancelled on SIGINT or SIGTERM.
func withSignals(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(cmd.Context())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nShutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
