package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/imyousuf/rubyagent/internal/client"
	"github.com/imyousuf/rubyagent/internal/config"
)

func newRemoteCmd() *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Drive a running rubyagent server",
		Long: `Talk to a rubyagent HTTP server. The URL defaults to the configured
server address.`,
	}

	cmd.PersistentFlags().StringVar(&baseURL, "url", "", "server base URL (default: http://<server.host>:<server.port>)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "request timeout")

	newClient := func() (*client.Client, error) {
		if baseURL != "" {
			return client.New(baseURL, timeout), nil
		}
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		return client.New(serverURL(cfg), timeout), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health check %s: %w", c.BaseURL(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", c.BaseURL(), resp.Status)
			return nil
		},
	})

	var output string
	analyzeCmd := &cobra.Command{
		Use:   "analyze <root>",
		Short: "Ask the server to analyze a directory",
		Long: `Ask the server to analyze root. Paths are resolved on the server's
filesystem.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Analyze(cmd.Context(), args[0], output)
			if err != nil {
				return fmt.Errorf("analyze via %s: %w", c.BaseURL(), err)
			}
			if !resp.Success {
				return errors.New(resp.Error)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %d nodes to %s\n", resp.NodesCount, resp.OutputPath)
			fmt.Fprintf(out, "Wrote classes dictionary with %d files to %s\n", resp.FilesCount, resp.ClassesDictPath)
			if resp.RunID != "" {
				fmt.Fprintf(out, "Recorded run %s\n", resp.RunID)
			}
			return nil
		},
	}
	analyzeCmd.Flags().StringVarP(&output, "output", "o", "", "output path on the server (default: the server's choice)")
	cmd.AddCommand(analyzeCmd)

	return cmd
}

func serverURL(cfg *config.Config) string {
	return "http://" + cfg.Server.Addr()
}
