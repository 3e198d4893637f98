package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/imyousuf/rubyagent/internal/config"
)

// Style definitions for config view.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(18)
	valueStyle = lipgloss.NewStyle()
)

func newConfigCmd() *cobra.Command {
	var profilePath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the effective run configuration (file, environment and defaults
merged) and the saved agent profile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			renderConfig(cmd.OutOrStdout(), cfg, config.NewProfileManager(profilePath))
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "profile file (default: ~/.ruby_agent/config.json)")

	return cmd
}

func renderConfig(out io.Writer, cfg *config.Config, profiles *config.ProfileManager) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("rubyagent Configuration"))
	fmt.Fprintln(out, headerStyle.Render(strings.Repeat("=", 23)))
	fmt.Fprintln(out)

	printSection(out, "Analysis")
	root := cfg.Root
	if root == "" {
		root = "(not set)"
	}
	printKV(out, "Root", root)
	printKV(out, "Output", cfg.Output)
	printKV(out, "Workers", fmt.Sprint(cfg.Workers))
	printKV(out, "Source cache", fmt.Sprintf("%d files", cfg.CacheSize))
	printKV(out, "Use .gitignore", boolYesNo(cfg.RespectGitIgnore))
	fmt.Fprintln(out)

	printSection(out, "Exclusions")
	if len(cfg.Exclude) == 0 {
		fmt.Fprintln(out, "    (none)")
	}
	for _, pattern := range cfg.Exclude {
		fmt.Fprintf(out, "    %s\n", pattern)
	}
	fmt.Fprintln(out)

	printSection(out, "Server")
	printKV(out, "Address", cfg.Server.Addr())
	fmt.Fprintln(out)

	printSection(out, "Store")
	printKV(out, "Enabled", boolYesNo(cfg.Store.Enabled))
	printKV(out, "Path", cfg.Store.Path)
	fmt.Fprintln(out)

	printSection(out, "Logging")
	printKV(out, "Level", cfg.LogLevel)
	printKV(out, "Format", cfg.LogFormat)
	fmt.Fprintln(out)

	printSection(out, "Agent Profile")
	profile, err := profiles.Load()
	switch {
	case errors.Is(err, config.ErrNoProfile):
		fmt.Fprintln(out, "    (none; run 'rubyagent setup')")
	case err != nil:
		fmt.Fprintf(out, "    unreadable: %v\n", err)
	default:
		printKV(out, "Name", profile.UserName)
		printKV(out, "Email", profile.UserEmail)
		printKV(out, "Root path", profile.RootPath)
		printKV(out, "Language", profile.Language)
		printKV(out, "Agent ID", profile.AgentID)
	}
	printKV(out, "File", profiles.Path)
	fmt.Fprintln(out)
}

func printSection(out io.Writer, title string) {
	fmt.Fprintf(out, "  %s\n", headerStyle.Render(title))
}

func printKV(out io.Writer, label, value string) {
	fmt.Fprintf(out, "    %s%s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func boolYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
