package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/imyousuf/rubyagent/internal/config"
)

func newSetupCmd() *cobra.Command {
	var profilePath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Configure the agent profile interactively",
		Long: `Ask for your name, work email, project root and language, generate an
agent id and save the profile (default ~/.ruby_agent/config.json).

Inside a Docker container the root must be an absolute container path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, profilePath)
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "profile file (default: ~/.ruby_agent/config.json)")

	return cmd
}

func runSetup(cmd *cobra.Command, profilePath string) error {
	out := cmd.OutOrStdout()
	mgr := config.NewProfileManager(profilePath)
	docker := config.InDocker()

	existing, err := mgr.Load()
	if err != nil && !errors.Is(err, config.ErrNoProfile) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: ignoring unreadable profile: %v\n", err)
		existing = nil
	}

	if existing != nil {
		overwrite := false
		confirm := huh.NewForm(
			huh.NewGroup(
				huh.NewNote().
					Title("Existing configuration found").
					Description(profileSummary(existing)),
				huh.NewConfirm().
					Title("Overwrite this configuration?").
					Value(&overwrite).
					Affirmative("Overwrite").
					Negative("Keep"),
			),
		).WithTheme(huh.ThemeCharm())
		if err := confirm.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
			return fmt.Errorf("interactive setup: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	var (
		name     string
		email    string
		rootPath string
		language = config.DefaultLanguage
		resolved string
	)

	rootHint := "Existing project directory"
	if docker {
		rootHint = "Running in Docker: use an absolute container path (e.g. /workspace/project) and mount it with -v"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Your name").
				Value(&name).
				Validate(config.ValidateName),
			huh.NewInput().
				Title("Work email").
				Value(&email).
				Validate(config.ValidateEmail),
		).Title("Agent Owner"),

		huh.NewGroup(
			huh.NewInput().
				Title("Project root path").
				Description(rootHint).
				Value(&rootPath).
				Validate(func(s string) error {
					path, err := config.ResolveRootPath(s, docker)
					if err != nil {
						return err
					}
					resolved = path
					return nil
				}),
			huh.NewInput().
				Title("Programming language").
				Placeholder(config.DefaultLanguage).
				Value(&language),
		).Title("Project"),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		return fmt.Errorf("interactive setup: %w", err)
	}

	profile, err := mgr.Setup(strings.TrimSpace(name), strings.TrimSpace(email), resolved, strings.TrimSpace(language), "")
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	printSetupComplete(out, profile, mgr.Path)
	return nil
}

func profileSummary(p *config.Profile) string {
	return fmt.Sprintf(
		"Name:       %s\n"+
			"Email:      %s\n"+
			"Root path:  %s\n"+
			"Agent ID:   %s",
		p.UserName, p.UserEmail, p.RootPath, p.AgentID,
	)
}

func printSetupComplete(out io.Writer, p *config.Profile, path string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Setup Complete!"))
	fmt.Fprintln(out)
	printKV(out, "Name", p.UserName)
	printKV(out, "Email", p.UserEmail)
	printKV(out, "Root path", p.RootPath)
	printKV(out, "Language", p.Language)
	printKV(out, "Agent ID", p.AgentID)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to: %s\n", path)
}
