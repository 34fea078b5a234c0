package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"techblok-cli/internal/tui"
)

type App struct {
	BaseURL string
	Pretty  bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "techblok",
		Short:        "Tech-Blok admin dashboard (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive dashboard
  techblok

  # Scriptable commands
  techblok login --username alice
  techblok tasks list --search "Ленина"
  techblok users list --page 2
  techblok report download
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive dashboard.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.BaseURL, "api", envOr("TECHBLOK_API_BASE_URL", ""), "Backend base URL (overrides config)")
	cmd.PersistentFlags().BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newPasswdCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newReportCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(app *App) error {
	rt, err := app.bootstrap(true)
	if err != nil {
		return err
	}
	defer rt.close()
	return tui.Run(tui.Deps{
		Config:  rt.cfg,
		Session: rt.sess,
		Client:  rt.client,
		Logger:  rt.logger,
	})
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
