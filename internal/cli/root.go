// Package cli is the scheduler command line: it opens booking editor
// sessions over a JSON event file, renders the form as text and saves.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/scheduler/internal/config"
	"github.com/matthewbaird/scheduler/internal/log"
)

type App struct {
	ConfigPath string
	LogLevel   string
	PrettyJSON bool

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "scheduler",
		Short:        "Booking editor for calendar events",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Book a slot on a resource
  scheduler book --start 2026-03-02T09:00 --end 2026-03-02T10:00 --resource room-1 --set name=Ann --line 42:1

  # Edit and confirm an existing booking
  scheduler book --event mabc123 --confirm

  # Show the form of a booking without saving
  scheduler show mabc123
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(app.ConfigPath)
		if err != nil {
			return err
		}
		app.cfg = cfg
		level := cfg.LogLevel
		if app.LogLevel != "" {
			level = app.LogLevel
		}
		log.SetLevel(log.ParseLevel(level))
		log.SetOutput(cmd.ErrOrStderr())
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("SCHEDULER_CONFIG", defaultConfigPath()), "Path to the YAML config file (created with defaults when missing)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("SCHEDULER_LOG_LEVEL", ""), "Log level (debug|info|error); overrides the config")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newBookCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newHistoryCmd(app))

	return cmd
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "scheduler.yaml"
	}
	return filepath.Join(dir, "scheduler", "config.yaml")
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
