package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/git-ai-sync/internal/config"
	"github.com/mschirtzinger/git-ai-sync/internal/logging"
	"github.com/mschirtzinger/git-ai-sync/internal/ui"
)

var (
	// Set by the release build
	version = "dev"
	commit  = "none"

	// Global flags
	cfgFile string
	noColor bool

	// Populated by setup before any command runs
	cfg      *config.Config
	logger   = logging.Discard()
	closeLog = func() error { return nil }
)

func main() {
	err := rootCmd.Execute()
	_ = closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "git-ai-sync",
	Short: "Keep a git working copy in sync with its remote",
	Long: `git-ai-sync keeps a working copy of a git repository continuously in sync
with its remote. Local edits are committed automatically, upstream changes are
pulled with rebase, and the result is pushed.

When a rebase or merge stops on conflicts, the conflicted files are sent to an
AI model (Anthropic) which returns complete resolved contents. Resolutions are
applied all-or-nothing; if the model cannot resolve every file the operation
is aborted and the branch is left exactly as it was.

Intended for single-user note and document repositories edited from several
machines.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/git-ai-sync/config.toml)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "log format (text, json)")
	rootCmd.PersistentFlags().String("log-file", "", "also write JSON logs to this file, rotated")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Syncing:"},
		&cobra.Group{ID: "setup", Title: "Setup and inspection:"},
	)
}

// setup loads the configuration and builds the logger. Flags of the running
// command that share a name with a config key override it.
func setup(cmd *cobra.Command, args []string) error {
	if noColor || !ui.ColorEnabled() {
		ui.DisableColor()
	}

	c, err := config.Load(config.Options{Path: cfgFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}

	l, closer, err := logging.New(logging.Options{
		Level:   c.LogLevel,
		Format:  c.LogFormat,
		File:    c.LogFile,
		NoColor: noColor,
	})
	if err != nil {
		return err
	}

	cfg, logger, closeLog = c, l, closer
	slog.SetDefault(logger)
	logger.Debug("configuration loaded", "source", c.Source, "interval", c.Interval, "model", c.Model)
	return nil
}
