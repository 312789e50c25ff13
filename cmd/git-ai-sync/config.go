package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mschirtzinger/git-ai-sync/internal/config"
	"github.com/mschirtzinger/git-ai-sync/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Show or change the configuration",
	Long: `Without flags, print the effective configuration (file, environment and
flags combined) as YAML. The API key is redacted.

With flags, update the config file and save it. The API key is never written
to disk; set ANTHROPIC_API_KEY in the environment instead.

Example usage:
  git-ai-sync config                          # Show effective settings
  git-ai-sync config --interval 60 --prefix wip
  git-ai-sync config --interactive            # Edit settings in a form`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().Int("interval", config.DefaultInterval, "seconds between watch ticks")
	configCmd.Flags().Int("quiet-period", 0, "seconds the tree must be unchanged before syncing (0: same as interval)")
	configCmd.Flags().String("model", config.DefaultModel, "Anthropic model used for conflict resolution")
	configCmd.Flags().String("prefix", config.DefaultCommitPrefix, "subject prefix of automatic commits")
	configCmd.Flags().BoolP("interactive", "i", false, "edit settings in an interactive form")

	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	flags := cmd.Flags()
	interactive, _ := flags.GetBool("interactive")

	edited := interactive
	for _, name := range []string{"interval", "quiet-period", "model", "prefix"} {
		if flags.Changed(name) {
			edited = true
		}
	}

	if !edited {
		data, err := cfg.YAML()
		if err != nil {
			return err
		}
		source := cfg.Source
		if source == "" {
			source = "(defaults, no config file)"
		}
		fmt.Fprintf(out, "%s %s\n\n", ui.RenderMuted("# source:"), ui.RenderMuted(source))
		out.Write(data)
		return nil
	}

	path := cfgFile
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	// Edit the file's own values so environment overrides are not persisted
	file, err := config.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		file = config.Default()
	} else if err != nil {
		return err
	}

	if flags.Changed("interval") {
		file.Interval, _ = flags.GetInt("interval")
	}
	if flags.Changed("quiet-period") {
		file.QuietPeriod, _ = flags.GetInt("quiet-period")
	}
	if flags.Changed("model") {
		file.Model, _ = flags.GetString("model")
	}
	if flags.Changed("prefix") {
		file.CommitPrefix, _ = flags.GetString("prefix")
	}

	if interactive {
		if err := editForm(file); err != nil {
			return err
		}
	}

	if err := config.Save(path, file); err != nil {
		return err
	}
	logger.Debug("config saved", "path", path)

	fmt.Fprintf(out, "%s Saved %s\n", ui.RenderPass("✓"), path)
	if !cfg.HasAPIKey() {
		fmt.Fprintln(out, ui.RenderWarn("Set ANTHROPIC_API_KEY to enable conflict resolution"))
	}
	return nil
}

// editForm lets the user change the persisted settings in place.
func editForm(c *config.Config) error {
	interval := strconv.Itoa(c.Interval)
	quiet := strconv.Itoa(c.QuietPeriod)
	prefix := c.CommitPrefix
	model := c.Model

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sync interval (seconds)").
				Value(&interval).
				Validate(positiveInt),
			huh.NewInput().
				Title("Quiet period (seconds)").
				Description("0 uses the sync interval").
				Value(&quiet).
				Validate(nonNegativeInt),
			huh.NewInput().
				Title("Commit prefix").
				Value(&prefix).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("prefix cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Model").
				Value(&model),
		),
	).Run()
	if err != nil {
		return err
	}

	c.Interval, _ = strconv.Atoi(strings.TrimSpace(interval))
	c.QuietPeriod, _ = strconv.Atoi(strings.TrimSpace(quiet))
	c.CommitPrefix = strings.TrimSpace(prefix)
	c.Model = strings.TrimSpace(model)
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("enter a whole number greater than zero")
	}
	return nil
}

func nonNegativeInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return errors.New("enter a whole number, zero or more")
	}
	return nil
}
