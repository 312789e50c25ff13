package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/git-ai-sync/internal/ui"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: "setup",
	Short:   "Print version information",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "git-ai-sync %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  go:     %s\n", runtime.Version())

		v, err := vcs.GitVersion(cmd.Context())
		switch {
		case err != nil:
			fmt.Fprintf(out, "  git:    %s\n", ui.RenderFail(err.Error()))
		case vcs.CheckGitVersion(v) != nil:
			fmt.Fprintf(out, "  git:    %s %s\n", v, ui.RenderWarn("(need "+vcs.MinGitVersion+" or newer)"))
		default:
			fmt.Fprintf(out, "  git:    %s\n", v)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
