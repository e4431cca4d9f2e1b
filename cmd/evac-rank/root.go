package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-evac-priority/internal/logging"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "evac-rank",
		Short: "Rank registered families for evacuation",
		Long: `Rank a registry export of families against a disaster epicenter.

The export is a JSON or YAML file holding either a list of family records or
an object with "disaster" and "families" keys. --lng/--lat override the
disaster location from the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logLevel))
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(newRankCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "evac-rank", version)
		},
	}
}
