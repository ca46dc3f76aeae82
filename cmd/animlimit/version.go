package main

import (
	"github.com/spf13/cobra"

	"github.com/pboyd/animlimit/plugin"
)

var (
	version = plugin.Version
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printInfo("animlimit %s\n", version)
		printInfo("  plugin: %s\n", plugin.Name)
		printInfo("  commit: %s\n", commit)
		printInfo("  built: %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
