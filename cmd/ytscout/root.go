package main

import (
	"github.com/spf13/cobra"
)

var cfgPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ytscout",
	Short: "ytscout - scheduled YouTube metadata scraper",
	Long: `ytscout fetches video, channel, playlist and search metadata from
YouTube on recurring schedules. Jobs live in a local database and are
managed with the jobs subcommands; the start command runs the scheduler.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (.yaml or .toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(jobsCmd)
}
