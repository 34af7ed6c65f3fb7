package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "scorecard",
	Short: "scorecard - fundamental quality scoring for listed companies",
	Long: `scorecard turns SEC filings into a 0-100 quality score.
It normalizes quarterly or annual fundamentals, guards share counts against
stock splits, and evaluates a weighted set of heuristic rules.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
