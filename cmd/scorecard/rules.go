package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the active scoring rules",
	RunE:  runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	engine, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tRULE\tWEIGHT\tDESCRIPTION")
	for i, r := range engine.Rules() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, r.Name(), r.Weight(), r.Description())
	}
	tw.Flush()

	fmt.Fprintln(out, "\nnormalization (aggregate ratio -> score):")
	for _, bp := range engine.Policy().Breakpoints {
		fmt.Fprintf(out, "  %+.2f -> %.0f\n", bp.Ratio, bp.Score)
	}
	return nil
}
