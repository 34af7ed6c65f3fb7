package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/scorecard/internal/collector"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <ticker>",
	Short: "Print the view-model built from SEC filings",
	Long: `Fetch a ticker's filings and latest quote and print the resulting
view-model JSON. The output can be edited and scored with "score --file".`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.log.Sync()

	ctx, stop := commandContext(cmd)
	defer stop()

	ticker := strings.ToUpper(strings.TrimSpace(args[0]))
	vm, err := c.filings.FetchViewModel(ctx, ticker)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", ticker, err)
	}

	if c.quotes != nil {
		q, err := c.quotes.FetchQuote(ctx, ticker)
		if err != nil {
			c.log.Warn("quote unavailable", zap.String("ticker", ticker), zap.Error(err))
		} else {
			collector.ApplyQuote(vm, q)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(vm)
}
