package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newthinker/scorecard/internal/normalize"
	"github.com/newthinker/scorecard/internal/scoring"
)

var (
	scoreFile    string
	scoreJSON    bool
	scoreVerbose bool
)

var scoreCmd = &cobra.Command{
	Use:   "score [ticker...]",
	Short: "Score one or more tickers",
	Long: `Fetch filings from SEC EDGAR and score each ticker. With --file, score a
view-model JSON document instead ("-" reads stdin).`,
	Example: `  scorecard score AAPL MSFT
  scorecard score --verbose NVDA
  scorecard score --file acme.json --json`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreFile, "file", "f", "", "score a view-model JSON file")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print full reports as JSON")
	scoreCmd.Flags().BoolVarP(&scoreVerbose, "verbose", "v", false, "show per-rule results")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	if scoreFile == "" && len(args) == 0 {
		return fmt.Errorf("give at least one ticker or --file")
	}

	c, err := setup()
	if err != nil {
		return err
	}
	defer c.log.Sync()

	ctx, stop := commandContext(cmd)
	defer stop()

	var reports []*scoring.Report
	var failed error

	if scoreFile != "" {
		vm, err := readViewModel(scoreFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		report, err := c.service.ScoreViewModel(ctx, *vm)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	}

	if len(args) > 0 {
		results := c.service.ScoreMany(ctx, args, progressPrinter(cmd.ErrOrStderr(), len(args) > 1))
		for _, r := range results {
			if r.Report != nil {
				reports = append(reports, r.Report)
			}
		}
		failed = scoring.Errors(results)
	}

	out := cmd.OutOrStdout()
	if scoreJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		printSummary(out, reports)
		if scoreVerbose {
			for _, r := range reports {
				printRules(out, r)
			}
		}
	}
	return failed
}

func readViewModel(path string, stdin io.Reader) (*normalize.ViewModel, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading view-model: %w", err)
	}

	var vm normalize.ViewModel
	if err := json.Unmarshal(data, &vm); err != nil {
		return nil, fmt.Errorf("parsing view-model: %w", err)
	}
	return &vm, nil
}

func progressPrinter(w io.Writer, enabled bool) func(done, total int) {
	if !enabled {
		return nil
	}
	return func(done, total int) {
		fmt.Fprintf(w, "\rscored %d/%d", done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}

func printSummary(w io.Writer, reports []*scoring.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tCOMPANY\tSECTOR\tSCORE\tTIER\tRULES\tBASIS")
	for _, r := range reports {
		card := r.Scorecard
		score := "-"
		if card.Score != nil {
			score = fmt.Sprintf("%.1f", *card.Score)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			r.Ticker,
			truncate(r.Stock.CompanyName, 28),
			r.Stock.SectorBucket,
			score,
			card.Tier,
			card.Applicable, len(card.Results),
			r.Stock.DataQuality.Basis,
		)
	}
	tw.Flush()
}

func printRules(w io.Writer, r *scoring.Report) {
	fmt.Fprintf(w, "\n%s: %s\n", r.Ticker, r.Scorecard)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tWEIGHT\tSCORE\tNOTE")
	for _, o := range r.Scorecard.Results {
		score := fmt.Sprintf("%+.0f", o.Score)
		switch {
		case o.NotApplicable:
			score = "n/a"
		case o.Missing:
			score = "missing"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", o.Rule, o.Weight, score, o.Message)
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// commandContext is cancelled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}
