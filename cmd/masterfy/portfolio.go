package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"masterfy/internal/portfolio"
	"masterfy/internal/service"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type portfolioCmd struct {
	refresh bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "display open positions with current value and profit/loss" }
func (*portfolioCmd) Usage() string {
	return `masterfy portfolio [-u]

  Values every open position and prints the portfolio totals.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.refresh, "u", false, "refresh market prices before valuing")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if c.refresh {
		r := service.NewPriceRefresher(a.repo, service.NewYahooQuotes(a.http, a.log), a.log)
		if _, err := r.RefreshAll(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error refreshing prices: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	assets, err := a.repo.ListAssets(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading assets: %v\n", err)
		return subcommands.ExitFailure
	}
	engine := portfolio.NewEngine(service.NewCDIRates(a.http, a.log), a.cfg.DefaultBenchmarkMultiplier, a.log)
	totals, err := engine.Valuate(ctx, a.repo, portfolio.SnapshotFromAssets(assets), time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error valuing portfolio: %v\n", err)
		return subcommands.ExitFailure
	}

	printPortfolio(os.Stdout, totals)
	return subcommands.ExitSuccess
}

func brl(d decimal.Decimal) string {
	return money.New(d.Shift(2).Round(0).IntPart(), money.BRL).Display()
}

func printPortfolio(out io.Writer, t portfolio.PortfolioTotals) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Ticker\tClass\tQuantity\tAvg cost\tInvested\tCurrent\tP/L\tAlloc %\t")
	for _, p := range t.Positions {
		note := ""
		if p.PriceUnavailable {
			note = " *"
		}
		if p.RatesUnavailable {
			note = " **"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.Ticker, note, p.Class, p.NetQuantity.String(), brl(p.AverageUnitCost), brl(p.CostBasis),
			brl(p.CurrentValue), brl(p.ProfitLoss), p.AllocationPercent.StringFixed(2))
	}
	fmt.Fprintf(w, "Total\t\t\t\t%s\t%s\t%s\t%s%%\t\n", brl(t.TotalInvested), brl(t.TotalCurrent), brl(t.TotalProfitLoss), t.TotalProfitLossPercent.StringFixed(2))
	w.Flush()

	fmt.Fprintln(out)
	for _, c := range t.ByClass {
		fmt.Fprintf(out, "%-22s %6s%%  %s\n", c.Class, c.AllocationPercent.StringFixed(2), brl(c.Current))
	}
	if len(t.Issues) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Ledger issues:")
		for _, is := range t.Issues {
			fmt.Fprintf(out, "  %s: %s\n", is.Code, is.Message)
		}
	}
	fmt.Fprintln(out, strings.TrimSpace(`
 * no market price, valued at cost
 ** benchmark rates unavailable, lots valued at principal`))
}
