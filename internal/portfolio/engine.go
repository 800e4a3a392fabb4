// Package portfolio turns the transaction ledger into valued positions.
//
// Fees are stored with every transaction but are not part of the cost
// basis nor of the profit/loss: cost basis is the plain sum of
// quantity*unitPrice over buys minus sells.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Engine struct {
	rates             RateSource
	defaultMultiplier decimal.Decimal
	log               *logrus.Logger
}

// NewEngine builds an engine. defaultMultiplier applies to fixed income
// assets without a contracted benchmark percentage.
func NewEngine(rates RateSource, defaultMultiplier decimal.Decimal, log *logrus.Logger) *Engine {
	return &Engine{rates: rates, defaultMultiplier: defaultMultiplier, log: log}
}

// Valuate reads the ledger once and values every open position against the
// given price snapshot. Unavailable quotes or rates degrade the affected
// positions; only invariant violations are returned as errors.
func (e *Engine) Valuate(ctx context.Context, ledger LedgerReader, prices PriceSource, today time.Time) (PortfolioTotals, error) {
	runID := uuid.NewString()
	log := e.log.WithField("run_id", runID)

	rows, err := ledger.FetchJoinedLedger(ctx)
	if err != nil {
		return PortfolioTotals{}, fmt.Errorf("fetch ledger: %w", err)
	}

	drafts, issues := Aggregate(rows)

	ids := make([]int64, 0, len(drafts))
	for id := range drafts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	valued := make([]ValuedPosition, 0, len(ids))
	for _, id := range ids {
		d := drafts[id]
		vp, err := e.Value(ctx, d, prices, today)
		if err != nil {
			log.Errorf("valuation of %s failed: %v", d.Ticker, err)
			return PortfolioTotals{}, err
		}
		if !d.Class.Known() {
			issues = append(issues, Issue{
				Code:    IssueUnknownClass,
				AssetID: d.AssetID,
				Message: fmt.Sprintf("%s has unknown class %q, valued at cost", d.Ticker, d.Class),
			})
		}
		if vp.PriceUnavailable {
			log.Warnf("no price for %s, valued at cost basis", d.Ticker)
		}
		if vp.RatesUnavailable {
			log.Warnf("benchmark rates missing for %s, lots valued at principal", d.Ticker)
		}
		valued = append(valued, vp)
	}

	sortIssues(issues)
	for _, is := range issues {
		log.Warnf("ledger inconsistency %s: %s", is.Code, is.Message)
	}

	totals := Summarize(valued)
	totals.RunID = runID
	totals.AsOf = today
	totals.Issues = issues
	log.Debugf("valued %d positions, invested %s current %s", len(totals.Positions), totals.TotalInvested.StringFixed(2), totals.TotalCurrent.StringFixed(2))
	return totals, nil
}
