package portfolio

import (
	"fmt"
	"sort"

	"masterfy/internal/models"

	"github.com/shopspring/decimal"
)

type IssueCode string

const (
	IssueUnknownAsset     IssueCode = "UNKNOWN_ASSET"
	IssueUnknownSide      IssueCode = "UNKNOWN_SIDE"
	IssueNegativeQuantity IssueCode = "NEGATIVE_QUANTITY"
	IssueUnknownClass     IssueCode = "UNKNOWN_CLASS"
)

// Issue is a ledger inconsistency found while valuing. Issues never stop a
// run; they are reported next to the totals.
type Issue struct {
	Code          IssueCode
	AssetID       int64
	TransactionID int64
	Message       string
}

// Aggregate folds the joined ledger into one draft per asset. BUY adds to
// the net quantity and cost basis, SELL subtracts from both. Fixed income
// buys also record a lot; sells leave lots untouched. Assets whose net
// quantity ends at or below zero are dropped.
func Aggregate(rows []LedgerRow) (map[int64]*PositionDraft, []Issue) {
	drafts := map[int64]*PositionDraft{}
	var issues []Issue

	for _, r := range rows {
		if !r.AssetKnown {
			issues = append(issues, Issue{
				Code:          IssueUnknownAsset,
				AssetID:       r.AssetID,
				TransactionID: r.TransactionID,
				Message:       fmt.Sprintf("transaction %d references missing asset %d", r.TransactionID, r.AssetID),
			})
			continue
		}
		if r.Side != models.SideBuy && r.Side != models.SideSell {
			issues = append(issues, Issue{
				Code:          IssueUnknownSide,
				AssetID:       r.AssetID,
				TransactionID: r.TransactionID,
				Message:       fmt.Sprintf("transaction %d has side %q", r.TransactionID, r.Side),
			})
			continue
		}

		d, ok := drafts[r.AssetID]
		if !ok {
			d = &PositionDraft{
				AssetID:             r.AssetID,
				Ticker:              r.Ticker,
				Name:                r.Name,
				Class:               r.Class,
				Sector:              r.Sector,
				BenchmarkMultiplier: r.BenchmarkMultiplier,
				NetQuantity:         decimal.Zero,
				CostBasis:           decimal.Zero,
			}
			drafts[r.AssetID] = d
		}

		amount := r.Quantity.Mul(r.UnitPrice)
		switch r.Side {
		case models.SideBuy:
			d.NetQuantity = d.NetQuantity.Add(r.Quantity)
			d.CostBasis = d.CostBasis.Add(amount)
			if r.Class == models.ClassFixedIncomeFloating {
				d.Lots = append(d.Lots, Lot{Quantity: r.Quantity, UnitPrice: r.UnitPrice, PurchaseDate: dateOnly(r.Date)})
			}
		case models.SideSell:
			d.NetQuantity = d.NetQuantity.Sub(r.Quantity)
			d.CostBasis = d.CostBasis.Sub(amount)
		}
	}

	for id, d := range drafts {
		if d.NetQuantity.IsNegative() {
			issues = append(issues, Issue{
				Code:    IssueNegativeQuantity,
				AssetID: id,
				Message: fmt.Sprintf("%s sold %s more units than bought", d.Ticker, d.NetQuantity.Neg().String()),
			})
		}
		if !d.NetQuantity.IsPositive() {
			delete(drafts, id)
			continue
		}
		// lots are kept in purchase order so the draft does not depend on ledger order
		sort.SliceStable(d.Lots, func(i, j int) bool { return lotLess(d.Lots[i], d.Lots[j]) })
	}

	sortIssues(issues)
	return drafts, issues
}

func lotLess(a, b Lot) bool {
	if !a.PurchaseDate.Equal(b.PurchaseDate) {
		return a.PurchaseDate.Before(b.PurchaseDate)
	}
	if c := a.Quantity.Cmp(b.Quantity); c != 0 {
		return c < 0
	}
	return a.UnitPrice.LessThan(b.UnitPrice)
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.AssetID != b.AssetID {
			return a.AssetID < b.AssetID
		}
		return a.TransactionID < b.TransactionID
	})
}
