package portfolio

import (
	"sort"

	"masterfy/internal/models"

	"github.com/shopspring/decimal"
)

// classOrder fixes the order of the per class subtotals.
var classOrder = []models.AssetClass{
	models.ClassEquity,
	models.ClassFund,
	models.ClassFixedIncomeFloating,
	models.ClassOther,
}

// Summarize totals the valued positions, derives allocations and rounds
// every money and percent field to cents.
func Summarize(positions []ValuedPosition) PortfolioTotals {
	invested := decimal.Zero
	current := decimal.Zero
	for _, p := range positions {
		invested = invested.Add(p.CostBasis)
		current = current.Add(p.CurrentValue)
	}

	out := make([]ValuedPosition, 0, len(positions))
	for _, p := range positions {
		p.AllocationPercent = allocation(p.CurrentValue, current)
		p.AverageUnitCost = p.AverageUnitCost.Round(2)
		p.CostBasis = p.CostBasis.Round(2)
		p.CurrentValue = p.CurrentValue.Round(2)
		p.ProfitLoss = p.ProfitLoss.Round(2)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].AssetID < out[j].AssetID
	})

	pl := current.Sub(invested)
	plPct := decimal.Zero
	if invested.IsPositive() {
		plPct = pl.Div(invested).Mul(hundred).Round(2)
	}

	return PortfolioTotals{
		TotalInvested:          invested.Round(2),
		TotalCurrent:           current.Round(2),
		TotalProfitLoss:        pl.Round(2),
		TotalProfitLossPercent: plPct,
		Positions:              out,
		ByClass:                byClass(positions, current),
	}
}

func allocation(value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return value.Div(total).Mul(hundred).Round(2)
}

func byClass(positions []ValuedPosition, current decimal.Decimal) []ClassTotals {
	sums := map[models.AssetClass]*ClassTotals{}
	var extra []models.AssetClass
	for _, p := range positions {
		ct, ok := sums[p.Class]
		if !ok {
			ct = &ClassTotals{Class: p.Class, Invested: decimal.Zero, Current: decimal.Zero}
			sums[p.Class] = ct
			if !p.Class.Known() {
				extra = append(extra, p.Class)
			}
		}
		ct.Invested = ct.Invested.Add(p.CostBasis)
		ct.Current = ct.Current.Add(p.CurrentValue)
	}

	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	order := append(append([]models.AssetClass{}, classOrder...), extra...)

	var res []ClassTotals
	for _, c := range order {
		ct, ok := sums[c]
		if !ok {
			continue
		}
		res = append(res, ClassTotals{
			Class:             c,
			Invested:          ct.Invested.Round(2),
			Current:           ct.Current.Round(2),
			AllocationPercent: allocation(ct.Current, current),
		})
	}
	return res
}
