package portfolio

import (
	"context"
	"fmt"
	"time"

	"masterfy/internal/models"

	"github.com/shopspring/decimal"
)

// Value prices one draft according to its asset class. The figures it
// returns are exact; rounding happens in Summarize.
func (e *Engine) Value(ctx context.Context, d *PositionDraft, prices PriceSource, today time.Time) (ValuedPosition, error) {
	vp := ValuedPosition{
		AssetID:     d.AssetID,
		Ticker:      d.Ticker,
		Name:        d.Name,
		Class:       d.Class,
		Sector:      d.Sector,
		NetQuantity: d.NetQuantity,
		CostBasis:   d.CostBasis,
	}
	if d.NetQuantity.IsPositive() {
		vp.AverageUnitCost = d.CostBasis.Div(d.NetQuantity)
	}

	switch d.Class {
	case models.ClassEquity, models.ClassFund, models.ClassOther:
		price, ok := prices.LatestPrice(d.Ticker)
		if ok && price.IsPositive() {
			vp.CurrentValue = d.NetQuantity.Mul(price)
		} else {
			vp.CurrentValue = d.CostBasis
			vp.PriceUnavailable = true
		}
	case models.ClassFixedIncomeFloating:
		current, degraded, err := e.accrueLots(ctx, d, today)
		if err != nil {
			return ValuedPosition{}, fmt.Errorf("accrue %s: %w", d.Ticker, err)
		}
		vp.CurrentValue = current
		vp.RatesUnavailable = degraded
	default:
		vp.CurrentValue = d.CostBasis
	}

	vp.ProfitLoss = vp.CurrentValue.Sub(vp.CostBasis)
	return vp, nil
}

func (e *Engine) accrueLots(ctx context.Context, d *PositionDraft, today time.Time) (decimal.Decimal, bool, error) {
	multiplier := e.defaultMultiplier
	if d.BenchmarkMultiplier.Valid {
		multiplier = d.BenchmarkMultiplier.Decimal
	}

	today = dateOnly(today)
	total := decimal.Zero
	degraded := false
	for _, lot := range d.Lots {
		var rates []DailyRate
		if !lot.PurchaseDate.After(today) {
			var err error
			rates, err = e.rates.DailyRates(ctx, lot.PurchaseDate, today)
			if err != nil {
				e.log.Warnf("benchmark rates unavailable for %s since %s: %v", d.Ticker, lot.PurchaseDate.Format("2006-01-02"), err)
				rates = nil
				degraded = true
			} else if len(rates) == 0 && businessDays(lot.PurchaseDate, today) > publishLag {
				degraded = true
			}
		}
		v, err := Accrue(lot.Principal(), multiplier, rates)
		if err != nil {
			return decimal.Zero, false, err
		}
		total = total.Add(v)
	}
	return total, degraded, nil
}

// publishLag is how many business days the benchmark may trail today
// before an empty series counts as missing data.
const publishLag = 1

// businessDays counts the weekdays in [from, to).
func businessDays(from, to time.Time) int {
	n := 0
	for d := dateOnly(from); d.Before(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}
