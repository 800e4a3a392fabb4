package portfolio

import (
	"context"
	"strings"
	"time"

	"masterfy/internal/models"

	"github.com/shopspring/decimal"
)

// LedgerRow is one transaction joined with the metadata of its asset.
// AssetKnown is false when the transaction points at an asset that no
// longer exists; the metadata fields are empty in that case.
type LedgerRow struct {
	TransactionID       int64
	AssetID             int64
	AssetKnown          bool
	Ticker              string
	Name                string
	Class               models.AssetClass
	Sector              string
	BenchmarkMultiplier decimal.NullDecimal
	Date                time.Time
	Side                models.Side
	Quantity            decimal.Decimal
	UnitPrice           decimal.Decimal
	Fees                decimal.Decimal
}

// Lot is a single fixed income purchase, compounded from its own date.
type Lot struct {
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	PurchaseDate time.Time
}

func (l Lot) Principal() decimal.Decimal { return l.Quantity.Mul(l.UnitPrice) }

type PositionDraft struct {
	AssetID             int64
	Ticker              string
	Name                string
	Class               models.AssetClass
	Sector              string
	BenchmarkMultiplier decimal.NullDecimal
	NetQuantity         decimal.Decimal
	CostBasis           decimal.Decimal
	Lots                []Lot
}

type DailyRate struct {
	Date        time.Time
	RatePercent decimal.Decimal
}

type ValuedPosition struct {
	AssetID           int64
	Ticker            string
	Name              string
	Class             models.AssetClass
	Sector            string
	NetQuantity       decimal.Decimal
	AverageUnitCost   decimal.Decimal
	CostBasis         decimal.Decimal
	CurrentValue      decimal.Decimal
	ProfitLoss        decimal.Decimal
	AllocationPercent decimal.Decimal
	PriceUnavailable  bool
	RatesUnavailable  bool
}

type ClassTotals struct {
	Class             models.AssetClass
	Invested          decimal.Decimal
	Current           decimal.Decimal
	AllocationPercent decimal.Decimal
}

type PortfolioTotals struct {
	RunID                  string
	AsOf                   time.Time
	TotalInvested          decimal.Decimal
	TotalCurrent           decimal.Decimal
	TotalProfitLoss        decimal.Decimal
	TotalProfitLossPercent decimal.Decimal
	Positions              []ValuedPosition
	ByClass                []ClassTotals
	Issues                 []Issue
}

type LedgerReader interface {
	FetchJoinedLedger(ctx context.Context) ([]LedgerRow, error)
}

// PriceSource answers the latest known price of a ticker. ok is false when
// no usable price exists.
type PriceSource interface {
	LatestPrice(ticker string) (price decimal.Decimal, ok bool)
}

// RateSource returns the daily benchmark rates published in [from, to],
// ascending by date.
type RateSource interface {
	DailyRates(ctx context.Context, from, to time.Time) ([]DailyRate, error)
}

// PriceSnapshot is a frozen ticker -> price table for a single valuation run.
type PriceSnapshot map[string]decimal.Decimal

func (s PriceSnapshot) LatestPrice(ticker string) (decimal.Decimal, bool) {
	p, ok := s[strings.ToUpper(ticker)]
	if !ok || !p.IsPositive() {
		return decimal.Zero, false
	}
	return p, true
}

// SnapshotFromAssets builds a snapshot out of the last prices stored on the assets.
func SnapshotFromAssets(assets []models.Asset) PriceSnapshot {
	s := PriceSnapshot{}
	for _, a := range assets {
		if a.LastKnownPrice.Valid {
			s[strings.ToUpper(a.Ticker)] = a.LastKnownPrice.Decimal
		}
	}
	return s
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
