package database

import (
	"time"

	"masterfy/internal/models"
	"masterfy/internal/portfolio"

	"github.com/shopspring/decimal"
)

// ledgerRow is the scan target of the ledger query. Asset columns come from
// a LEFT JOIN and are NULL for transactions whose asset disappeared.
type ledgerRow struct {
	TransactionID       int64               `db:"transaction_id"`
	AssetID             int64               `db:"asset_id"`
	Ticker              *string             `db:"ticker"`
	Name                *string             `db:"name"`
	Class               *string             `db:"asset_class"`
	Sector              *string             `db:"sector"`
	BenchmarkMultiplier decimal.NullDecimal `db:"benchmark_multiplier"`
	Date                time.Time           `db:"date"`
	Side                string              `db:"side"`
	Quantity            decimal.Decimal     `db:"quantity"`
	UnitPrice           decimal.Decimal     `db:"unit_price"`
	Fees                decimal.Decimal     `db:"fees"`
}

func (r ledgerRow) toLedger() portfolio.LedgerRow {
	lr := portfolio.LedgerRow{
		TransactionID:       r.TransactionID,
		AssetID:             r.AssetID,
		AssetKnown:          r.Ticker != nil,
		BenchmarkMultiplier: r.BenchmarkMultiplier,
		Date:                r.Date,
		Side:                models.Side(r.Side),
		Quantity:            r.Quantity,
		UnitPrice:           r.UnitPrice,
		Fees:                r.Fees,
	}
	if r.Ticker != nil {
		lr.Ticker = *r.Ticker
	}
	if r.Name != nil {
		lr.Name = *r.Name
	}
	if r.Class != nil {
		lr.Class = models.AssetClass(*r.Class)
	}
	if r.Sector != nil {
		lr.Sector = *r.Sector
	}
	return lr
}

// Dump is a full copy of the stored data, used for backups.
type Dump struct {
	TakenAt      time.Time            `json:"taken_at"`
	Assets       []models.Asset       `json:"assets"`
	Transactions []models.Transaction `json:"transactions"`
	Prices       []models.PricePoint  `json:"prices"`
}
