package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AssetClass string

const (
	ClassEquity              AssetClass = "EQUITY"
	ClassFund                AssetClass = "FUND"
	ClassFixedIncomeFloating AssetClass = "FIXED_INCOME_FLOATING"
	ClassOther               AssetClass = "OTHER"
)

func (c AssetClass) Known() bool {
	switch c {
	case ClassEquity, ClassFund, ClassFixedIncomeFloating, ClassOther:
		return true
	}
	return false
}

// ParseAssetClass normalizes a user supplied class. The B3 flavoured aliases
// (ACAO, FII, CDB...) are what the first version of the API accepted.
func ParseAssetClass(s string) (AssetClass, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EQUITY", "ACAO", "STOCK":
		return ClassEquity, true
	case "FUND", "FII", "ETF":
		return ClassFund, true
	case "FIXED_INCOME_FLOATING", "CDB", "RENDA_FIXA", "POS_FIXADO":
		return ClassFixedIncomeFloating, true
	case "OTHER":
		return ClassOther, true
	}
	return "", false
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "COMPRA":
		return SideBuy, true
	case "SELL", "VENDA":
		return SideSell, true
	}
	return "", false
}

const DefaultSector = "Other"

type Asset struct {
	ID                  int64               `db:"id" json:"id"`
	Ticker              string              `db:"ticker" json:"ticker"`
	Name                string              `db:"name" json:"name"`
	Class               AssetClass          `db:"asset_class" json:"asset_class"`
	Sector              string              `db:"sector" json:"sector"`
	Indexer             *string             `db:"indexer" json:"indexer,omitempty"`
	BenchmarkMultiplier decimal.NullDecimal `db:"benchmark_multiplier" json:"benchmark_multiplier"`
	LastKnownPrice      decimal.NullDecimal `db:"last_known_price" json:"last_known_price"`
	LastPriceAt         *time.Time          `db:"last_price_at" json:"last_price_at,omitempty"`
}

type Transaction struct {
	ID        int64           `db:"id" json:"id"`
	AssetID   int64           `db:"asset_id" json:"asset_id"`
	Date      time.Time       `db:"date" json:"date"`
	Side      Side            `db:"side" json:"side"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Fees      decimal.Decimal `db:"fees" json:"fees"`
}

type PricePoint struct {
	AssetID int64           `db:"asset_id" json:"asset_id"`
	Date    time.Time       `db:"date" json:"date"`
	Price   decimal.Decimal `db:"price" json:"price"`
}
