package handlers

import (
	"time"

	"masterfy/internal/portfolio"
)

type PositionView struct {
	AssetID           int64  `json:"asset_id"`
	Ticker            string `json:"ticker"`
	Name              string `json:"name"`
	AssetClass        string `json:"asset_class"`
	Sector            string `json:"sector"`
	NetQuantity       string `json:"net_quantity"`
	AverageUnitCost   string `json:"average_unit_cost"`
	CostBasis         string `json:"cost_basis"`
	CurrentValue      string `json:"current_value"`
	ProfitLoss        string `json:"profit_loss"`
	AllocationPercent string `json:"allocation_percent"`
	PriceUnavailable  bool   `json:"price_unavailable,omitempty"`
	RatesUnavailable  bool   `json:"rates_unavailable,omitempty"`
}

type ClassView struct {
	AssetClass        string `json:"asset_class"`
	Invested          string `json:"invested"`
	Current           string `json:"current"`
	AllocationPercent string `json:"allocation_percent"`
}

type IssueView struct {
	Code          string `json:"code"`
	AssetID       int64  `json:"asset_id,omitempty"`
	TransactionID int64  `json:"transaction_id,omitempty"`
	Message       string `json:"message"`
}

type PortfolioView struct {
	RunID                  string         `json:"run_id"`
	AsOf                   string         `json:"as_of"`
	TotalInvested          string         `json:"total_invested"`
	TotalCurrent           string         `json:"total_current"`
	TotalProfitLoss        string         `json:"total_profit_loss"`
	TotalProfitLossPercent string         `json:"total_profit_loss_percent"`
	Positions              []PositionView `json:"positions"`
	ByClass                []ClassView    `json:"by_class"`
	Issues                 []IssueView    `json:"issues"`
}

// NewPortfolioView renders money and percents with two decimals.
func NewPortfolioView(t portfolio.PortfolioTotals) PortfolioView {
	v := PortfolioView{
		RunID:                  t.RunID,
		AsOf:                   t.AsOf.Format(time.DateOnly),
		TotalInvested:          t.TotalInvested.StringFixed(2),
		TotalCurrent:           t.TotalCurrent.StringFixed(2),
		TotalProfitLoss:        t.TotalProfitLoss.StringFixed(2),
		TotalProfitLossPercent: t.TotalProfitLossPercent.StringFixed(2),
		Positions:              make([]PositionView, 0, len(t.Positions)),
		ByClass:                make([]ClassView, 0, len(t.ByClass)),
		Issues:                 make([]IssueView, 0, len(t.Issues)),
	}
	for _, p := range t.Positions {
		v.Positions = append(v.Positions, PositionView{
			AssetID:           p.AssetID,
			Ticker:            p.Ticker,
			Name:              p.Name,
			AssetClass:        string(p.Class),
			Sector:            p.Sector,
			NetQuantity:       p.NetQuantity.StringFixed(6),
			AverageUnitCost:   p.AverageUnitCost.StringFixed(2),
			CostBasis:         p.CostBasis.StringFixed(2),
			CurrentValue:      p.CurrentValue.StringFixed(2),
			ProfitLoss:        p.ProfitLoss.StringFixed(2),
			AllocationPercent: p.AllocationPercent.StringFixed(2),
			PriceUnavailable:  p.PriceUnavailable,
			RatesUnavailable:  p.RatesUnavailable,
		})
	}
	for _, c := range t.ByClass {
		v.ByClass = append(v.ByClass, ClassView{
			AssetClass:        string(c.Class),
			Invested:          c.Invested.StringFixed(2),
			Current:           c.Current.StringFixed(2),
			AllocationPercent: c.AllocationPercent.StringFixed(2),
		})
	}
	for _, is := range t.Issues {
		v.Issues = append(v.Issues, IssueView{
			Code:          string(is.Code),
			AssetID:       is.AssetID,
			TransactionID: is.TransactionID,
			Message:       is.Message,
		})
	}
	return v
}
