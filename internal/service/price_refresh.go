package service

import (
	"context"
	"time"

	"masterfy/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type AssetStore interface {
	ListAssets(ctx context.Context) ([]models.Asset, error)
	RecordPrice(ctx context.Context, assetID int64, price decimal.Decimal, at time.Time) error
}

type RefreshedPrice struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
}

type RefreshReport struct {
	Updated []RefreshedPrice `json:"updated"`
	Failed  []string         `json:"failed"`
	Skipped []string         `json:"skipped"`
}

// PriceRefresher copies market quotes onto the stored assets. Fixed income
// assets have no quote and are skipped.
type PriceRefresher struct {
	store  AssetStore
	quotes PriceProvider
	log    *logrus.Logger
	now    func() time.Time
}

func NewPriceRefresher(store AssetStore, quotes PriceProvider, log *logrus.Logger) *PriceRefresher {
	return &PriceRefresher{store: store, quotes: quotes, log: log, now: time.Now}
}

func (p *PriceRefresher) RefreshAll(ctx context.Context) (RefreshReport, error) {
	assets, err := p.store.ListAssets(ctx)
	if err != nil {
		return RefreshReport{}, err
	}

	rep := RefreshReport{Updated: []RefreshedPrice{}, Failed: []string{}, Skipped: []string{}}
	for _, a := range assets {
		if a.Class == models.ClassFixedIncomeFloating {
			rep.Skipped = append(rep.Skipped, a.Ticker)
			continue
		}
		price, ok := p.quotes.GetPrice(ctx, a.Ticker)
		if !ok {
			rep.Failed = append(rep.Failed, a.Ticker)
			continue
		}
		if err := p.store.RecordPrice(ctx, a.ID, price, p.now().UTC()); err != nil {
			p.log.Warnf("store price for %s: %v", a.Ticker, err)
			rep.Failed = append(rep.Failed, a.Ticker)
			continue
		}
		rep.Updated = append(rep.Updated, RefreshedPrice{Ticker: a.Ticker, Price: price})
	}
	p.log.Infof("price refresh: %d updated, %d failed, %d skipped", len(rep.Updated), len(rep.Failed), len(rep.Skipped))
	return rep, nil
}

func (p *PriceRefresher) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.log.Info("price updater stopping")
				return
			case <-ticker.C:
				if _, err := p.RefreshAll(ctx); err != nil {
					p.log.Warnf("price refresh failed: %v", err)
				}
			}
		}
	}()
}
