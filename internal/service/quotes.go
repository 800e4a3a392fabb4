package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PriceProvider looks up the latest closing price of a ticker. ok is false
// whenever no usable price could be obtained.
type PriceProvider interface {
	GetPrice(ctx context.Context, ticker string) (price decimal.Decimal, ok bool)
}

const yahooBaseURL = "https://query1.finance.yahoo.com"

// price fields tried in order on the chart payload
var yahooPricePaths = []string{
	"$.chart.result[0].meta.regularMarketPrice",
	"$.chart.result[0].meta.chartPreviousClose",
}

// YahooQuotes reads B3 quotes from the Yahoo Finance chart endpoint.
type YahooQuotes struct {
	client  *http.Client
	baseURL string
	log     *logrus.Logger
}

func NewYahooQuotes(client *http.Client, log *logrus.Logger) *YahooQuotes {
	return &YahooQuotes{client: client, baseURL: yahooBaseURL, log: log}
}

// yahooSymbol maps a B3 ticker to Yahoo's symbol, PETR4 -> PETR4.SA.
func yahooSymbol(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if strings.Contains(t, ".") {
		return t
	}
	return t + ".SA"
}

func (q *YahooQuotes) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, bool) {
	p, err := q.fetch(ctx, yahooSymbol(ticker))
	if err != nil {
		q.log.Warnf("price lookup for %s failed: %v", ticker, err)
		return decimal.Zero, false
	}
	if !p.IsPositive() {
		q.log.Warnf("price lookup for %s returned %s", ticker, p.String())
		return decimal.Zero, false
	}
	return p, true
}

func (q *YahooQuotes) fetch(ctx context.Context, symbol string) (decimal.Decimal, error) {
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", q.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (masterfy)")
	req.Header.Set("Accept", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("yahoo answered %s", resp.Status)
	}

	var jobj any
	if err := json.NewDecoder(resp.Body).Decode(&jobj); err != nil {
		return decimal.Zero, fmt.Errorf("decode chart: %w", err)
	}

	for _, path := range yahooPricePaths {
		jval, err := jsonpath.Get(path, jobj)
		if err != nil {
			continue
		}
		if v, ok := jval.(float64); ok {
			return decimal.NewFromFloat(v).Round(2), nil
		}
	}
	return decimal.Zero, fmt.Errorf("no price in chart for %s", symbol)
}
