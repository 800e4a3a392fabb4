package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"masterfy/internal/portfolio"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const bcbBaseURL = "https://api.bcb.gov.br"

// cdiSeries is the SGS series of the daily CDI rate, published in percent per day.
const cdiSeries = 12

const bcbDateLayout = "02/01/2006"

// bcbMaxYears is the longest range SGS accepts for a daily series.
const bcbMaxYears = 10

type bcbPoint struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

// CDIRates fetches the daily CDI from the Banco Central SGS API. Answers
// are kept for the rest of the day they were fetched on.
type CDIRates struct {
	client  *http.Client
	baseURL string
	log     *logrus.Logger
	now     func() time.Time

	mu    sync.Mutex
	day   string
	cache map[string][]portfolio.DailyRate
}

func NewCDIRates(client *http.Client, log *logrus.Logger) *CDIRates {
	return &CDIRates{client: client, baseURL: bcbBaseURL, log: log, now: time.Now}
}

var _ portfolio.RateSource = (*CDIRates)(nil)

func (c *CDIRates) DailyRates(ctx context.Context, from, to time.Time) ([]portfolio.DailyRate, error) {
	if from.After(to) {
		return nil, nil
	}
	key := from.Format("2006-01-02") + "|" + to.Format("2006-01-02")
	if rates, ok := c.cached(key); ok {
		return rates, nil
	}

	rates := []portfolio.DailyRate{}
	for start := from; !start.After(to); {
		end := start.AddDate(bcbMaxYears, 0, -1)
		if end.After(to) {
			end = to
		}
		part, err := c.fetch(ctx, start, end)
		if err != nil {
			return nil, err
		}
		rates = append(rates, part...)
		start = end.AddDate(0, 0, 1)
	}
	sort.SliceStable(rates, func(i, j int) bool { return rates[i].Date.Before(rates[j].Date) })
	c.store(key, rates)
	return rates, nil
}

func (c *CDIRates) cached(key string) ([]portfolio.DailyRate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.day != c.now().Format("2006-01-02") {
		return nil, false
	}
	r, ok := c.cache[key]
	return r, ok
}

func (c *CDIRates) store(key string, rates []portfolio.DailyRate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	today := c.now().Format("2006-01-02")
	if c.day != today || c.cache == nil {
		c.day = today
		c.cache = map[string][]portfolio.DailyRate{}
	}
	c.cache[key] = rates
}

func (c *CDIRates) fetch(ctx context.Context, from, to time.Time) ([]portfolio.DailyRate, error) {
	params := url.Values{
		"formato":     {"json"},
		"dataInicial": {from.Format(bcbDateLayout)},
		"dataFinal":   {to.Format(bcbDateLayout)},
	}
	addr := fmt.Sprintf("%s/dados/serie/bcdata.sgs.%d/dados?%s", c.baseURL, cdiSeries, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bcb request: %w", err)
	}
	defer resp.Body.Close()
	// SGS answers 404 when the range holds no business day
	if resp.StatusCode == http.StatusNotFound {
		return []portfolio.DailyRate{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bcb answered %s", resp.Status)
	}

	var points []bcbPoint
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, fmt.Errorf("decode cdi series: %w", err)
	}

	rates := make([]portfolio.DailyRate, 0, len(points))
	for _, p := range points {
		d, err := time.Parse(bcbDateLayout, p.Data)
		if err != nil {
			return nil, fmt.Errorf("cdi date %q: %w", p.Data, err)
		}
		v, err := decimal.NewFromString(p.Valor)
		if err != nil {
			return nil, fmt.Errorf("cdi value %q: %w", p.Valor, err)
		}
		rates = append(rates, portfolio.DailyRate{Date: d, RatePercent: v})
	}
	sort.SliceStable(rates, func(i, j int) bool { return rates[i].Date.Before(rates[j].Date) })
	c.log.Debugf("fetched %d cdi rates between %s and %s", len(rates), from.Format("2006-01-02"), to.Format("2006-01-02"))
	return rates, nil
}
