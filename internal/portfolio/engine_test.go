package portfolio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"masterfy/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) DailyRates(ctx context.Context, from, to time.Time) ([]DailyRate, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]DailyRate), args.Error(1)
}

type staticLedger struct {
	rows []LedgerRow
	err  error
}

func (s staticLedger) FetchJoinedLedger(ctx context.Context) ([]LedgerRow, error) {
	return s.rows, s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var today = day("2024-07-01")

func TestValuate_SingleEquityPosition(t *testing.T) {
	rs := new(MockRateSource)
	e := NewEngine(rs, decimal.NewFromInt(1), quietLogger())
	ledger := staticLedger{rows: []LedgerRow{
		row(1, 1, "ABC1", models.ClassEquity, "2024-01-10", models.SideBuy, "100", "10.00"),
	}}

	totals, err := e.Valuate(context.Background(), ledger, PriceSnapshot{"ABC1": d("12.50")}, today)
	require.NoError(t, err)
	require.Len(t, totals.Positions, 1)

	p := totals.Positions[0]
	assert.Equal(t, "1000.00", p.CostBasis.StringFixed(2))
	assert.Equal(t, "1250.00", p.CurrentValue.StringFixed(2))
	assert.Equal(t, "250.00", p.ProfitLoss.StringFixed(2))
	assert.Equal(t, "100.00", p.AllocationPercent.StringFixed(2))
	assert.Equal(t, "10.00", p.AverageUnitCost.StringFixed(2))
	assert.False(t, p.PriceUnavailable)
	assert.Equal(t, "250.00", totals.TotalProfitLoss.StringFixed(2))
	assert.Equal(t, "25.00", totals.TotalProfitLossPercent.StringFixed(2))
	assert.NotEmpty(t, totals.RunID)
	rs.AssertNotCalled(t, "DailyRates", mock.Anything, mock.Anything, mock.Anything)
}

func TestValuate_MissingPriceFallsBackToCostBasis(t *testing.T) {
	e := NewEngine(new(MockRateSource), decimal.NewFromInt(1), quietLogger())
	ledger := staticLedger{rows: []LedgerRow{
		row(1, 1, "XPTO3", models.ClassEquity, "2024-01-10", models.SideBuy, "3", "33.333"),
		row(2, 2, "ZERO11", models.ClassFund, "2024-01-10", models.SideBuy, "10", "9.87"),
	}}

	totals, err := e.Valuate(context.Background(), ledger, PriceSnapshot{"ZERO11": decimal.Zero}, today)
	require.NoError(t, err)
	require.Len(t, totals.Positions, 2)
	for _, p := range totals.Positions {
		assert.True(t, p.CurrentValue.Equal(p.CostBasis), "%s: %s != %s", p.Ticker, p.CurrentValue, p.CostBasis)
		assert.True(t, p.ProfitLoss.IsZero())
		assert.True(t, p.PriceUnavailable)
	}
	assert.True(t, totals.TotalProfitLoss.IsZero())
}

func TestValuate_FixedIncomeCompoundsEachLot(t *testing.T) {
	rs := new(MockRateSource)
	rs.On("DailyRates", mock.Anything, day("2024-06-27"), today).Return(rates("0.04", "0.04"), nil)
	rs.On("DailyRates", mock.Anything, day("2024-06-28"), today).Return(rates("0.04"), nil)

	e := NewEngine(rs, decimal.NewFromInt(1), quietLogger())
	multiplier := decimal.NewNullDecimal(d("1.10"))
	first := row(1, 3, "CDB-XP", models.ClassFixedIncomeFloating, "2024-06-27", models.SideBuy, "1", "1000")
	second := row(2, 3, "CDB-XP", models.ClassFixedIncomeFloating, "2024-06-28", models.SideBuy, "1", "1000")
	first.BenchmarkMultiplier, second.BenchmarkMultiplier = multiplier, multiplier

	totals, err := e.Valuate(context.Background(), staticLedger{rows: []LedgerRow{second, first}}, PriceSnapshot{}, today)
	require.NoError(t, err)
	require.Len(t, totals.Positions, 1)

	// 1000.88 + 1000.44, never a single compounding of the whole quantity
	p := totals.Positions[0]
	assert.Equal(t, "2001.32", p.CurrentValue.StringFixed(2))
	assert.Equal(t, "1.32", p.ProfitLoss.StringFixed(2))
	assert.False(t, p.RatesUnavailable)
	rs.AssertExpectations(t)
}

func TestValuate_FixedIncomeUsesDefaultMultiplier(t *testing.T) {
	rs := new(MockRateSource)
	rs.On("DailyRates", mock.Anything, day("2024-06-27"), today).Return(rates("0.04", "0.04"), nil)

	e := NewEngine(rs, decimal.NewFromInt(1), quietLogger())
	ledger := staticLedger{rows: []LedgerRow{
		row(1, 3, "LCI", models.ClassFixedIncomeFloating, "2024-06-27", models.SideBuy, "1", "1000"),
	}}

	totals, err := e.Valuate(context.Background(), ledger, PriceSnapshot{}, today)
	require.NoError(t, err)
	// 1000 * 1.0004^2
	assert.Equal(t, "1000.80", totals.Positions[0].CurrentValue.StringFixed(2))
}

func TestValuate_RateOutageKeepsPrincipal(t *testing.T) {
	rs := new(MockRateSource)
	rs.On("DailyRates", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("bcb down"))

	e := NewEngine(rs, decimal.NewFromInt(1), quietLogger())
	ledger := staticLedger{rows: []LedgerRow{
		row(1, 3, "CDB", models.ClassFixedIncomeFloating, "2024-01-02", models.SideBuy, "2", "500"),
	}}

	totals, err := e.Valuate(context.Background(), ledger, PriceSnapshot{}, today)
	require.NoError(t, err)
	p := totals.Positions[0]
	assert.Equal(t, "1000.00", p.CurrentValue.StringFixed(2))
	assert.True(t, p.RatesUnavailable)
}

func TestValuate_FuturePurchaseSkipsRateLookup(t *testing.T) {
	rs := new(MockRateSource)
	e := NewEngine(rs, decimal.NewFromInt(1), quietLogger())
	ledger := staticLedger{rows: []LedgerRow{
		row(1, 3, "CDB", models.ClassFixedIncomeFloating, "2024-08-01", models.SideBuy, "1", "700"),
	}}

	totals, err := e.Valuate(context.Background(), ledger, PriceSnapshot{}, today)
	require.NoError(t, err)
	assert.Equal(t, "700.00", totals.Positions[0].CurrentValue.StringFixed(2))
	rs.AssertNotCalled(t, "DailyRates", mock.Anything, mock.Anything, mock.Anything)
}

func TestValuate_NegativePrincipalFailsLoudly(t *testing.T) {
	rs := new(MockRateSource)
	rs.On("DailyRates", mock.Anything, mock.Anything, mock.Anything).Return(rates("0.04"), nil)
	e := NewEngine(rs, decimal.NewFromInt(1), quietLogger())
	ledger := staticLedger{rows: []LedgerRow{
		row(1, 3, "CDB", models.ClassFixedIncomeFloating, "2024-01-02", models.SideBuy, "1", "-10"),
		row(2, 3, "CDB", models.ClassFixedIncomeFloating, "2024-01-03", models.SideBuy, "1", "100"),
	}}

	_, err := e.Valuate(context.Background(), ledger, PriceSnapshot{}, today)
	assert.ErrorIs(t, err, ErrNegativePrincipal)
}

func TestValuate_LedgerErrorPropagates(t *testing.T) {
	e := NewEngine(new(MockRateSource), decimal.NewFromInt(1), quietLogger())
	_, err := e.Valuate(context.Background(), staticLedger{err: errors.New("db gone")}, PriceSnapshot{}, today)
	assert.Error(t, err)
}

func TestValuate_UnknownClassValuedAtCost(t *testing.T) {
	e := NewEngine(new(MockRateSource), decimal.NewFromInt(1), quietLogger())
	ledger := staticLedger{rows: []LedgerRow{
		row(1, 8, "GOLD", models.AssetClass("COMMODITY"), "2024-01-02", models.SideBuy, "2", "300"),
	}}

	totals, err := e.Valuate(context.Background(), ledger, PriceSnapshot{"GOLD": d("999")}, today)
	require.NoError(t, err)
	assert.Equal(t, "600.00", totals.Positions[0].CurrentValue.StringFixed(2))
	require.Len(t, totals.Issues, 1)
	assert.Equal(t, IssueUnknownClass, totals.Issues[0].Code)
	require.Len(t, totals.ByClass, 1)
	assert.Equal(t, models.AssetClass("COMMODITY"), totals.ByClass[0].Class)
}

func TestValuate_MixedPortfolio(t *testing.T) {
	rs := new(MockRateSource)
	rs.On("DailyRates", mock.Anything, mock.Anything, today).Return(rates("0.04", "0.04"), nil)
	e := NewEngine(rs, decimal.NewFromInt(1), quietLogger())

	prices := PriceSnapshot{"PETR4": d("38.10"), "KNCR11": d("101.20")}
	totals, err := e.Valuate(context.Background(), staticLedger{rows: sampleLedger()}, prices, today)
	require.NoError(t, err)

	tickers := []string{}
	for _, p := range totals.Positions {
		tickers = append(tickers, p.Ticker)
	}
	assert.Equal(t, []string{"CDB-XP", "KNCR11", "PETR4"}, tickers)

	sum := decimal.Zero
	for _, p := range totals.Positions {
		sum = sum.Add(p.AllocationPercent)
	}
	assert.True(t, sum.Sub(d("100")).Abs().LessThanOrEqual(d("0.1")), "allocations sum to %s", sum)
	require.Len(t, totals.ByClass, 3)
	assert.Equal(t, models.ClassEquity, totals.ByClass[0].Class)
}

func TestValuate_EmptySeriesWithinPublishLagIsNotDegraded(t *testing.T) {
	rs := new(MockRateSource)
	rs.On("DailyRates", mock.Anything, mock.Anything, today).Return([]DailyRate{}, nil)
	e := NewEngine(rs, decimal.NewFromInt(1), quietLogger())

	// Saturday and Friday purchases valued on Monday: no published rate is due yet
	for _, date := range []string{"2024-06-29", "2024-06-28"} {
		ledger := staticLedger{rows: []LedgerRow{
			row(1, 3, "CDB", models.ClassFixedIncomeFloating, date, models.SideBuy, "1", "500"),
		}}
		totals, err := e.Valuate(context.Background(), ledger, PriceSnapshot{}, today)
		require.NoError(t, err)
		p := totals.Positions[0]
		assert.Equal(t, "500.00", p.CurrentValue.StringFixed(2), date)
		assert.False(t, p.RatesUnavailable, date)
	}

	ledger := staticLedger{rows: []LedgerRow{
		row(1, 3, "CDB", models.ClassFixedIncomeFloating, "2024-06-27", models.SideBuy, "1", "500"),
	}}
	totals, err := e.Valuate(context.Background(), ledger, PriceSnapshot{}, today)
	require.NoError(t, err)
	assert.True(t, totals.Positions[0].RatesUnavailable)
}

func TestBusinessDays(t *testing.T) {
	assert.Equal(t, 0, businessDays(day("2024-06-29"), today))
	assert.Equal(t, 1, businessDays(day("2024-06-28"), today))
	assert.Equal(t, 2, businessDays(day("2024-06-27"), today))
	assert.Equal(t, 0, businessDays(today, today))
}

func TestValuate_NonPositiveTotalZeroesAllocations(t *testing.T) {
	e := NewEngine(new(MockRateSource), decimal.NewFromInt(1), quietLogger())
	ledger := staticLedger{rows: []LedgerRow{
		row(1, 1, "FREE3", models.ClassEquity, "2024-01-10", models.SideBuy, "10", "0"),
		row(2, 2, "GAIN3", models.ClassEquity, "2024-01-10", models.SideBuy, "10", "10"),
		row(3, 2, "GAIN3", models.ClassEquity, "2024-03-10", models.SideSell, "5", "30"),
	}}

	totals, err := e.Valuate(context.Background(), ledger, PriceSnapshot{}, today)
	require.NoError(t, err)
	assert.Equal(t, "-50.00", totals.TotalCurrent.StringFixed(2))
	assert.Equal(t, "-50.00", totals.TotalInvested.StringFixed(2))
	assert.True(t, totals.TotalProfitLossPercent.IsZero())

	require.Len(t, totals.Positions, 2)
	assert.Equal(t, "0.00", totals.Positions[0].CurrentValue.StringFixed(2))
	assert.Equal(t, "-50.00", totals.Positions[1].CurrentValue.StringFixed(2))
	for _, p := range totals.Positions {
		assert.True(t, p.AllocationPercent.IsZero(), p.Ticker)
	}
	for _, c := range totals.ByClass {
		assert.True(t, c.AllocationPercent.IsZero(), string(c.Class))
	}
}

func TestSummarize_ZeroTotal(t *testing.T) {
	totals := Summarize([]ValuedPosition{
		{AssetID: 1, Ticker: "FREE3", Class: models.ClassEquity, CostBasis: decimal.Zero, CurrentValue: decimal.Zero},
	})
	require.Len(t, totals.Positions, 1)
	assert.True(t, totals.Positions[0].AllocationPercent.IsZero())
	assert.True(t, totals.TotalProfitLossPercent.IsZero())
}
