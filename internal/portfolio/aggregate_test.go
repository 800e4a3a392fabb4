package portfolio

import (
	"math/rand"
	"testing"
	"time"

	"masterfy/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func row(txID, assetID int64, ticker string, class models.AssetClass, date string, side models.Side, qty, price string) LedgerRow {
	return LedgerRow{
		TransactionID: txID,
		AssetID:       assetID,
		AssetKnown:    true,
		Ticker:        ticker,
		Name:          ticker + " name",
		Class:         class,
		Sector:        models.DefaultSector,
		Date:          day(date),
		Side:          side,
		Quantity:      d(qty),
		UnitPrice:     d(price),
		Fees:          decimal.Zero,
	}
}

func sampleLedger() []LedgerRow {
	return []LedgerRow{
		row(1, 1, "PETR4", models.ClassEquity, "2024-01-10", models.SideBuy, "100", "30.50"),
		row(2, 1, "PETR4", models.ClassEquity, "2024-02-10", models.SideBuy, "50", "32"),
		row(3, 1, "PETR4", models.ClassEquity, "2024-03-10", models.SideSell, "30", "35"),
		row(4, 2, "KNCR11", models.ClassFund, "2024-01-15", models.SideBuy, "10", "100"),
		row(5, 3, "CDB-XP", models.ClassFixedIncomeFloating, "2024-01-02", models.SideBuy, "1", "1000"),
		row(6, 3, "CDB-XP", models.ClassFixedIncomeFloating, "2024-06-03", models.SideBuy, "2", "500"),
		row(7, 4, "VALE3", models.ClassEquity, "2024-01-05", models.SideBuy, "20", "60"),
		row(8, 4, "VALE3", models.ClassEquity, "2024-04-05", models.SideSell, "20", "70"),
	}
}

func assertDraftsEqual(t *testing.T, want, got map[int64]*PositionDraft) {
	t.Helper()
	require.Len(t, got, len(want))
	for id, w := range want {
		g, ok := got[id]
		require.True(t, ok, "missing draft for asset %d", id)
		assert.Equal(t, w.Ticker, g.Ticker)
		assert.True(t, w.NetQuantity.Equal(g.NetQuantity), "net quantity %s != %s", w.NetQuantity, g.NetQuantity)
		assert.True(t, w.CostBasis.Equal(g.CostBasis), "cost basis %s != %s", w.CostBasis, g.CostBasis)
		require.Len(t, g.Lots, len(w.Lots))
		for i := range w.Lots {
			assert.True(t, w.Lots[i].PurchaseDate.Equal(g.Lots[i].PurchaseDate))
			assert.True(t, w.Lots[i].Principal().Equal(g.Lots[i].Principal()))
		}
	}
}

func TestAggregate_FoldsBuysAndSells(t *testing.T) {
	drafts, issues := Aggregate(sampleLedger())
	assert.Empty(t, issues)

	require.Contains(t, drafts, int64(1))
	petr := drafts[1]
	assert.True(t, petr.NetQuantity.Equal(d("120")), "got %s", petr.NetQuantity)
	// 100*30.50 + 50*32 - 30*35
	assert.True(t, petr.CostBasis.Equal(d("3600")), "got %s", petr.CostBasis)
	assert.Empty(t, petr.Lots)

	cdb := drafts[3]
	require.Len(t, cdb.Lots, 2)
	assert.True(t, cdb.Lots[0].Principal().Equal(d("1000")))
	assert.True(t, cdb.Lots[1].Principal().Equal(d("1000")))
	assert.Equal(t, day("2024-01-02"), cdb.Lots[0].PurchaseDate)
}

func TestAggregate_DropsFullySoldPositions(t *testing.T) {
	drafts, _ := Aggregate(sampleLedger())
	assert.NotContains(t, drafts, int64(4))
	for _, dr := range drafts {
		assert.True(t, dr.NetQuantity.IsPositive(), "%s has %s", dr.Ticker, dr.NetQuantity)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	ledger := sampleLedger()
	first, _ := Aggregate(ledger)
	again, _ := Aggregate(ledger)
	assertDraftsEqual(t, first, again)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]LedgerRow(nil), ledger...)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, _ := Aggregate(shuffled)
		assertDraftsEqual(t, first, got)
	}
}

func TestAggregate_SellDoesNotShrinkLots(t *testing.T) {
	ledger := []LedgerRow{
		row(1, 9, "CDB", models.ClassFixedIncomeFloating, "2024-01-02", models.SideBuy, "2", "1000"),
		row(2, 9, "CDB", models.ClassFixedIncomeFloating, "2024-03-02", models.SideSell, "1", "1000"),
	}
	drafts, _ := Aggregate(ledger)
	require.Contains(t, drafts, int64(9))
	assert.True(t, drafts[9].NetQuantity.Equal(d("1")))
	assert.True(t, drafts[9].CostBasis.Equal(d("1000")))
	require.Len(t, drafts[9].Lots, 1)
	assert.True(t, drafts[9].Lots[0].Principal().Equal(d("2000")))
}

func TestAggregate_ReportsInconsistencies(t *testing.T) {
	orphan := row(10, 99, "", "", "2024-01-01", models.SideBuy, "1", "10")
	orphan.AssetKnown = false
	badSide := row(11, 5, "ITSA4", models.ClassEquity, "2024-01-01", models.Side("HOLD"), "1", "10")
	oversold := []LedgerRow{
		row(12, 6, "BBAS3", models.ClassEquity, "2024-01-01", models.SideBuy, "5", "20"),
		row(13, 6, "BBAS3", models.ClassEquity, "2024-02-01", models.SideSell, "8", "20"),
	}

	drafts, issues := Aggregate(append([]LedgerRow{orphan, badSide}, oversold...))
	assert.Empty(t, drafts)
	require.Len(t, issues, 3)

	codes := map[IssueCode]Issue{}
	for _, is := range issues {
		codes[is.Code] = is
	}
	assert.Equal(t, int64(10), codes[IssueUnknownAsset].TransactionID)
	assert.Equal(t, int64(11), codes[IssueUnknownSide].TransactionID)
	assert.Equal(t, int64(6), codes[IssueNegativeQuantity].AssetID)
}

func TestAggregate_FeesIgnored(t *testing.T) {
	r := row(1, 1, "WEGE3", models.ClassEquity, "2024-01-01", models.SideBuy, "10", "40")
	r.Fees = d("4.90")
	drafts, _ := Aggregate([]LedgerRow{r})
	assert.True(t, drafts[1].CostBasis.Equal(d("400")))
}
