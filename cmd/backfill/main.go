package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"masterfy/internal/database"
	"masterfy/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type seedTx struct {
	ticker string
	ago    int // days before today
	side   models.Side
	qty    string
	price  string
}

func main() {
	godotenv.Load()
	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		log.Fatal("POSTGRES_URL is required")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	repo := database.New(db, logrus.New())
	cdi := "CDI"

	// 1. Register the demo assets
	assets := []models.Asset{
		{Ticker: "PETR4", Name: "Petrobras PN", Class: models.ClassEquity, Sector: "Energy"},
		{Ticker: "VALE3", Name: "Vale ON", Class: models.ClassEquity, Sector: "Mining"},
		{Ticker: "KNCR11", Name: "Kinea Rendimentos Imobiliarios", Class: models.ClassFund, Sector: "Real Estate"},
		{Ticker: "CDB-DEMO-110", Name: "CDB 110% CDI", Class: models.ClassFixedIncomeFloating, Sector: models.DefaultSector,
			Indexer: &cdi, BenchmarkMultiplier: decimal.NewNullDecimal(decimal.RequireFromString("1.10"))},
	}
	ids := map[string]int64{}
	for _, a := range assets {
		id, err := repo.EnsureAssetExists(ctx, a)
		if err != nil {
			log.Fatalf("could not register %s: %v", a.Ticker, err)
		}
		ids[a.Ticker] = id
	}

	// 2. Add a year of buys and sells
	txs := []seedTx{
		{"PETR4", 360, models.SideBuy, "100", "30.50"},
		{"PETR4", 200, models.SideBuy, "50", "36.10"},
		{"PETR4", 90, models.SideSell, "30", "38.00"},
		{"VALE3", 300, models.SideBuy, "40", "68.20"},
		{"KNCR11", 250, models.SideBuy, "20", "98.40"},
		{"CDB-DEMO-110", 365, models.SideBuy, "1", "5000"},
		{"CDB-DEMO-110", 120, models.SideBuy, "1", "2500"},
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, s := range txs {
		t := models.Transaction{
			AssetID:   ids[s.ticker],
			Date:      today.AddDate(0, 0, -s.ago),
			Side:      s.side,
			Quantity:  decimal.RequireFromString(s.qty),
			UnitPrice: decimal.RequireFromString(s.price),
			Fees:      decimal.Zero,
		}
		if err := repo.CreateTransaction(ctx, &t); err != nil {
			fmt.Printf("Warning: could not insert %s %s: %v\n", s.side, s.ticker, err)
		}
	}

	fmt.Println("Successfully seeded the demo ledger!")
	fmt.Println("Now run: curl -XPOST localhost:8080/prices/refresh && curl localhost:8080/portfolio")
}
