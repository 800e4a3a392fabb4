package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"masterfy/internal/models"
	"masterfy/internal/portfolio"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateTicker = errors.New("ticker already registered")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type Repo struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func New(db *sqlx.DB, log *logrus.Logger) *Repo {
	return &Repo{db: db, log: log}
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

const assetColumns = `id, ticker, name, asset_class, sector, indexer, benchmark_multiplier, last_known_price, last_price_at`

func (r *Repo) CreateAsset(ctx context.Context, a *models.Asset) error {
	q := `INSERT INTO assets (ticker, name, asset_class, sector, indexer, benchmark_multiplier) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, q, a.Ticker, a.Name, string(a.Class), a.Sector, a.Indexer, a.BenchmarkMultiplier).Scan(&a.ID)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return fmt.Errorf("%s: %w", a.Ticker, ErrDuplicateTicker)
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (r *Repo) ListAssets(ctx context.Context) ([]models.Asset, error) {
	res := []models.Asset{}
	if err := r.db.SelectContext(ctx, &res, `SELECT `+assetColumns+` FROM assets ORDER BY ticker ASC`); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return res, nil
}

func (r *Repo) GetAsset(ctx context.Context, id int64) (models.Asset, error) {
	var a models.Asset
	if err := r.db.GetContext(ctx, &a, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Asset{}, fmt.Errorf("asset %d: %w", id, ErrNotFound)
		}
		return models.Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

func (r *Repo) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if _, err := r.GetAsset(ctx, t.AssetID); err != nil {
		return err
	}
	q := `INSERT INTO transactions (asset_id, date, side, quantity, unit_price, fees) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, q, t.AssetID, t.Date, string(t.Side), t.Quantity, t.UnitPrice, t.Fees).Scan(&t.ID)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return fmt.Errorf("asset %d: %w", t.AssetID, ErrNotFound)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *Repo) UpdateTransaction(ctx context.Context, t models.Transaction) error {
	if _, err := r.GetAsset(ctx, t.AssetID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET asset_id = $1, date = $2, side = $3, quantity = $4, unit_price = $5, fees = $6 WHERE id = $7`,
		t.AssetID, t.Date, string(t.Side), t.Quantity, t.UnitPrice, t.Fees, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOne(res, fmt.Sprintf("transaction %d", t.ID))
}

func (r *Repo) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res, fmt.Sprintf("transaction %d", id))
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func (r *Repo) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	res := []models.Transaction{}
	q := `SELECT id, asset_id, date, side, quantity, unit_price, fees FROM transactions ORDER BY date DESC, id DESC`
	if err := r.db.SelectContext(ctx, &res, q); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return res, nil
}

// FetchJoinedLedger returns every transaction with its asset metadata, oldest
// first. A row that cannot be read fails the whole call.
func (r *Repo) FetchJoinedLedger(ctx context.Context) ([]portfolio.LedgerRow, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT t.id AS transaction_id, t.asset_id, a.ticker, a.name, a.asset_class, a.sector,
		       a.benchmark_multiplier, t.date, t.side, t.quantity, t.unit_price, t.fees
		FROM transactions t
		LEFT JOIN assets a ON a.id = t.asset_id
		ORDER BY t.date ASC, t.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	res := []portfolio.LedgerRow{}
	for rows.Next() {
		var lr ledgerRow
		if err := rows.StructScan(&lr); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		res = append(res, lr.toLedger())
	}
	return res, rows.Err()
}

// RecordPrice stores a refreshed quote on the asset and in the daily history.
func (r *Repo) RecordPrice(ctx context.Context, assetID int64, price decimal.Decimal, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE assets SET last_known_price = $1, last_price_at = $2 WHERE id = $3`, price, at, assetID)
	if err != nil {
		return fmt.Errorf("update last price: %w", err)
	}
	if err := expectOne(res, fmt.Sprintf("asset %d", assetID)); err != nil {
		return err
	}

	upsert := `INSERT INTO price_history (asset_id, date, price) VALUES ($1, $2, $3) ON CONFLICT (asset_id, date) DO UPDATE SET price = EXCLUDED.price`
	if _, err := tx.ExecContext(ctx, upsert, assetID, at.UTC().Format("2006-01-02"), price); err != nil {
		return fmt.Errorf("upsert price history: %w", err)
	}
	return tx.Commit()
}

func (r *Repo) PriceHistory(ctx context.Context, assetID int64, limit int) ([]models.PricePoint, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT asset_id, date, price FROM price_history WHERE asset_id = $1 ORDER BY date DESC LIMIT $2`, assetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []models.PricePoint{}
	for rows.Next() {
		var p models.PricePoint
		if err := rows.StructScan(&p); err != nil {
			r.log.Warnf("scan price point failed: %v", err)
			continue
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// Dump reads all tables inside one read-only transaction so the copy is consistent.
func (r *Repo) Dump(ctx context.Context) (Dump, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return Dump{}, err
	}
	defer tx.Rollback()

	d := Dump{TakenAt: time.Now().UTC(), Assets: []models.Asset{}, Transactions: []models.Transaction{}, Prices: []models.PricePoint{}}
	if err := tx.SelectContext(ctx, &d.Assets, `SELECT `+assetColumns+` FROM assets ORDER BY id`); err != nil {
		return Dump{}, fmt.Errorf("dump assets: %w", err)
	}
	if err := tx.SelectContext(ctx, &d.Transactions, `SELECT id, asset_id, date, side, quantity, unit_price, fees FROM transactions ORDER BY id`); err != nil {
		return Dump{}, fmt.Errorf("dump transactions: %w", err)
	}
	if err := tx.SelectContext(ctx, &d.Prices, `SELECT asset_id, date, price FROM price_history ORDER BY asset_id, date`); err != nil {
		return Dump{}, fmt.Errorf("dump prices: %w", err)
	}
	return d, tx.Commit()
}

// EnsureAssetExists registers an asset unless its ticker is already known.
func (r *Repo) EnsureAssetExists(ctx context.Context, a models.Asset) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO assets (ticker, name, asset_class, sector, indexer, benchmark_multiplier)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticker) DO UPDATE SET ticker = EXCLUDED.ticker
		RETURNING id`, a.Ticker, a.Name, string(a.Class), a.Sector, a.Indexer, a.BenchmarkMultiplier)
	return id, err
}
