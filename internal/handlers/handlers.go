package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"masterfy/internal/database"
	"masterfy/internal/models"
	"masterfy/internal/portfolio"
	"masterfy/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Store interface {
	CreateAsset(ctx context.Context, a *models.Asset) error
	ListAssets(ctx context.Context) ([]models.Asset, error)
	GetAsset(ctx context.Context, id int64) (models.Asset, error)
	PriceHistory(ctx context.Context, assetID int64, limit int) ([]models.PricePoint, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	UpdateTransaction(ctx context.Context, t models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	FetchJoinedLedger(ctx context.Context) ([]portfolio.LedgerRow, error)
}

type Refresher interface {
	RefreshAll(ctx context.Context) (service.RefreshReport, error)
}

type BackupRunner interface {
	Run(ctx context.Context) (string, error)
}

type Handler struct {
	repo      Store
	engine    *portfolio.Engine
	refresher Refresher
	backups   BackupRunner
	log       *logrus.Logger
	now       func() time.Time
}

func NewHandler(r Store, e *portfolio.Engine, p Refresher, b BackupRunner, log *logrus.Logger) *Handler {
	return &Handler{repo: r, engine: e, refresher: p, backups: b, log: log, now: time.Now}
}

func (h *Handler) Register(rg gin.IRouter) {
	rg.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	rg.POST("/assets", h.PostAsset)
	rg.GET("/assets", h.ListAssets)
	rg.GET("/assets/:id/prices", h.GetPriceHistory)

	rg.POST("/transactions", h.PostTransaction)
	rg.GET("/transactions", h.ListTransactions)
	rg.PUT("/transactions/:id", h.PutTransaction)
	rg.DELETE("/transactions/:id", h.DeleteTransaction)

	rg.GET("/portfolio", h.GetPortfolio)
	rg.POST("/prices/refresh", h.RefreshPrices)
	rg.POST("/backups", h.RunBackup)
}

type AssetRequest struct {
	Ticker              string  `json:"ticker" binding:"required"`
	Name                string  `json:"name" binding:"required"`
	AssetClass          string  `json:"asset_class" binding:"required"`
	Sector              string  `json:"sector"`
	Indexer             *string `json:"indexer"`
	BenchmarkMultiplier string  `json:"benchmark_multiplier"`
}

func (h *Handler) PostAsset(c *gin.Context) {
	var req AssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid asset body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	class, ok := models.ParseAssetClass(req.AssetClass)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset_class must be one of EQUITY, FUND, FIXED_INCOME_FLOATING, OTHER"})
		return
	}
	a := models.Asset{
		Ticker:  strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Name:    req.Name,
		Class:   class,
		Sector:  strings.TrimSpace(req.Sector),
		Indexer: req.Indexer,
	}
	if a.Sector == "" {
		a.Sector = models.DefaultSector
	}
	if req.BenchmarkMultiplier != "" {
		m, err := decimal.NewFromString(req.BenchmarkMultiplier)
		if err != nil || !m.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "benchmark_multiplier must be a positive number"})
			return
		}
		a.BenchmarkMultiplier = decimal.NewNullDecimal(m)
	}

	if err := h.repo.CreateAsset(c.Request.Context(), &a); err != nil {
		if errors.Is(err, database.ErrDuplicateTicker) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ticker already registered"})
			return
		}
		h.log.Errorf("create asset failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListAssets(c *gin.Context) {
	assets, err := h.repo.ListAssets(c.Request.Context())
	if err != nil {
		h.log.Errorf("list assets failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (h *Handler) GetPriceHistory(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	limit := 30
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	if _, err := h.repo.GetAsset(c.Request.Context(), id); err != nil {
		h.fail(c, "get asset", err)
		return
	}
	points, err := h.repo.PriceHistory(c.Request.Context(), id, limit)
	if err != nil {
		h.log.Errorf("price history failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, points)
}

type TransactionRequest struct {
	AssetID   int64  `json:"asset_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Side      string `json:"side" binding:"required"`
	Quantity  string `json:"quantity" binding:"required"`
	UnitPrice string `json:"unit_price" binding:"required"`
	Fees      string `json:"fees"`
}

// toTransaction validates the request; the returned message is safe to
// show to the caller.
func (req TransactionRequest) toTransaction() (models.Transaction, string) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return models.Transaction{}, "date must be YYYY-MM-DD"
	}
	side, ok := models.ParseSide(req.Side)
	if !ok {
		return models.Transaction{}, "side must be BUY or SELL"
	}
	q, err := decimal.NewFromString(req.Quantity)
	if err != nil || !q.IsPositive() {
		return models.Transaction{}, "quantity must be a positive number"
	}
	p, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || p.IsNegative() {
		return models.Transaction{}, "unit_price must be a non-negative number"
	}
	fees := decimal.Zero
	if req.Fees != "" {
		fees, err = decimal.NewFromString(req.Fees)
		if err != nil || fees.IsNegative() {
			return models.Transaction{}, "fees must be a non-negative number"
		}
	}
	return models.Transaction{AssetID: req.AssetID, Date: date, Side: side, Quantity: q, UnitPrice: p, Fees: fees}, ""
}

func (h *Handler) PostTransaction(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid transaction body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, msg := req.toTransaction()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if err := h.repo.CreateTransaction(c.Request.Context(), &t); err != nil {
		h.fail(c, "create transaction", err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	txs, err := h.repo.ListTransactions(c.Request.Context())
	if err != nil {
		h.log.Errorf("list transactions failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *Handler) PutTransaction(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, msg := req.toTransaction()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	t.ID = id
	if err := h.repo.UpdateTransaction(c.Request.Context(), t); err != nil {
		h.fail(c, "update transaction", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTransaction(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteTransaction(c.Request.Context(), id); err != nil {
		h.fail(c, "delete transaction", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	ctx := c.Request.Context()
	assets, err := h.repo.ListAssets(ctx)
	if err != nil {
		h.log.Errorf("list assets failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	totals, err := h.engine.Valuate(ctx, h.repo, portfolio.SnapshotFromAssets(assets), h.now())
	if err != nil {
		h.log.Errorf("valuation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "valuation failed"})
		return
	}
	c.JSON(http.StatusOK, NewPortfolioView(totals))
}

func (h *Handler) RefreshPrices(c *gin.Context) {
	rep, err := h.refresher.RefreshAll(c.Request.Context())
	if err != nil {
		h.log.Errorf("price refresh failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *Handler) RunBackup(c *gin.Context) {
	path, err := h.backups.Run(c.Request.Context())
	if err != nil {
		h.log.Errorf("backup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backup failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": path})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.log.Errorf("%s failed: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}
