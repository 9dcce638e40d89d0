package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tradingcards/internal/metrics"
	"tradingcards/internal/middleware"
	"tradingcards/internal/sync"
)

// Broadcaster pushes events to live storefront clients.
type Broadcaster interface {
	BroadcastJSON(v any)
}

type Handler struct {
	Repo              *Repo
	Hub               Broadcaster
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
	LowStockThreshold int
}

func NewHandler(repo *Repo, hub Broadcaster, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Repo: repo, Hub: hub, Logger: logger, LowStockThreshold: 5}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/printing/:printingId", h.getByPrinting)
	rg.GET("/check/:printingId", h.check)
	rg.POST("/update", h.purchase)
	rg.GET("/low-stock", h.lowStock)
}

func (h *Handler) getByPrinting(c *gin.Context) {
	it, err := h.Repo.GetByPrinting(c.Request.Context(), strings.TrimSpace(c.Param("printingId")))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Inventory not found"})
		return
	}
	if err != nil {
		h.fail(c, "get inventory failed", err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *Handler) check(c *gin.Context) {
	printingID := strings.TrimSpace(c.Param("printingId"))
	quantity := parseInt(c.Query("quantity"), 1)
	if quantity < 1 {
		quantity = 1
	}

	available, err := h.Repo.Available(c.Request.Context(), printingID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		h.fail(c, "check failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"printing_id": printingID,
		"requested":   quantity,
		"available":   available,
		"in_stock":    available >= quantity,
	})
}

type purchaseReq struct {
	PrintingID string `json:"printing_id"`
	Quantity   int    `json:"quantity"`
}

func (h *Handler) purchase(c *gin.Context) {
	var req purchaseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.PrintingID = strings.TrimSpace(req.PrintingID)
	if req.PrintingID == "" || req.Quantity == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}

	newStock, err := h.Repo.Decrement(c.Request.Context(), req.PrintingID, req.Quantity)
	var short *InsufficientStockError
	switch {
	case errors.As(err, &short):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Insufficient stock",
			"requested": short.Requested,
			"available": short.Available,
		})
		return
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	case err != nil:
		h.fail(c, "update inventory failed", err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.StockDecrementsTotal.Inc()
	}
	if h.Hub != nil {
		ev := sync.StockEvent{
			Type:       sync.StockUpdateEvent,
			PrintingID: req.PrintingID,
			Quantity:   req.Quantity,
			NewStock:   newStock,
			At:         time.Now().UTC(),
		}
		h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Inventory updated",
		"printing_id": req.PrintingID,
		"quantity":    req.Quantity,
		"new_stock":   newStock,
	})
}

func (h *Handler) lowStock(c *gin.Context) {
	threshold := parseInt(c.Query("threshold"), h.LowStockThreshold)
	items, err := h.Repo.LowStock(c.Request.Context(), threshold)
	if err != nil {
		h.fail(c, "low stock failed", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	h.Logger.ErrorContext(c.Request.Context(), msg,
		"request_id", middleware.GetRequestID(c),
		"err", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
