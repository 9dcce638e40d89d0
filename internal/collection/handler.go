package collection

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tradingcards/internal/middleware"
)

type Handler struct {
	Repo   *Repo
	Logger *slog.Logger
}

func NewHandler(repo *Repo, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Repo: repo, Logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:userId", h.list)
	rg.GET("/:userId/stats", h.stats)
	rg.POST("/add", h.add)
	rg.POST("/update", h.update)
	rg.POST("/remove", h.remove)
}

// flexID accepts both "42" and 42 for ids the storefront sends either way.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type addReq struct {
	UserID        flexID           `json:"user_id"`
	CardID        string           `json:"card_id"`
	PrintingID    string           `json:"printing_id"`
	Quantity      int              `json:"quantity"`
	Condition     string           `json:"condition"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
}

func (h *Handler) add(c *gin.Context) {
	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	userID := string(req.UserID)
	cardID := strings.TrimSpace(req.CardID)
	printingID := strings.TrimSpace(req.PrintingID)
	if userID == "" || cardID == "" || printingID == "" || req.Quantity == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be at least 1"})
		return
	}

	price := decimal.Zero
	if req.PurchasePrice != nil && req.PurchasePrice.IsPositive() {
		price = *req.PurchasePrice
	}

	res, err := h.Repo.Add(c.Request.Context(), AddParams{
		UserID:        userID,
		CardID:        cardID,
		PrintingID:    printingID,
		Quantity:      req.Quantity,
		Condition:     req.Condition,
		PurchasePrice: price,
	})
	if err != nil {
		h.fail(c, "add to collection failed", err)
		return
	}

	msg := "Card quantity updated in collection"
	if res.Created {
		msg = "Card added to collection"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        msg,
		"inventory_id":   res.InventoryID,
		"new_quantity":   res.Quantity,
		"purchase_price": res.PurchasePrice,
	})
}

type updateReq struct {
	InventoryID int64  `json:"inventory_id"`
	Quantity    int    `json:"quantity"`
	UserID      flexID `json:"user_id"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.InventoryID == 0 || req.Quantity == 0 || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if req.Quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be at least 1"})
		return
	}

	err := h.Repo.UpdateQuantity(c.Request.Context(), string(req.UserID), req.InventoryID, req.Quantity)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Inventory entry not found or not owned by user"})
		return
	}
	if err != nil {
		h.fail(c, "update collection failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Quantity updated",
		"inventory_id": req.InventoryID,
		"new_quantity": req.Quantity,
	})
}

type removeReq struct {
	InventoryID int64  `json:"inventory_id"`
	UserID      flexID `json:"user_id"`
}

func (h *Handler) remove(c *gin.Context) {
	var req removeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.InventoryID == 0 || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	err := h.Repo.Remove(c.Request.Context(), string(req.UserID), req.InventoryID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Inventory entry not found or not owned by user"})
		return
	}
	if err != nil {
		h.fail(c, "remove from collection failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Card removed from collection",
		"inventory_id": req.InventoryID,
	})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Repo.List(c.Request.Context(), strings.TrimSpace(c.Param("userId")))
	if err != nil {
		h.fail(c, "list collection failed", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Repo.Stats(c.Request.Context(), strings.TrimSpace(c.Param("userId")))
	if err != nil {
		h.fail(c, "collection stats failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	h.Logger.ErrorContext(c.Request.Context(), msg,
		"request_id", middleware.GetRequestID(c),
		"err", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
