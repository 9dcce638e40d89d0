package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

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
	rg.GET("", h.search)            // GET /api/cards
	rg.GET("/search", h.search)     // GET /api/cards/search
	rg.GET("/types", h.types)       // GET /api/cards/types
	rg.GET("/keywords", h.keywords) // GET /api/cards/keywords
	rg.GET("/suggest", h.suggest)   // GET /api/cards/suggest?q=
	rg.GET("/:id", h.getByID)       // GET /api/cards/:id
}

func (h *Handler) search(c *gin.Context) {
	q := ParseSearchQuery(c.Request.URL.Query())

	if (q.MinPrice != nil || q.MaxPrice != nil) && h.Repo.PriceColumn == "" {
		h.Logger.DebugContext(c.Request.Context(), "price filter ignored: no price column",
			"request_id", middleware.GetRequestID(c))
	}

	res, err := h.Repo.Search(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "search failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) types(c *gin.Context) {
	names, err := h.Repo.ListTypes(c.Request.Context())
	if err != nil {
		h.fail(c, "list types failed", err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (h *Handler) keywords(c *gin.Context) {
	names, err := h.Repo.ListKeywords(c.Request.Context())
	if err != nil {
		h.fail(c, "list keywords failed", err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (h *Handler) suggest(c *gin.Context) {
	limit := parseInt(c.Query("limit"), DefaultSuggestLimit)
	out, err := h.Repo.Suggest(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.fail(c, "suggest failed", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	card, err := h.Repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
		return
	}
	if err != nil {
		h.fail(c, "get failed", err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	h.Logger.ErrorContext(c.Request.Context(), msg,
		"request_id", middleware.GetRequestID(c),
		"err", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
