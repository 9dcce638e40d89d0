package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tradingcards/internal/catalog"
	"tradingcards/internal/collection"
	"tradingcards/internal/inventory"
	"tradingcards/internal/metrics"
	"tradingcards/internal/middleware"
	synchub "tradingcards/internal/sync"
	"tradingcards/pkg/database"
	"tradingcards/pkg/logging"
	"tradingcards/pkg/utils"
)

func main() {
	cfg, err := utils.LoadServerConfig()
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCfg := database.DefaultConfig()
	if cfg.DB.Path != "" {
		dbCfg.Path = cfg.DB.Path
	}
	db := database.MustOpen(ctx, dbCfg)
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	m := metrics.New("api")
	hub := synchub.NewHub(logger)
	defer hub.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, m)
	go limiter.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	_ = router.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(logger),
		middleware.Instrument(m),
		corsAllowAll(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.WSClients,
		})
	})

	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/ws", synchub.WSHandler(hub))

	api := router.Group("/api")
	api.Use(limiter.Middleware())

	// Catalog (search core)
	cardRepo := catalog.NewRepo(db)
	cardRepo.Metrics = m
	catalog.NewHandler(cardRepo, logger).RegisterRoutes(api.Group("/cards"))

	// Storefront stock
	stockRepo := inventory.NewRepo(db)
	stockRepo.Metrics = m
	stockHandler := inventory.NewHandler(stockRepo, hub, logger)
	stockHandler.Metrics = m
	stockHandler.LowStockThreshold = cfg.Inventory.LowStockThreshold
	stockHandler.RegisterRoutes(api.Group("/inventory"))

	// Collection tracker
	collRepo := collection.NewRepo(db)
	collRepo.Metrics = m
	collection.NewHandler(collRepo, logger).RegisterRoutes(api.Group("/collection"))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API server listening", "addr", cfg.HTTP.Addr, "db", dbCfg.Path)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}
	logger.Info("server stopped")
}

// corsAllowAll lets the storefront dev server call the API from another port.
func corsAllowAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
