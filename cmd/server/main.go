package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goldline/backend/docs"
	"github.com/goldline/backend/internal/audit"
	"github.com/goldline/backend/internal/config"
	"github.com/goldline/backend/internal/database"
	"github.com/goldline/backend/internal/events"
	"github.com/goldline/backend/internal/gateway"
	"github.com/goldline/backend/internal/handlers"
	mW "github.com/goldline/backend/internal/middleware"
	"github.com/goldline/backend/internal/repository"
	"github.com/goldline/backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Gold Loan Payments API
// @version 1.0
// @description Loan repayment ledger and gateway reconciliation
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	config.InitViper()
	logger := config.GetLogger()
	config.SetLogLevel(viper.GetString("log.level"))

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Gold Loan Payments API"
	docs.SwaggerInfo.Description = "Loan repayment ledger and gateway reconciliation"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = viper.GetString("server.public_host")
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize storage
	db := database.InitDatabase()
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}
	cancelMigrate()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Settlement notifications fan out to the Redis queue when it is reachable
	sinks := events.MultiSink{events.NewLogSink(logger)}
	if redisClient != nil {
		sinks = append(sinks, events.NewRedisSettlementQueue(redisClient))
	}

	ledgerCfg := config.LoadLedgerConfig()
	store := repository.NewPostgresStore(db)
	engine := services.NewReconciliationEngine(
		store,
		gateway.NewRazorpayClient(gateway.LoadRazorpayConfig(), logger),
		sinks,
		events.NewWebhookDeduper(redisClient, ledgerCfg.WebhookDedupeTTL, logger),
		audit.NewAuditLogger(logger),
		logger,
		ledgerCfg,
	)
	receiptService := services.NewReceiptService(services.NewPaymentRecordStore(store), redisClient, logger)

	paymentHandler := handlers.NewPaymentHandler(engine, receiptService)
	loanHandler := handlers.NewLoanHandler(engine)
	webhookHandler := handlers.NewWebhookHandler(engine)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   viper.GetStringSlice("server.allowed_origins"),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.SignatureHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status": status,
			"redis":  redisClient != nil,
		})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", handlers.APIRoutes(paymentHandler, loanHandler, webhookHandler, mW.AuthMiddleware))

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runExpirySweep(sweepCtx, engine, viper.GetDuration("ledger.sweep_interval"))

	port := viper.GetString("server.port")

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.WithField("port", port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// runExpirySweep fails stale PENDING payments every interval until ctx ends.
func runExpirySweep(ctx context.Context, engine *services.ReconciliationEngine, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.FailExpiredPending(ctx, 0); err != nil {
				config.LogError(config.GetLogger(), "main", "runExpirySweep", "sweeping pending payments", nil, err)
			}
		}
	}
}
