package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/events"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/handler"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/service"
	"github.com/pharmaflow/pharmaflow-backend/pkg/auth"
	"github.com/pharmaflow/pharmaflow-backend/pkg/config"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/httputil"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/pharmaflow/pharmaflow-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("inventory-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("inventory-service", cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewPharmacyEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	medicineRepo := repository.NewMedicineRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	resolutionRepo := repository.NewResolutionRepository(db)
	returnRepo := repository.NewSupplierReturnRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Initialize services
	ledger := service.NewStockLedgerService(db, batchRepo, publisher, log)
	alertService := service.NewAlertService(batchRepo, resolutionRepo, &cfg.Policy, log)
	resolutionService := service.NewResolutionService(db, medicineRepo, batchRepo, resolutionRepo, &cfg.Policy, publisher, log)
	batchService := service.NewBatchService(db, medicineRepo, batchRepo, resolutionRepo, publisher, log)
	returnService := service.NewSupplierReturnService(db, returnRepo, batchRepo, resolutionRepo, publisher, log)
	refundService := service.NewRefundService(db, refundRepo, orderRepo, ledger, publisher, log)
	dashboardService := service.NewDashboardService(alertService, batchRepo, returnRepo, refundRepo, log)

	// Initialize handlers
	alertHandler := handler.NewAlertHandler(alertService, resolutionService, log)
	batchHandler := handler.NewBatchHandler(batchService, log)
	stockHandler := handler.NewStockHandler(ledger, log)
	returnHandler := handler.NewSupplierReturnHandler(returnService, log)
	refundHandler := handler.NewRefundHandler(refundService, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)

	// JWT verification (tokens issued by the account system)
	jwtManager := auth.NewManager(&cfg.JWT)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "inventory-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/pharmacy", func(r chi.Router) {
		r.Use(httputil.Auth(jwtManager))

		// Alert routes
		r.Get("/alerts", alertHandler.List)
		r.Put("/alerts/resolve", alertHandler.Resolve)

		// Medicine batch routes
		r.Route("/medicines/{id}/batches", func(r chi.Router) {
			r.Get("/", batchHandler.ListByMedicine)
			r.Post("/", batchHandler.Receive)
		})

		// Batch routes
		r.Route("/batches", func(r chi.Router) {
			r.Get("/{id}", batchHandler.Get)
			r.Delete("/{id}", batchHandler.Delete)
			r.Put("/{id}/visibility", batchHandler.SetVisibility)
		})

		// Stock ledger routes
		r.Post("/stock/reserve", stockHandler.Reserve)
		r.Post("/stock/restore", stockHandler.Restore)

		// Supplier return routes
		r.Route("/supplier-returns", func(r chi.Router) {
			r.Get("/", returnHandler.List)
			r.Post("/", returnHandler.Create)
			r.Get("/{id}", returnHandler.Get)
			r.Post("/{id}/approve", returnHandler.Approve)
			r.Post("/{id}/reject", returnHandler.Reject)
		})

		// Refund routes
		r.Route("/refunds", func(r chi.Router) {
			r.Get("/", refundHandler.List)
			r.Post("/", refundHandler.Create)
			r.Get("/{id}", refundHandler.Get)
			r.Post("/{id}/approve", refundHandler.Approve)
			r.Post("/{id}/reject", refundHandler.Reject)
			r.Put("/{id}/status", refundHandler.UpdateStatus)
		})

		// Dashboard
		r.Get("/dashboard/stats", dashboardHandler.Stats)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
