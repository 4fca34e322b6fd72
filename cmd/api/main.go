package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dkovalev/ledgerkeep/internal/api/handlers"
	"github.com/dkovalev/ledgerkeep/internal/api/middleware"
	"github.com/dkovalev/ledgerkeep/internal/config"
	"github.com/dkovalev/ledgerkeep/internal/docstore/firestorex"
	"github.com/dkovalev/ledgerkeep/internal/docstore/memory"
	"github.com/dkovalev/ledgerkeep/internal/ledger"
	"github.com/dkovalev/ledgerkeep/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := context.Background()

	// Select the document store backend.
	var store ledger.Store
	switch cfg.Backend {
	case "memory":
		log.Warn().Msg("Using in-memory store - data is lost on restart")
		store = memory.NewStore()
	case "firestore":
		if cfg.ProjectID == "" {
			log.Fatal().Msg("GCP_PROJECT is required for the firestore backend")
		}
		fs, err := firestorex.New(ctx, cfg.ProjectID,
			firestorex.WithCollections(cfg.TransactionsCollection, cfg.SubscriptionsCollection, cfg.PurchasesCollection))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create firestore store")
		}
		defer fs.Close()
		store = fs
	default:
		log.Fatal().Str("backend", cfg.Backend).Msg("Unknown ledger backend")
	}

	// Collections must exist before the first query.
	bootCtx, cancelBoot := context.WithTimeout(ctx, 30*time.Second)
	err = store.EnsureCollections(bootCtx,
		cfg.TransactionsCollection, cfg.SubscriptionsCollection, cfg.PurchasesCollection)
	cancelBoot()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure collections")
	}

	// Services and handlers.
	txSvc := ledger.NewTransactionService(store, logger.WithComponent(log, "transactions"))
	subSvc := ledger.NewSubscriptionService(store, logger.WithComponent(log, "subscriptions"))
	instSvc := ledger.NewInstallmentService(store, logger.WithComponent(log, "installments"))

	transactionsHandler := handlers.NewTransactionsHandler(txSvc, log)
	subscriptionsHandler := handlers.NewSubscriptionsHandler(subSvc, log)
	installmentsHandler := handlers.NewInstallmentsHandler(instSvc, log)

	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			transactionsHandler.Update(w, r, id)
		case http.MethodDelete:
			transactionsHandler.Delete(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Subscriptions endpoints
	mux.HandleFunc("/api/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			subscriptionsHandler.List(w, r)
		case http.MethodPost:
			subscriptionsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/subscriptions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/subscriptions/")
		if rest == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Subscription ID is required")
			return
		}
		if id, ok := strings.CutSuffix(rest, "/payments"); ok {
			if r.Method == http.MethodPost {
				subscriptionsHandler.RecordPayment(w, r, id)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
			return
		}
		switch r.Method {
		case http.MethodPut:
			subscriptionsHandler.Update(w, r, rest)
		case http.MethodDelete:
			subscriptionsHandler.Delete(w, r, rest)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Installments endpoints
	mux.HandleFunc("/api/installments", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			installmentsHandler.List(w, r)
		case http.MethodPost:
			installmentsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/installments/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/installments/")
		if rest == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Purchase ID is required")
			return
		}
		if id, ok := strings.CutSuffix(rest, "/payments"); ok {
			if r.Method == http.MethodPost {
				installmentsHandler.AddPayment(w, r, id)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
			return
		}
		switch r.Method {
		case http.MethodPut:
			installmentsHandler.Update(w, r, rest)
		case http.MethodDelete:
			installmentsHandler.Delete(w, r, rest)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware. Identity runs innermost so unauthenticated health
	// checks still pass through the outer layers.
	protected := middleware.Identity(mux)
	root := http.NewServeMux()
	root.Handle("/health", mux)
	root.Handle("/", protected)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(root),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.Backend).Msg("Starting ledger API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
