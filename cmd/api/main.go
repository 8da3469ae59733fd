package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"vendzz/internal/config"
	"vendzz/internal/extension"
	"vendzz/internal/handler"
	"vendzz/internal/middleware"
	"vendzz/internal/repository"
	"vendzz/internal/service"
	"vendzz/internal/template"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		log.Fatalf("failed to connect to database: %v", err)
	}
	cancel()
	log.Println("connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	campaignRepo := repository.NewCampaignRepository(db)
	ledger := repository.NewDeliveryLedger(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	renderer := template.NewRenderer()
	bridge := extension.NewBridge(redisClient, extension.DefaultFreshness)

	campaignService := service.NewCampaignService(campaignRepo, ledger, submissionRepo, renderer)
	leadService := service.NewLeadService(submissionRepo)
	extensionService := service.NewExtensionService(campaignRepo, ledger, bridge)

	campaignHandler := handler.NewCampaignHandler(campaignService)
	leadHandler := handler.NewLeadHandler(leadService)
	extensionHandler := handler.NewExtensionHandler(extensionService)
	healthHandler := handler.NewHealthHandler(db)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)

	router.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)

	api := router.PathPrefix("/").Subrouter()
	api.Use(middleware.Auth(accountRepo))
	api.HandleFunc("/campaigns", campaignHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/campaigns", campaignHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}", campaignHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}/toggle", campaignHandler.Toggle).Methods(http.MethodPatch)
	api.HandleFunc("/campaigns/{id}/logs", campaignHandler.Logs).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}/preview", campaignHandler.Preview).Methods(http.MethodPost)
	api.HandleFunc("/campaigns/{id}/pending-sends", extensionHandler.PendingSends).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}/delivery-outcome", extensionHandler.ReportOutcome).Methods(http.MethodPost)
	api.HandleFunc("/quizzes/{id}/submissions", leadHandler.Submit).Methods(http.MethodPost)
	api.HandleFunc("/extension/heartbeat", extensionHandler.Heartbeat).Methods(http.MethodPost)
	api.HandleFunc("/extension/status", extensionHandler.Status).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("server stopped")
}
