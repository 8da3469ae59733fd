package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"vendzz/internal/adapter"
	"vendzz/internal/config"
	"vendzz/internal/dispatch"
	"vendzz/internal/models"
	"vendzz/internal/queue"
	"vendzz/internal/repository"
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

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		log.Fatalf("failed to connect to database: %v", err)
	}
	cancel()
	log.Println("connected to database")

	conn, err := queue.NewConnection(cfg.GetRabbitMQURL())
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	log.Println("connected to rabbitmq")

	// Adapters are registered only when their credentials are configured;
	// a job for an unconfigured channel fails its campaign in the ledger.
	adapters := map[models.Channel]adapter.DeliveryAdapter{}
	if smsAdapter, err := adapter.NewSMSAdapter(cfg.Providers.SMS); err != nil {
		log.Printf("sms adapter disabled: %v", err)
	} else {
		adapters[models.ChannelSMS] = smsAdapter
	}
	if emailAdapter, err := adapter.NewEmailAdapter(cfg.Providers.SMTP); err != nil {
		log.Printf("email adapter disabled: %v", err)
	} else {
		adapters[models.ChannelEmail] = emailAdapter
	}

	campaignRepo := repository.NewCampaignRepository(db)
	ledger := repository.NewDeliveryLedger(db)

	sender := dispatch.NewSender(campaignRepo, ledger, adapters, cfg.Dispatch.SendTimeout)

	consumer, err := queue.NewConsumer(conn, queue.DispatchQueue, func(job *queue.DispatchJob) error {
		return sender.Process(context.Background(), job)
	})
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	if err := consumer.Start(); err != nil {
		log.Fatalf("failed to start consumer: %v", err)
	}
	log.Println("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down worker...")
	if err := consumer.Stop(); err != nil {
		log.Printf("consumer stop error: %v", err)
	}
	log.Println("worker stopped")
}
