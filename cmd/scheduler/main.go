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
	"github.com/redis/go-redis/v9"

	"vendzz/internal/config"
	"vendzz/internal/dispatch"
	"vendzz/internal/distlock"
	"vendzz/internal/models"
	"vendzz/internal/queue"
	"vendzz/internal/ratelimit"
	"vendzz/internal/repository"
	"vendzz/internal/resolver"
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

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
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

	conn, err := queue.NewConnection(cfg.GetRabbitMQURL())
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	log.Println("connected to rabbitmq")

	publisher, err := queue.NewPublisher(conn, queue.DispatchQueue)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	campaignRepo := repository.NewCampaignRepository(db)
	ledger := repository.NewDeliveryLedger(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	limiter := ratelimit.NewLimiter(redisClient, cfg.Dispatch.SendsPerMinute)
	lock := distlock.NewLock(redisClient, "dispatch-scheduler", cfg.Dispatch.TickInterval*3)

	// Rate limiting is keyed by provider credential: every campaign on the
	// same credential shares one sends-per-minute budget.
	limiterKeys := map[models.Channel]string{
		models.ChannelSMS:   "sms:" + cfg.Providers.SMS.AccountSID,
		models.ChannelEmail: "email:" + cfg.Providers.SMTP.User,
	}

	scheduler := dispatch.NewScheduler(
		campaignRepo,
		ledger,
		resolver.NewTargetResolver(submissionRepo),
		template.NewRenderer(),
		publisher,
		limiter,
		lock,
		dispatch.Config{
			TickInterval: cfg.Dispatch.TickInterval,
			QuietPeriod:  cfg.Dispatch.QuietPeriod,
			MaxAttempts:  cfg.Dispatch.MaxAttempts,
			RetryBackoff: cfg.Dispatch.RetryBackoff,
			LimiterKeys:  limiterKeys,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("scheduler started, tick interval %s", cfg.Dispatch.TickInterval)
	scheduler.Run(ctx)
	log.Println("scheduler stopped")
	os.Exit(0)
}
