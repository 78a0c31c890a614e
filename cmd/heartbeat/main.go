// The heartbeat binary runs one reconciliation pass and exits. It is
// meant to be invoked by cron or any external scheduler:
//
//	0 9 * * * /usr/local/bin/heartbeat
//
// Running it more often than necessary is safe; every pass that finds
// nothing due is a no-op.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"mubot/internal/config"
	"mubot/internal/guardrail"
	"mubot/internal/mailer"
	"mubot/internal/queue"
	"mubot/internal/service"
	"mubot/internal/store"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Storage.Backend != "postgres" {
		log.Fatal("The heartbeat binary requires STATE_BACKEND=postgres; an in-memory state would be empty every run")
	}

	// Connect to database
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Connected to database")

	st := store.New(store.NewPostgresBackend(db))

	// Guardrail policy
	guard := guardrail.NewEvaluator(guardrail.Config{
		DailyCap:         cfg.Outreach.DailyEmailCap,
		MinSendInterval:  cfg.Outreach.MinSendInterval,
		ApprovalRequired: cfg.Outreach.ApprovalRequired,
		BlockedTerms:     cfg.Outreach.SpamBlocklist,
	})

	// Collaborators
	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	detector := mailer.NewReplyDetector(db)

	// Event publishing is best-effort
	var events service.EventPublisher
	conn, err := queue.NewConnection(cfg.GetRabbitMQURL())
	if err != nil {
		log.Printf("Warning: RabbitMQ unavailable, events disabled: %v", err)
	} else {
		defer conn.Close()
		publisher, err := queue.NewPublisher(conn, cfg.RabbitMQ.EventQueue)
		if err != nil {
			log.Printf("Warning: failed to create publisher, events disabled: %v", err)
		} else {
			events = publisher
			log.Println("✅ Connected to RabbitMQ")
		}
	}

	// Run one pass
	runner := service.NewReconciliationRunner(st, guard, sender, detector, events)
	runner.SetTimezone(cfg.Outreach.Timezone)
	summary, err := runner.Run(context.Background())
	if err != nil {
		log.Printf("❌ Heartbeat failed: %v", err)
		os.Exit(1)
	}

	for _, msg := range summary.Errors {
		log.Printf("⚠️  %s", msg)
	}
}
