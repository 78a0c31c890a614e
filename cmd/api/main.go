package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"mubot/internal/config"
	"mubot/internal/guardrail"
	"mubot/internal/handler"
	"mubot/internal/mailer"
	"mubot/internal/middleware"
	"mubot/internal/models"
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

	// Set up the state backend
	var backend store.Backend
	var db *sql.DB
	if cfg.Storage.Backend == "postgres" {
		db, err = sql.Open("postgres", cfg.GetDatabaseDSN())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		log.Println("✅ Connected to database")
		backend = store.NewPostgresBackend(db)
	} else {
		log.Println("⚠️  Using in-memory state backend (development only)")
		backend = store.NewMemoryBackend()
	}
	st := store.New(backend)

	// Guardrail policy
	guard := guardrail.NewEvaluator(guardrail.Config{
		DailyCap:         cfg.Outreach.DailyEmailCap,
		MinSendInterval:  cfg.Outreach.MinSendInterval,
		ApprovalRequired: cfg.Outreach.ApprovalRequired,
		BlockedTerms:     cfg.Outreach.SpamBlocklist,
	})

	// Services
	entrySvc := service.NewEntryService(st)
	scheduler := service.NewFollowupScheduler(st)

	// Collaborators for the HTTP-triggered heartbeat
	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	var detector service.ReplyDetector = noReplies{}
	if db != nil {
		detector = mailer.NewReplyDetector(db)
	}

	// Event publishing is best-effort: the API runs without it.
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

	runner := service.NewReconciliationRunner(st, guard, sender, detector, events)
	runner.SetTimezone(cfg.Outreach.Timezone)

	// Handlers
	entryHandler := handler.NewEntryHandler(entrySvc, scheduler)
	heartbeatHandler := handler.NewHeartbeatHandler(runner)
	healthHandler := handler.NewHealthHandler(db)

	// Router
	router := mux.NewRouter()
	router.Use(middleware.Recovery)

	router.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")
	router.HandleFunc("/entries", entryHandler.Create).Methods("POST")
	router.HandleFunc("/entries/{id}", entryHandler.GetByID).Methods("GET")
	router.HandleFunc("/entries/{id}/followups", entryHandler.ScheduleFollowups).Methods("POST")
	router.HandleFunc("/entries/{id}/followups/{index}/draft", entryHandler.AttachDraft).Methods("PUT")
	router.HandleFunc("/entries/{id}/do-not-contact", entryHandler.DoNotContact).Methods("POST")
	router.HandleFunc("/followups/pending", entryHandler.ListPending).Methods("GET")
	router.HandleFunc("/heartbeat/run", heartbeatHandler.Run).Methods("POST")

	// Start server
	port := ":" + cfg.Server.Port
	log.Printf("🚀 API server starting on port %s", port)
	log.Printf("🌍 Environment: %s", cfg.Env)

	if err := http.ListenAndServe(port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// noReplies is the reply detector used without a database: it never
// reports a reply, so follow-ups are only cancelled explicitly.
type noReplies struct{}

func (noReplies) HasReplied(_ context.Context, _ *models.OutreachEntry) (bool, error) {
	return false, nil
}
