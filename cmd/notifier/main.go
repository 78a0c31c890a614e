// The notifier consumes outreach events from RabbitMQ and logs them as a
// running activity feed. Downstream reporting (daily summaries, dashboards)
// hangs off the same queue.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mubot/internal/config"
	"mubot/internal/queue"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to RabbitMQ
	conn, err := queue.NewConnection(cfg.GetRabbitMQURL())
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	log.Println("✅ Connected to RabbitMQ")

	// Start consumer
	consumer, err := queue.NewConsumer(conn, cfg.RabbitMQ.EventQueue, handleEvent)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}

	if err := consumer.Start(); err != nil {
		log.Fatalf("Failed to start consumer: %v", err)
	}
	log.Printf("✅ Notifier started, consuming from queue: %s", cfg.RabbitMQ.EventQueue)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down gracefully...")
	if err := consumer.Stop(); err != nil {
		log.Printf("Error stopping consumer: %v", err)
	}
	log.Println("✅ Notifier stopped")
}

// handleEvent logs one outreach event
func handleEvent(ev *queue.Event) error {
	switch ev.Type {
	case queue.EventFollowupSent:
		log.Printf("📧 Follow-up %d sent for entry %s", ev.Index, ev.EntryID)
	case queue.EventHeartbeatCompleted:
		if ev.Summary == nil {
			log.Printf("💓 Heartbeat completed")
			return nil
		}
		log.Printf("💓 Heartbeat at %s: %d replies, %d sent, %d deferred, %d cancelled, %d errors",
			ev.Summary.RanAt.Format("2006-01-02 15:04"),
			ev.Summary.RepliesDetected,
			ev.Summary.FollowupsSent,
			ev.Summary.FollowupsDeferred,
			ev.Summary.FollowupsCancelled,
			len(ev.Summary.Errors))
	default:
		log.Printf("Unknown event type: %s", ev.Type)
	}
	return nil
}
