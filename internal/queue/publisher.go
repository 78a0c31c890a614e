package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"mubot/internal/models"
)

// Event types published on the outreach events queue
const (
	EventFollowupSent       = "followup.sent"
	EventHeartbeatCompleted = "heartbeat.completed"
)

// Event represents an outreach lifecycle notification for downstream
// consumers (daily summaries, dashboards)
type Event struct {
	Type       string          `json:"type"`
	EntryID    string          `json:"entry_id,omitempty"`
	Index      int             `json:"index,omitempty"`
	Summary    *models.Summary `json:"summary,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher publishes outreach events to RabbitMQ
type Publisher struct {
	conn      *Connection
	queueName string
}

// NewPublisher creates a new publisher instance
func NewPublisher(conn *Connection, queueName string) (*Publisher, error) {
	// Validate conn is not nil
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}

	// Validate queueName is not empty
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	// Get channel from connection
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	// Declare queue (durable, non-auto-delete, non-exclusive)
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{
		conn:      conn,
		queueName: queueName,
	}, nil
}

// PublishFollowupSent announces a delivered follow-up
func (p *Publisher) PublishFollowupSent(entryID string, index int) error {
	return p.publish(Event{
		Type:       EventFollowupSent,
		EntryID:    entryID,
		Index:      index,
		OccurredAt: time.Now(),
	})
}

// PublishSummary announces a completed heartbeat pass
func (p *Publisher) PublishSummary(summary *models.Summary) error {
	return p.publish(Event{
		Type:       EventHeartbeatCompleted,
		Summary:    summary,
		OccurredAt: time.Now(),
	})
}

// publish marshals and publishes one event
func (p *Publisher) publish(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	err = ch.Publish(
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the publisher (no-op, connection managed externally)
func (p *Publisher) Close() error {
	return nil
}
