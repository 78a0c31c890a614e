package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer consumes outreach events from a RabbitMQ queue
type Consumer struct {
	conn      *Connection
	queueName string
	handler   EventHandler
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// EventHandler is a function that processes one event
type EventHandler func(ev *Event) error

// NewConsumer creates a new consumer instance
func NewConsumer(conn *Connection, queueName string, handler EventHandler) (*Consumer, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	// Get channel from connection
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	// Declare queue (same settings as publisher: durable, non-auto-delete)
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

	return &Consumer{
		conn:      conn,
		queueName: queueName,
		handler:   handler,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}, nil
}

// Start starts consuming events from the queue
func (c *Consumer) Start() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	// One event at a time
	err = ch.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		defer close(c.doneChan)

		for {
			select {
			case <-c.stopChan:
				log.Println("Consumer stopping...")
				return
			case d, ok := <-msgs:
				if !ok {
					log.Println("Delivery channel closed")
					return
				}

				if err := c.processEvent(d); err != nil {
					log.Printf("Error processing event: %v", err)
					// Requeue for retry
					d.Nack(false, true)
				} else {
					d.Ack(false)
				}
			}
		}
	}()

	log.Printf("Consumer started, listening on queue: %s", c.queueName)
	return nil
}

// Stop stops consuming events gracefully
func (c *Consumer) Stop() error {
	close(c.stopChan)
	<-c.doneChan

	log.Println("Consumer stopped successfully")
	return nil
}

// processEvent decodes and handles a single delivery
func (c *Consumer) processEvent(d amqp.Delivery) error {
	var ev Event
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if err := c.handler(&ev); err != nil {
		return fmt.Errorf("handler failed: %w", err)
	}

	return nil
}
