package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/listing-relay/internal/queue"
)

// NewDispatchPublisher returns an EventPublisher that publishes
// ListingDispatchedEvents to the "listing.dispatched" queue on the broker at
// url. The publisher attempts to be robust and to never panic; any error is
// logged and returned so the caller can choose to ignore it. Messages are
// marked as persistent.
func NewDispatchPublisher(url string) EventPublisher {
	return func(ctx context.Context, event q.ListingDispatchedEvent) error {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("rabbitmq: dial failed: %v", err)
			return err
		}
		defer func() { _ = conn.Close() }()

		ch, err := conn.Channel()
		if err != nil {
			log.Printf("rabbitmq: channel open failed: %v", err)
			return err
		}
		defer func() { _ = ch.Close() }()

		// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
		if _, err := ch.QueueDeclare(
			"listing.dispatched", // name
			true,                 // durable
			false,                // autoDelete
			false,                // exclusive
			false,                // noWait
			nil,                  // args
		); err != nil {
			log.Printf("rabbitmq: queue declare failed: %v", err)
			return err
		}

		body, err := json.Marshal(event)
		if err != nil {
			log.Printf("rabbitmq: marshal event failed: %v", err)
			return err
		}

		pub := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent, // store on disk
			Timestamp:    time.Now().UTC(),
			Body:         body,
		}

		if err := ch.PublishWithContext(ctx,
			"",                   // default exchange
			"listing.dispatched", // routing key = queue name
			false,                // mandatory
			false,                // immediate
			pub,
		); err != nil {
			log.Printf("rabbitmq: publish failed: %v", err)
			return err
		}

		return nil
	}
}
