// Package queue contains the background consumer that listens to the
// listing.dispatched queue and appends an audit line per accepted task to
// logs/dispatch.log.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const dispatchQueueName = "listing.dispatched"

// StartDispatchConsumer connects to the broker at url, declares the
// listing.dispatched queue (durable), and starts consuming messages. Each
// message is appended to logs/dispatch.log in a single-line, human-friendly
// format. The function runs a reconnect loop with exponential backoff and
// keeps running across broker restarts; processing errors are logged and the
// offending message is rejected without requeue so the server continues
// operating.
func StartDispatchConsumer(url string) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("dispatch-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("dispatch-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("dispatch-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(dispatchQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(dispatchQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			log.Printf("dispatch-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev ListingDispatchedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "dispatch.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	mode := "single"
	if ev.Batch {
		mode = "batch"
	}

	line := fmt.Sprintf("[%s] Task dispatched | listing_id=%d | user_id=%d | config_id=%d | config=%q | task=%q | %s %s | mode=%s\n",
		ev.DispatchedAt, ev.ListingID, ev.UserID, ev.ConfigID, ev.ConfigName, ev.TaskName, ev.Method, ev.TargetURL, mode)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
