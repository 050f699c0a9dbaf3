package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/krisalay/qrstore/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "qr_updates"
	ExchangeType = "topic"
)

// dialAttempts and dialBackoff cover broker containers that start after us.
var (
	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

// SetupConn handles the connection and exchange declaration.
func SetupConn(url string, logger *slog.Logger) (*amqp.Connection, *amqp.Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var conn *amqp.Connection
	var err error

	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("connect to rabbitmq failed", "attempt", i+1, "err", err)
		time.Sleep(dialBackoff)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	return conn, ch, nil
}

// RoutingKey is qr.<id>.updated, so consumers can bind to one QR code or all.
func RoutingKey(id uint64) string {
	return fmt.Sprintf("qr.%d.updated", id)
}

type publisher struct {
	ch *amqp.Channel
}

// NewPublisher creates a Sink that publishes updates to the qr_updates exchange.
func NewPublisher(ch *amqp.Channel) types.Sink {
	return &publisher{ch: ch}
}

func (p *publisher) Publish(ctx context.Context, u types.Update) error {
	body, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("could not marshal update: %w", err)
	}

	return p.ch.PublishWithContext(ctx,
		ExchangeName,     // exchange
		RoutingKey(u.ID), // routing key
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   u.EventID,
			Timestamp:   u.WrittenAt,
			Body:        body,
		},
	)
}
