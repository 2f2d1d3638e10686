package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/meeting-lobby/internal/clock"
	"github.com/iliyamo/meeting-lobby/internal/model"
)

// Publisher publishes lobby notifications to RabbitMQ. It dials per publish:
// notifications are rare (one per new waiting participant) and a fresh
// connection sidesteps broker restarts.
type Publisher struct {
	url   string
	queue string
	clock clock.Clock
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, clk clock.Clock) *Publisher {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Publisher{url: url, queue: NotificationQueue, clock: clk}
}

// Publish sends n for roomID as a persistent JSON message. Errors are logged
// and returned; the caller decides whether the request fails.
func (p *Publisher) Publish(ctx context.Context, roomID string, n model.Notification) error {
	body, err := encodeNotification(roomID, n, p.clock.Now())
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Error().Err(err).Str("module", "queue").Msg("rabbitmq dial failed")
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Error().Err(err).Str("module", "queue").Msg("rabbitmq channel open failed")
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueue(ch, p.queue); err != nil {
		log.Error().Err(err).Str("module", "queue").Msg("rabbitmq queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.clock.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		log.Error().Err(err).Str("module", "queue").Str("room", roomID).Msg("rabbitmq publish failed")
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func encodeNotification(roomID string, n model.Notification, now time.Time) ([]byte, error) {
	body, err := json.Marshal(LobbyNotification{
		RoomID:      roomID,
		Payload:     n,
		PublishedAt: now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("encode lobby notification: %w", err)
	}
	return body, nil
}

// declareQueue makes sure the durable notification queue exists.
func declareQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}
