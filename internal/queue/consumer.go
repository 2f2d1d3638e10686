package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Deliverer pushes a payload to everyone connected to a room.
type Deliverer interface {
	SendData(ctx context.Context, room string, data []byte) error
}

// errPoison marks messages that can never be delivered and must not be
// requeued.
var errPoison = errors.New("undeliverable notification")

// StartNotificationConsumer consumes the notification queue and forwards
// each payload to its room through d. It reconnects with exponential
// backoff and returns only when ctx is cancelled.
func StartNotificationConsumer(ctx context.Context, url string, d Deliverer) error {
	logger := log.With().Str("module", "queue-consumer").Logger()
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, d)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn().Err(err).Msg("consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, d Deliverer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Str("module", "queue-consumer").Msg("set QoS failed")
	}
	if err := declareQueue(ch, NotificationQueue); err != nil {
		return err
	}
	msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			settle(msg, handleMessage(ctx, msg.Body, d))
		}
	}
}

// settle acks delivered messages, drops poison ones and requeues the rest
// once.
func settle(msg amqp.Delivery, err error) {
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errPoison):
		log.Error().Err(err).Str("module", "queue-consumer").Msg("dropping notification")
		_ = msg.Nack(false, false)
	default:
		log.Warn().Err(err).Str("module", "queue-consumer").Bool("redelivered", msg.Redelivered).Msg("notification delivery failed")
		_ = msg.Nack(false, !msg.Redelivered)
	}
}

func handleMessage(ctx context.Context, body []byte, d Deliverer) error {
	var ev LobbyNotification
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: unmarshal: %v", errPoison, err)
	}
	if ev.RoomID == "" || ev.Payload.Type == "" {
		return fmt.Errorf("%w: missing room or type", errPoison)
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", errPoison, err)
	}
	if err := d.SendData(ctx, ev.RoomID, payload); err != nil {
		return fmt.Errorf("send to room %s: %w", ev.RoomID, err)
	}
	log.Debug().Str("module", "queue-consumer").Str("room", ev.RoomID).Str("type", ev.Payload.Type).Msg("notification delivered")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
