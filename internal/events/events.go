// Package events публикует события о подписке в RabbitMQ.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/magabrotheeeer/todo-subscription/internal/lib/rabbitmq"
)

// Type — тип события.
type Type string

const (
	// SubscriptionActivated — пользователь оплатил или продлил подписку.
	SubscriptionActivated Type = "subscription.activated"
	// SubscriptionExpired — сверка сняла подписку после окончания окна.
	SubscriptionExpired Type = "subscription.expired"
)

// SubscriptionEvent — тело события о подписке.
type SubscriptionEvent struct {
	EventID          string     `json:"event_id"`
	Type             Type       `json:"type"`
	UserID           string     `json:"user_id"`
	SubscriptionEnds *time.Time `json:"subscription_ends,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// NewSubscriptionEvent создаёт событие с новым идентификатором.
func NewSubscriptionEvent(t Type, userID string, ends *time.Time, now time.Time) SubscriptionEvent {
	return SubscriptionEvent{
		EventID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Type:             t,
		UserID:           userID,
		SubscriptionEnds: ends,
		OccurredAt:       now,
	}
}

// Publisher отправляет события подписки.
type Publisher interface {
	PublishSubscription(ctx context.Context, e SubscriptionEvent) error
}

// AMQPPublisher публикует события в обменник RabbitMQ.
type AMQPPublisher struct {
	ch         rabbitmq.Channel
	exchange   string
	routingKey string
}

// NewAMQPPublisher создаёт публикатора поверх открытого канала.
func NewAMQPPublisher(ch rabbitmq.Channel, exchange, routingKey string) *AMQPPublisher {
	return &AMQPPublisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
	}
}

// PublishSubscription публикует событие. Идентификатор события становится MessageId.
func (p *AMQPPublisher) PublishSubscription(ctx context.Context, e SubscriptionEvent) error {
	const op = "events.PublishSubscription"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rabbitmq.PublishMessage(p.ch, p.exchange, p.routingKey, e.EventID, string(e.Type), e); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Nop ничего не публикует. Используется, когда брокер не настроен.
type Nop struct{}

// PublishSubscription ничего не делает.
func (Nop) PublishSubscription(context.Context, SubscriptionEvent) error { return nil }
