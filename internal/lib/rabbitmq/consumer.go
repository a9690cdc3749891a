package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
)

// ErrPermanent помечает ошибку, после которой сообщение нельзя возвращать в очередь
// (например, некорректный JSON). Такие сообщения отклоняются без requeue.
var ErrPermanent = errors.New("permanent message failure")

// Handler обрабатывает тело сообщения.
type Handler func(ctx context.Context, body []byte) error

// Acknowledger — часть amqp.Delivery, нужная для подтверждения.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// ConsumerMessage запускает потребителя очереди queueName. Одновременно обрабатывается
// не больше workers сообщений. Потребитель работает, пока не отменён ctx или не закрыт канал.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, workers int, log *slog.Logger, handler Handler) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					Dispatch(ctx, d, d.Body, log, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Dispatch вызывает handler и подтверждает сообщение: Ack при успехе,
// Nack без requeue для ErrPermanent, Nack с requeue для остальных ошибок.
func Dispatch(ctx context.Context, ack Acknowledger, body []byte, log *slog.Logger, handler Handler) {
	err := handler(ctx, body)
	switch {
	case err == nil:
		if ackErr := ack.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
	case errors.Is(err, ErrPermanent):
		log.Warn("rejecting message", sl.Err(err))
		if nackErr := ack.Nack(false, false); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	default:
		log.Error("message handling failed, requeueing", sl.Err(err))
		if nackErr := ack.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	}
}
