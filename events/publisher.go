package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/streadway/amqp"
)

// Publisher emits order lifecycle events to the notification dispatcher.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange. Publishes go
// through a circuit breaker so a dead broker fails fast instead of adding
// latency to every checkout.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	breaker  *gobreaker.CircuitBreaker
}

func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "order-events",
		Timeout: 30 * time.Second,
	})

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		breaker:  breaker,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.channel.Publish(
			p.exchange,
			event.RoutingKey(),
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				MessageId:   event.ID,
				Timestamp:   event.OccurredAt,
				Body:        body,
			},
		)
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event OrderEvent) error { return nil }
func (NopPublisher) Close() error                                        { return nil }
