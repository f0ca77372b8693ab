package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"bakery-orders/events"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// EmailSender is the slice of EmailService the notifier needs.
type EmailSender interface {
	SendEmail(toEmail, subject, htmlContent string) error
}

// Notifier consumes order lifecycle events and mails the bakery inbox.
// Delivery is best-effort: failures are logged, never retried, and never
// affect the operations that emitted the events.
type Notifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	emails  EmailSender
	inbox   string
	logger  *zap.Logger
}

func New(amqpURL, exchange, queue string, emails EmailSender, inbox string, logger *zap.Logger) (*Notifier, error) {
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

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(queue, "order.*", exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &Notifier{
		conn:    conn,
		channel: channel,
		queue:   queue,
		emails:  emails,
		inbox:   inbox,
		logger:  logger,
	}, nil
}

// Run consumes events until ctx is done or the channel closes.
func (n *Notifier) Run(ctx context.Context) error {
	deliveries, err := n.channel.Consume(n.queue, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			n.handle(delivery)
		}
	}
}

func (n *Notifier) handle(delivery amqp.Delivery) {
	var event events.OrderEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		n.logger.Warn("dropping malformed order event", zap.Error(err))
		return
	}

	subject, body := composeEmail(event)
	if err := n.emails.SendEmail(n.inbox, subject, body); err != nil {
		n.logger.Warn("failed to send notification email",
			zap.String("event_type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
		return
	}
	n.logger.Info("notification sent",
		zap.String("event_type", event.Type),
		zap.String("order_id", event.OrderID))
}

func composeEmail(event events.OrderEvent) (subject, body string) {
	switch event.Type {
	case events.TypeOrderCancelled:
		subject = fmt.Sprintf("Order Cancelled - %s", event.OrderID)
		body = fmt.Sprintf(
			"Order <strong>%s</strong> was cancelled by the customer.<br>Total Amount: <strong>$%.2f</strong><br>Payment Method: <strong>%s</strong>",
			event.OrderID, event.Payload.TotalAmount, event.Payload.PaymentMethod,
		)
	default:
		subject = fmt.Sprintf("New Order Received - %s", event.OrderID)
		body = fmt.Sprintf(
			"A new order <strong>%s</strong> has been placed.<br>Items: <strong>%d</strong><br>Total Amount: <strong>$%.2f</strong><br>Payment Method: <strong>%s</strong>",
			event.OrderID, event.Payload.ItemCount, event.Payload.TotalAmount, event.Payload.PaymentMethod,
		)
	}
	return subject, body
}

func (n *Notifier) Close() {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
