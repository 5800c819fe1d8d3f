package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/storefront-auth/internal/notify"
)

// Publisher is a notify.Notifier that enqueues messages on MailQueueName
// instead of talking to SMTP directly. Each Notify opens its own connection,
// so a broker outage only affects the sends that happen during it.
type Publisher struct {
	URL         string
	DialTimeout time.Duration
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, dialTimeout time.Duration) *Publisher {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	return &Publisher{URL: url, DialTimeout: dialTimeout}
}

// Notify publishes msg as a persistent MailRequestedEvent.
func (p *Publisher) Notify(ctx context.Context, msg notify.Message) error {
	body, err := json.Marshal(NewMailRequestedEvent(msg, time.Now()))
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	timeout := p.DialTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return fmt.Errorf("rabbitmq: dial: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(MailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(msg.Kind),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", MailQueueName, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}
