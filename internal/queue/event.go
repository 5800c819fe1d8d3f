// Package queue carries account emails over RabbitMQ: the publisher hands a
// message to the broker and the consumer delivers it through SMTP.
package queue

import (
	"time"

	"github.com/iliyamo/storefront-auth/internal/notify"
)

// MailQueueName is the durable queue holding pending account emails.
const MailQueueName = "mail.outbound"

// MailRequestedEvent is published for every account email. It contains the
// fully rendered message so the worker does not need database access.
type MailRequestedEvent struct {
	Message     notify.Message `json:"message"`
	RequestedAt string         `json:"requested_at"`
}

// NewMailRequestedEvent stamps msg with the current UTC time.
func NewMailRequestedEvent(msg notify.Message, now time.Time) MailRequestedEvent {
	return MailRequestedEvent{Message: msg, RequestedAt: now.UTC().Format(time.RFC3339)}
}
