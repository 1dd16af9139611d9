// Package domain holds shared value types.
package domain

import (
	"time"
)

// InboundMessage is the server-side copy of a contact-widget message.
// Delivery to Telegram is fire-and-forget; this record is the owner's
// fallback if the relay was unreachable.
type InboundMessage struct {
	ID        string
	Contact   string
	Body      string
	Delivered bool
	CreatedAt time.Time
}
