// Package store persists the server-side copy of contact messages.
package store

import (
	"context"
	"time"

	"github.com/skylerlchan/personal-website/internal/domain"
)

// Repository is the contact-message inbox. Delivery to the owner's channel
// is best-effort; the inbox keeps a copy either way.
type Repository interface {
	// SaveMessage journals one inbound contact message.
	SaveMessage(ctx context.Context, msg *domain.InboundMessage) error

	// RecentMessages returns up to limit messages, newest first.
	RecentMessages(ctx context.Context, limit int) ([]*domain.InboundMessage, error)

	// PurgeOlderThan deletes messages past the retention age and returns
	// how many were removed.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
