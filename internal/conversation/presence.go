package conversation

import (
	"context"
	"fmt"
	"time"
)

// PresenceStatus is the owner's visible availability.
type PresenceStatus string

const (
	PresenceConnecting PresenceStatus = "connecting"
	PresenceOnline     PresenceStatus = "online"
	PresenceOffline    PresenceStatus = "offline"
)

// PresenceSnapshot is the result of the single per-session presence query.
type PresenceSnapshot struct {
	Status   PresenceStatus `json:"status"`
	LastSeen int64          `json:"lastSeen,omitempty"`
}

// PresenceQuerier reports the owner's last visible activity. A false ok
// means offline; lastSeen may be zero even when online.
type PresenceQuerier interface {
	LastActivity(ctx context.Context) (online bool, lastSeenUnix int64)
}

// ResolvePresence issues the one presence query a session performs. There is
// no polling and no reconnection; whatever comes back is final.
func ResolvePresence(ctx context.Context, q PresenceQuerier) PresenceSnapshot {
	online, lastSeen := q.LastActivity(ctx)
	if !online {
		return PresenceSnapshot{Status: PresenceOffline}
	}
	return PresenceSnapshot{Status: PresenceOnline, LastSeen: lastSeen}
}

// RelativeTime renders a unix timestamp the way the widget header shows
// last-seen activity.
func RelativeTime(now time.Time, unix int64) string {
	s := now.Unix() - unix
	switch {
	case s < 60:
		return "just now"
	case s < 3600:
		return fmt.Sprintf("%dm ago", s/60)
	case s < 86400:
		return fmt.Sprintf("%dh ago", s/3600)
	default:
		return fmt.Sprintf("%dd ago", s/86400)
	}
}
