package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
)

// Presence is the owner's activity as visible through the bot.
type Presence struct {
	Online   bool
	LastSeen int64 // unix seconds, 0 when unknown
}

type update struct {
	Message *struct {
		Chat *struct {
			ID json.Number `json:"id"`
		} `json:"chat"`
		Date int64 `json:"date"`
	} `json:"message"`
}

type getUpdatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

type getChatResponse struct {
	OK bool `json:"ok"`
}

// LastActivity checks whether the owner appears recently active. It scans
// unprocessed bot updates for the newest message in the configured chat;
// when that yields nothing (e.g. a webhook consumes updates) it falls back
// to a reachability check against the chat. Missing secrets report offline.
func (c *Client) LastActivity(ctx context.Context) Presence {
	if !c.Configured() {
		return Presence{}
	}

	var updates getUpdatesResponse
	err := c.getJSON(ctx, c.method("getUpdates")+"?limit=100&timeout=0", &updates)
	if err == nil && updates.OK {
		var lastSeen int64
		for _, u := range updates.Result {
			if u.Message == nil || u.Message.Chat == nil {
				continue
			}
			if u.Message.Chat.ID.String() == c.chatID && u.Message.Date > lastSeen {
				lastSeen = u.Message.Date
			}
		}
		if lastSeen > 0 {
			return Presence{Online: true, LastSeen: lastSeen}
		}
	} else if err != nil {
		slog.Debug("getUpdates failed, falling back to getChat", "error", err)
	}

	var chat getChatResponse
	if err := c.getJSON(ctx, c.method("getChat")+"?chat_id="+url.QueryEscape(c.chatID), &chat); err != nil {
		return Presence{}
	}
	return Presence{Online: chat.OK}
}
