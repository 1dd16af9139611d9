package conversation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/skylerlchan/personal-website/internal/domain"
	"github.com/skylerlchan/personal-website/internal/store"
)

// WebSocketHandler hosts one Engine per chat connection. The client sends
// commands, the server pushes engine events back; nothing about the session
// outlives the connection.
type WebSocketHandler struct {
	delivery      Delivery
	presence      PresenceQuerier
	inbox         store.Repository
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a chat WebSocket handler. inbox may be nil to
// disable journaling.
func NewWebSocketHandler(delivery Delivery, presence PresenceQuerier, inbox store.Repository, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		delivery:      delivery,
		presence:      presence,
		inbox:         inbox,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsCommand is what the widget sends.
type wsCommand struct {
	Type  string `json:"type"` // "contact", "message", "edit"
	Text  string `json:"text,omitempty"`
	Index int    `json:"index,omitempty"`
}

// ServeHTTP upgrades the connection and runs the session until the client
// goes away.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept chat WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close chat websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	delivery := h.delivery
	if h.inbox != nil {
		delivery = &journaledDelivery{next: h.delivery, inbox: h.inbox}
	}

	engine := New(delivery, WithNotify(func(ev Event) {
		if err := writeJSON(ws, ev); err != nil {
			slog.Debug("Chat event write failed", "error", err)
			cancel()
		}
	}))
	defer engine.Close()

	// Static opening prompt, then one presence query per session.
	if err := writeJSON(ws, map[string]string{"type": "greeting", "text": BotGreeting}); err != nil {
		slog.Debug("Greeting write failed", "error", err)
		return
	}

	snapshot := ResolvePresence(ctx, h.presence)
	if err := writeJSON(ws, map[string]interface{}{
		"type":     "presence",
		"status":   snapshot.Status,
		"lastSeen": snapshot.LastSeen,
	}); err != nil {
		slog.Debug("Presence write failed", "error", err)
		return
	}

	h.readLoop(ctx, ws, engine)
	slog.Info("Chat session ended", "ip", r.RemoteAddr)
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, engine *Engine) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Chat WebSocket closed by client")
			} else if ctx.Err() == nil {
				slog.Warn("Chat WebSocket read error", "error", err)
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			slog.Debug("Dropping malformed chat command", "error", err)
			continue
		}

		switch cmd.Type {
		case "contact":
			engine.SubmitContact(cmd.Text)
		case "message":
			engine.SendMessage(ctx, cmd.Text)
		case "edit":
			engine.EditMessage(cmd.Index)
		case "ping":
			if err := writeJSON(ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		}
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("Chat WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func writeJSON(ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(context.Background(), websocket.MessageText, data)
}

// journaledDelivery records the server-side copy of each outbound message
// alongside the relay attempt. Journal failures never affect delivery.
type journaledDelivery struct {
	next  Delivery
	inbox store.Repository
}

func (d *journaledDelivery) Send(ctx context.Context, contact, message string) error {
	err := d.next.Send(ctx, contact, message)

	journalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	saveErr := d.inbox.SaveMessage(journalCtx, &domain.InboundMessage{
		ID:        uuid.NewString(),
		Contact:   contact,
		Body:      message,
		Delivered: err == nil,
		CreatedAt: time.Now(),
	})
	if saveErr != nil {
		slog.Warn("Failed to journal contact message", "error", saveErr)
	}
	return err
}
