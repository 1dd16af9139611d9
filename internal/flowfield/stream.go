package flowfield

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/skylerlchan/personal-website/internal/theme"
)

// StreamHandler runs one simulator per WebSocket connection and streams its
// frames to a thin client that only draws. The client reports its viewport
// on connect (query params) and on resize (commands); theme switches arrive
// through the registry subscription.
type StreamHandler struct {
	registry      *theme.Registry
	allowedOrigin string
	isDev         bool
}

// NewStreamHandler creates a background frame-stream handler.
func NewStreamHandler(registry *theme.Registry, allowedOrigin string, isDev bool) *StreamHandler {
	return &StreamHandler{
		registry:      registry,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

type streamCommand struct {
	Type  string  `json:"type"` // "resize", "theme"
	W     float64 `json:"w,omitempty"`
	H     float64 `json:"h,omitempty"`
	Theme string  `json:"theme,omitempty"`
}

// ServeHTTP upgrades the connection and streams frames until the client
// disconnects. The frame callback chain is the ticker loop; it stops with
// the request context.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	params := DesktopParams()
	if r.URL.Query().Get("device") == "mobile" {
		params = MobileParams()
	}
	width := parseDimension(r.URL.Query().Get("w"), 1280)
	height := parseDimension(r.URL.Query().Get("h"), 720)
	reduced := r.URL.Query().Get("reduced_motion") == "1"

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept background WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close background websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sim := NewSimulator(params, h.registry.Current(), width, height, WithReducedMotion(reduced))

	unsubscribe := h.registry.Subscribe(sim.SetPalette)
	defer unsubscribe()

	go h.readLoop(ctx, cancel, ws, sim)

	ticker := time.NewTicker(params.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Background stream ended", "ip", r.RemoteAddr)
			return
		case now := <-ticker.C:
			frame := sim.Step(now)
			if frame == nil {
				continue
			}
			data, err := json.Marshal(frame)
			if err != nil {
				slog.Error("Failed to encode frame", "error", err)
				return
			}
			if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
				slog.Debug("Frame write failed", "error", err)
				return
			}
		}
	}
}

func (h *StreamHandler) readLoop(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, sim *Simulator) {
	defer cancel()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		var cmd streamCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			slog.Debug("Dropping malformed stream command", "error", err)
			continue
		}
		switch cmd.Type {
		case "resize":
			if cmd.W > 0 && cmd.H > 0 {
				sim.Resize(cmd.W, cmd.H)
			}
		case "theme":
			if err := h.registry.SetTheme(cmd.Theme); err != nil {
				slog.Debug("Ignoring unknown theme", "theme", cmd.Theme)
			}
		}
	}
}

func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("Background WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func parseDimension(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > 16384 {
		return fallback
	}
	return v
}
