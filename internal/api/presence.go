package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const presenceCacheKey = "api:telegram-status"

type presenceResponse struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"lastSeen,omitempty"`
}

// HandleTelegramStatus reports whether the owner appears recently active on
// Telegram. Results are cached for a short interval; the underlying lookup
// hits the bot API.
func (h *Handler) HandleTelegramStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d", int(h.presenceTTL.Seconds())))

	if cached, ok := h.responses.Get(r.Context(), presenceCacheKey); ok {
		writeRawJSON(w, http.StatusOK, cached)
		return
	}

	p := h.presence.LastActivity(r.Context())
	resp := presenceResponse{Status: "offline"}
	if p.Online {
		resp.Status = "online"
		resp.LastSeen = p.LastSeen
	}

	body, err := json.Marshal(resp)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	h.responses.Set(r.Context(), presenceCacheKey, body, h.presenceTTL)
	writeRawJSON(w, http.StatusOK, body)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

func readJSONBody(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func contextWithJournalTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
