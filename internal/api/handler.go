// Package api provides HTTP handlers for the portfolio site's API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skylerlchan/personal-website/internal/cache"
	"github.com/skylerlchan/personal-website/internal/profile"
	"github.com/skylerlchan/personal-website/internal/relay"
	"github.com/skylerlchan/personal-website/internal/store"
)

// Deliverer relays a contact message to the owner's channel.
type Deliverer interface {
	Send(ctx context.Context, contact, message string) error
}

// PresenceSource reports the owner's last visible activity.
type PresenceSource interface {
	LastActivity(ctx context.Context) relay.Presence
}

// Handler serves the contact, presence, and profile endpoints.
type Handler struct {
	deliverer   Deliverer
	presence    PresenceSource
	inbox       store.Repository
	responses   cache.Cache
	aggregator  *profile.Aggregator
	presenceTTL time.Duration
	profileTTL  time.Duration
}

// NewHandler creates a Handler. inbox may be nil to disable journaling.
func NewHandler(deliverer Deliverer, presence PresenceSource, inbox store.Repository, responses cache.Cache, aggregator *profile.Aggregator, presenceTTL, profileTTL time.Duration) *Handler {
	return &Handler{
		deliverer:   deliverer,
		presence:    presence,
		inbox:       inbox,
		responses:   responses,
		aggregator:  aggregator,
		presenceTTL: presenceTTL,
		profileTTL:  profileTTL,
	}
}

// RegisterRoutes attaches the API routes to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/contact", h.HandleContact)
	r.Get("/api/telegram-status", h.HandleTelegramStatus)
	r.Get("/api/llm-context", h.HandleLLMContext)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
