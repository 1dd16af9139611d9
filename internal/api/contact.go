package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skylerlchan/personal-website/internal/domain"
	"github.com/skylerlchan/personal-website/internal/relay"
)

type contactRequest struct {
	Contact string `json:"contact"`
	Message string `json:"message"`
}

// HandleContact relays one contact-widget message to the owner.
//
// The widget treats this as fire-and-forget: it never surfaces errors and
// always proceeds to the scripted reply. The status codes here exist for the
// delivered-checkmark and for any other API consumer: 400 invalid message,
// 500 misconfigured or internal, 502 remote failure.
func (h *Handler) HandleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := readJSONBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		Error(w, http.StatusBadRequest, "Message is required")
		return
	}
	contact := strings.TrimSpace(req.Contact)

	err := h.deliverer.Send(r.Context(), contact, message)
	h.journal(contact, message, err == nil)

	switch {
	case err == nil:
		JSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, relay.ErrMisconfigured):
		slog.Error("Telegram relay not configured")
		Error(w, http.StatusInternalServerError, "Server misconfigured")
	case isRemoteError(err):
		slog.Error("Telegram API rejected message", "error", err)
		Error(w, http.StatusBadGateway, "Failed to send")
	default:
		slog.Error("Contact relay failed", "error", err)
		Error(w, http.StatusInternalServerError, "Internal error")
	}
}

// journal keeps the owner's fallback copy. Failures are logged, never
// surfaced; journaling must not affect the relay's status codes.
func (h *Handler) journal(contact, message string, delivered bool) {
	if h.inbox == nil {
		return
	}
	ctx, cancel := contextWithJournalTimeout()
	defer cancel()
	err := h.inbox.SaveMessage(ctx, &domain.InboundMessage{
		ID:        uuid.NewString(),
		Contact:   contact,
		Body:      message,
		Delivered: delivered,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Warn("Failed to journal contact message", "error", err)
	}
}

func isRemoteError(err error) bool {
	var remote *relay.RemoteError
	return errors.As(err, &remote)
}
