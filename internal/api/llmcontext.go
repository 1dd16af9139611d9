package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const profileCacheKey = "api:llm-context"

// HandleLLMContext serves the aggregated profile document. This is a data
// API for external tooling: source failures surface as a 500 with the
// underlying message rather than degrading quietly.
func (h *Handler) HandleLLMContext(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=86400", int(h.profileTTL.Seconds())))

	if cached, ok := h.responses.Get(r.Context(), profileCacheKey); ok {
		writeRawJSON(w, http.StatusOK, cached)
		return
	}

	doc, err := h.aggregator.Build()
	if err != nil {
		slog.Error("Failed to build profile document", "error", err)
		JSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to load profile data",
			"message": err.Error(),
		})
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	h.responses.Set(r.Context(), profileCacheKey, body, h.profileTTL)
	writeRawJSON(w, http.StatusOK, body)
}
