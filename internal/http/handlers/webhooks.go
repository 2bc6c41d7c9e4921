package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"genbridge/internal/domain"
)

// callback bodies are small JSON documents; anything larger is hostile.
const maxCallbackBody = 1 << 20

// WebhookCallback receives provider callbacks. The raw body is read before
// any parsing because the HMAC covers the exact bytes on the wire. Status
// codes steer provider retry behavior: 2xx ends delivery, 5xx asks for a
// retry, 4xx marks the delivery as permanently rejected.
func (a *App) WebhookCallback(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	signature := r.Header.Get("X-Callback-Signature")

	ack, err := a.Reconciler.HandleCallback(r.Context(), providerName, body, signature)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "unknown_provider", "unknown provider")
		case errors.Is(err, domain.ErrInvalidSignature):
			a.error(w, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
		case errors.Is(err, domain.ErrMalformedPayload):
			a.error(w, http.StatusBadRequest, "malformed_payload", "callback payload not understood")
		default:
			a.error(w, http.StatusServiceUnavailable, "storage_unavailable", "try again")
		}
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"success": ack.Success,
		"message": ack.Message,
	})
}
