package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"genbridge/internal/domain"
	"genbridge/internal/providers"
	"genbridge/internal/service"
)

type generateRequest struct {
	Kind    string `json:"kind"`
	Prompt  string `json:"prompt"`
	Options struct {
		AspectRatio     string `json:"aspect_ratio"`
		DurationSeconds int    `json:"duration_seconds"`
		SourceImageURL  string `json:"source_image_url"`
		NotifyEmail     string `json:"notify_email"`
	} `json:"options"`
}

type jobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Balance int64  `json:"balance"`
}

func (a *App) GenerationsSubmit(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	job, err := a.Generations.Submit(r.Context(), service.SubmitInput{
		OwnerID: ownerID,
		Kind:    domain.JobKind(req.Kind),
		Prompt:  req.Prompt,
		Options: providers.SubmitOptions{
			AspectRatio:     req.Options.AspectRatio,
			DurationSeconds: req.Options.DurationSeconds,
			SourceImageURL:  req.Options.SourceImageURL,
		},
		NotifyEmail: req.Options.NotifyEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		case errors.Is(err, domain.ErrInsufficientBalance):
			a.error(w, http.StatusPaymentRequired, "insufficient_balance", "not enough credits")
		case errors.Is(err, domain.ErrProviderRejected):
			a.error(w, http.StatusUnprocessableEntity, "provider_rejected", "provider rejected the request")
		case errors.Is(err, domain.ErrProviderUnavailable):
			a.error(w, http.StatusServiceUnavailable, "provider_unavailable", "provider unavailable, credits refunded")
		case errors.Is(err, domain.ErrMalformedPayload):
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		default:
			a.error(w, http.StatusInternalServerError, "internal", "failed to submit generation")
		}
		return
	}
	balance, err := a.Generations.Balance(r.Context(), ownerID)
	if err != nil {
		a.Logger.Error().Err(err).Str("owner_id", ownerID).Msg("balance lookup after submit")
	}
	a.json(w, http.StatusAccepted, jobResponse{JobID: job.ID, Status: string(job.Status), Balance: balance})
}

func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Generations.GetForOwner(r.Context(), jobID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"job_id":         job.ID,
		"kind":           job.Kind,
		"status":         job.Status,
		"provider":       job.Provider,
		"result_ref":     job.ResultRef,
		"failure_reason": job.FailureReason,
		"cost":           job.Cost,
		"submitted_at":   job.SubmittedAt,
		"updated_at":     job.UpdatedAt,
	})
}
