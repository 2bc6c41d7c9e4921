package handlers

import (
	"net/http"
	"strconv"
)

func (a *App) CreditsBalance(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	balance, err := a.Generations.Balance(r.Context(), ownerID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load balance")
		return
	}
	a.json(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (a *App) CreditsMovements(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.Generations.Movements(r.Context(), ownerID, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load movements")
		return
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		item := map[string]any{
			"id":         e.ID,
			"delta":      e.Delta,
			"reason":     e.Reason,
			"created_at": e.CreatedAt,
		}
		if e.RelatedJobID != nil {
			item["related_job_id"] = *e.RelatedJobID
		}
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{"movements": items})
}
