package handlers

import (
	"encoding/json"
	"net/http"

	"genbridge/internal/infra"
	"genbridge/internal/middleware"
	"genbridge/internal/service"
)

// App carries the services every handler needs. Handlers stay thin: parse,
// call one service method, translate the result to a status code.
type App struct {
	Generations *service.GenerationService
	Reconciler  *service.Reconciler
	Bridge      *service.ConversionBridge
	Logger      infra.Logger
}

func NewApp(gen *service.GenerationService, rec *service.Reconciler, bridge *service.ConversionBridge, logger infra.Logger) *App {
	return &App{Generations: gen, Reconciler: rec, Bridge: bridge, Logger: logger}
}

func (a *App) currentOwnerID(r *http.Request) string {
	return middleware.OwnerIDFromContext(r.Context())
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{
		"error":   slug,
		"message": message,
	})
}
