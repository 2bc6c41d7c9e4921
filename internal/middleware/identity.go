package middleware

import (
	"context"
	"net/http"
	"strings"
)

const ownerIDKey contextKey = "owner_id"

// Identity resolves the calling owner from the X-User-ID header set by the
// edge proxy after session verification. Authentication itself lives at the
// edge; this middleware is the seam where a token verifier would sit if the
// service ran without one.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if ownerID != "" {
			r = r.WithContext(context.WithValue(r.Context(), ownerIDKey, ownerID))
		}
		next.ServeHTTP(w, r)
	})
}

// OwnerIDFromContext returns the resolved owner id, or "" for anonymous
// traffic.
func OwnerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ownerIDKey).(string); ok {
		return v
	}
	return ""
}
