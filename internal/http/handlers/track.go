package handlers

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"genbridge/internal/service"
)

// Track reports an order conversion and redirects to the destination page
// with the tracking parameters stripped, so a refresh or back-navigation
// cannot replay them. Reporting never blocks the redirect.
func (a *App) Track(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	value, _ := strconv.ParseInt(q.Get("value"), 10, 64)
	a.Bridge.Report(r.Context(), service.TrackingParams{
		OrderNo:    q.Get("order_no"),
		ValueMinor: value,
		Currency:   q.Get("currency"),
		ClientIP:   clientIP(r),
	})

	dest := q.Get("to")
	// Relative paths only; anything else is an open-redirect attempt.
	if dest == "" || !strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "//") {
		dest = "/"
	}
	q.Del("to")
	q.Del("order_no")
	q.Del("value")
	q.Del("currency")
	if encoded := q.Encode(); encoded != "" {
		dest += "?" + encoded
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if first, _, ok := strings.Cut(xf, ","); ok || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
