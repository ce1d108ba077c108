package security

import (
	"net/http"
	"strconv"
)

// Headers sets response headers for the pricing API.
type Headers struct {
	Enable bool
	// EnableHSTS adds Strict-Transport-Security on TLS requests.
	EnableHSTS bool
	HSTSMaxAge int
}

// Middleware attaches the configured headers to each response. Computed prices are
// point-in-time values, so responses are marked as not cacheable.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 31536000
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Cache-Control", "no-store")
		if h.EnableHSTS && r.TLS != nil {
			headers.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}
