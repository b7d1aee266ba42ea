package security

import "net/http"

// Headers sets the baseline security headers on every response. The API
// serves JSON only, so framing and content sniffing are denied outright.
// HSTS is opt-in and only emitted on TLS requests, keeping local plain-HTTP
// development unaffected.
type Headers struct {
	HSTS bool
}

const hstsOneYear = "max-age=31536000; includeSubDomains"

func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Permissions-Policy", "geolocation=(), microphone=()")
		if h.HSTS && r.TLS != nil {
			headers.Set("Strict-Transport-Security", hstsOneYear)
		}
		next.ServeHTTP(w, r)
	})
}
