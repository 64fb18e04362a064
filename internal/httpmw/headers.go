package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const contentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self'; " +
	"img-src 'self' https: data:; media-src 'self' https:; font-src 'self'; base-uri 'self'; " +
	"form-action 'self'; frame-ancestors 'none'; object-src 'none'"

// SecurityHeaders sets HSTS, CSP and the usual hardening headers. Forms
// may only post back to this origin.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=(), usb=()")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

// CatalogInfo is satisfied by *catalog.Store.
type CatalogInfo interface {
	CatalogVersion() string
	CatalogHash() string
}

// CatalogHeaders reports the active catalog on every response and on the
// request span. The hash header is shortened to 12 characters.
func CatalogHeaders(info CatalogInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if info == nil {
				next.ServeHTTP(w, r)
				return
			}
			v, hash := info.CatalogVersion(), info.CatalogHash()
			span := trace.SpanFromContext(r.Context())
			if v != "" {
				w.Header().Set("X-Catalog-Version", v)
				span.SetAttributes(attribute.String("catalog.version", v))
			}
			if hash != "" {
				short := hash
				if len(short) > 12 {
					short = short[:12]
				}
				w.Header().Set("X-Catalog-Hash", short)
				span.SetAttributes(attribute.String("catalog.hash", hash))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TraceResponseHeaders echoes the trace and span id so users can quote
// them in bug reports.
func TraceResponseHeaders(traceHeader, spanHeader string) func(http.Handler) http.Handler {
	if traceHeader == "" {
		traceHeader = "X-Trace-Id"
	}
	if spanHeader == "" {
		spanHeader = "X-Span-Id"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				w.Header().Set(traceHeader, sc.TraceID().String())
				w.Header().Set(spanHeader, sc.SpanID().String())
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBody caps request bodies. Reading past the cap fails and the server
// answers 413.
func MaxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
