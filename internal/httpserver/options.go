package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-sections/internal/health"
	"github.com/keithlinneman/linnemanlabs-sections/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
)

type Options struct {
	Logger log.Logger
	Port   int

	// Routes mounts the site and API handlers on the router.
	Routes func(chi.Router)

	Health    health.Probe
	Readiness health.Probe

	MetricsMW   func(http.Handler) http.Handler
	RateLimitMW func(http.Handler) http.Handler
	// CatalogInfo feeds the X-Catalog-Version and X-Catalog-Hash headers.
	CatalogInfo  httpmw.CatalogInfo
	ClientIPOpts httpmw.ClientIPOptions

	// MaxBodyBytes caps request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	OnPanic      func()
}
