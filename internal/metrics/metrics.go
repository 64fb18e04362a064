package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/linnemanlabs-sections/internal/version"
)

// ServerMetrics owns a private registry with the HTTP, catalog, section
// and slideshow collectors. Labels are kept to bounded sets.
type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight       prometheus.Gauge
	reqTotal       *prometheus.CounterVec
	reqDur         *prometheus.HistogramVec
	respBytes      *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
	httpPanicTotal prometheus.Counter
	buildInfo      *prometheus.GaugeVec

	ratelimitDeniedTotal   prometheus.Counter
	ratelimitCapacityTotal prometheus.Counter
	profilingActive        prometheus.Gauge

	catalogSource   *prometheus.GaugeVec
	catalogLoadedTs prometheus.Gauge
	catalogInfo     *prometheus.GaugeVec
	catalogItems    prometheus.Gauge

	watcherPollsTotal    prometheus.Counter
	watcherSwapsTotal    prometheus.Counter
	watcherErrorsTotal   *prometheus.CounterVec
	catalogLoadDuration  prometheus.Histogram
	watcherLastSuccessTs prometheus.Gauge
	watcherStale         prometheus.Gauge

	renderTotal      *prometheus.CounterVec
	renderDur        *prometheus.HistogramVec
	deleteTotal      *prometheus.CounterVec
	slideshowAdvance prometheus.Counter
	slideshowSelect  prometheus.Counter
}

func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx responses by method and route",
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total recovered handler panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		ratelimitCapacityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total times the rate limiter ran out of client slots",
		}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is running (1) or not (0)",
		}),
		catalogSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalog_source_info",
			Help: "Where the active catalog came from (value is always 1)",
		}, []string{"source"}),
		catalogLoadedTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_loaded_timestamp_seconds",
			Help: "Unix time the active catalog was loaded",
		}),
		catalogInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalog_info",
			Help: "Active catalog identity (value is always 1)",
		}, []string{"version", "sha256"}),
		catalogItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_items",
			Help: "Number of items in the active catalog",
		}),
		watcherPollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_watcher_polls_total",
			Help: "Total catalog watcher poll cycles",
		}),
		watcherSwapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_watcher_swaps_total",
			Help: "Total catalog swaps",
		}),
		watcherErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_watcher_errors_total",
			Help: "Catalog watcher errors by type",
		}, []string{"type"}),
		catalogLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_load_duration_seconds",
			Help:    "Time to fetch, verify, and decode a catalog",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		watcherLastSuccessTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_watcher_last_success_timestamp_seconds",
			Help: "Unix time of the last successful poll",
		}),
		watcherStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_watcher_stale",
			Help: "Whether the catalog watcher is stale (1) or healthy (0)",
		}),
		renderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "section_renders_total",
			Help: "Section renders by layout and result",
		}, []string{"layout", "result"}),
		renderDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "section_render_duration_seconds",
			Help:    "Section render latency by layout",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"layout"}),
		deleteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "section_deletes_total",
			Help: "Delete attempts by the stage they ended in",
		}, []string{"stage"}),
		slideshowAdvance: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slideshow_advances_total",
			Help: "Total timer-driven slide advances",
		}),
		slideshowSelect: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slideshow_selects_total",
			Help: "Total manual slide selections",
		}),
	}
	reg.MustRegister(
		m.inflight, m.reqTotal, m.reqDur, m.respBytes, m.errorsTotal,
		m.httpPanicTotal, m.buildInfo,
		m.ratelimitDeniedTotal, m.ratelimitCapacityTotal, m.profilingActive,
		m.catalogSource, m.catalogLoadedTs, m.catalogInfo, m.catalogItems,
		m.watcherPollsTotal, m.watcherSwapsTotal, m.watcherErrorsTotal,
		m.catalogLoadDuration, m.watcherLastSuccessTs, m.watcherStale,
		m.renderTotal, m.renderDur, m.deleteTotal,
		m.slideshowAdvance, m.slideshowSelect,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

func (m *ServerMetrics) IncHttpPanic() { m.httpPanicTotal.Inc() }

// SetBuildInfoFromVersion is called once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":        app,
		"component":  component,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_date": vi.BuildDate,
		"go_version": vi.GoVersion,
		"vcs_dirty":  dirty,
	}).Set(1)
}

func (m *ServerMetrics) IncRateLimitDenied()   { m.ratelimitDeniedTotal.Inc() }
func (m *ServerMetrics) IncRateLimitCapacity() { m.ratelimitCapacityTotal.Inc() }

func (m *ServerMetrics) SetProfilingActive(active bool) { m.profilingActive.Set(b2f(active)) }

// SetCatalog records the identity of a newly active catalog.
func (m *ServerMetrics) SetCatalog(source, version, sha256 string, items int, loadedAt time.Time) {
	m.catalogSource.Reset()
	m.catalogSource.WithLabelValues(source).Set(1)
	m.catalogInfo.Reset()
	m.catalogInfo.WithLabelValues(version, sha256).Set(1)
	m.catalogItems.Set(float64(items))
	m.catalogLoadedTs.Set(float64(loadedAt.Unix()))
}

// catalog.WatcherMetrics

func (m *ServerMetrics) IncWatcherPolls() { m.watcherPollsTotal.Inc() }
func (m *ServerMetrics) IncWatcherSwaps() { m.watcherSwapsTotal.Inc() }
func (m *ServerMetrics) IncWatcherError(kind string) {
	m.watcherErrorsTotal.WithLabelValues(kind).Inc()
}
func (m *ServerMetrics) ObserveCatalogLoadDuration(s float64) { m.catalogLoadDuration.Observe(s) }
func (m *ServerMetrics) SetWatcherLastSuccess(unix float64)   { m.watcherLastSuccessTs.Set(unix) }
func (m *ServerMetrics) SetWatcherStale(stale bool)           { m.watcherStale.Set(b2f(stale)) }

// section.Metrics

func (m *ServerMetrics) ObserveRender(layout string, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.renderTotal.WithLabelValues(layout, result).Inc()
	m.renderDur.WithLabelValues(layout).Observe(seconds)
}

func (m *ServerMetrics) IncDelete(stage string) { m.deleteTotal.WithLabelValues(stage).Inc() }

// slideshow

func (m *ServerMetrics) IncSlideshowAdvance() { m.slideshowAdvance.Inc() }
func (m *ServerMetrics) IncSlideshowSelect()  { m.slideshowSelect.Inc() }

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
