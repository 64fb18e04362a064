package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keithlinneman/linnemanlabs-sections/internal/clock"
	"github.com/keithlinneman/linnemanlabs-sections/internal/httpmw"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// denied is set on the first rejection and cleared by eviction.
	denied bool
}

// IPLimiter keeps one token bucket per client ip and evicts idle ones.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	atCap    bool

	perSecond   rate.Limit
	burst       int
	ttl         time.Duration
	maxVisitors int
	clock       clock.Clock

	onFirstDenied func(ip string)
	onDenied      func(ip string)
	onCapacity    func()
}

type Option func(*IPLimiter)

// WithRate allows burst requests at once, refilled at perSecond.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL is how long an idle ip is remembered.
func WithTTL(d time.Duration) Option { return func(l *IPLimiter) { l.ttl = d } }

// WithMaxVisitors caps tracked ips. New ips are rejected while the map is
// full. Zero disables the cap.
func WithMaxVisitors(n int) Option { return func(l *IPLimiter) { l.maxVisitors = n } }

func WithClock(c clock.Clock) Option { return func(l *IPLimiter) { l.clock = c } }

// WithOnFirstDenied runs once per ip until the ip is evicted. Meant for
// logging.
func WithOnFirstDenied(fn func(ip string)) Option { return func(l *IPLimiter) { l.onFirstDenied = fn } }

// WithOnDenied runs on every rejection.
func WithOnDenied(fn func(ip string)) Option { return func(l *IPLimiter) { l.onDenied = fn } }

// WithOnCapacity runs each time the visitor map fills up.
func WithOnCapacity(fn func()) Option { return func(l *IPLimiter) { l.onCapacity = fn } }

// New starts the eviction loop, which stops with ctx.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   10,
		burst:       30,
		ttl:         5 * time.Minute,
		maxVisitors: 100_000,
		clock:       clock.Real(),
	}
	for _, o := range opts {
		o(l)
	}
	t := l.clock.NewTicker(l.ttl / 2)
	go l.evictLoop(ctx, t)
	return l
}

func (l *IPLimiter) allow(ip string) bool {
	now := l.clock.Now()
	var first, capacity bool

	l.mu.Lock()
	v, ok := l.visitors[ip]
	switch {
	case ok:
	case l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors:
		capacity = !l.atCap
		l.atCap = true
		l.mu.Unlock()
		if capacity && l.onCapacity != nil {
			l.onCapacity()
		}
		if l.onDenied != nil {
			l.onDenied(ip)
		}
		return false
	default:
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	allowed := v.limiter.AllowN(now, 1)
	if !allowed && !v.denied {
		v.denied = true
		first = true
	}
	l.mu.Unlock()

	if allowed {
		return true
	}
	if first && l.onFirstDenied != nil {
		l.onFirstDenied(ip)
	}
	if l.onDenied != nil {
		l.onDenied(ip)
	}
	return false
}

func (l *IPLimiter) evictLoop(ctx context.Context, t *clock.Ticker) {
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.evict(now)
		}
	}
}

func (l *IPLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
	if l.maxVisitors <= 0 || len(l.visitors) < l.maxVisitors {
		l.atCap = false
	}
}

// Len is the number of tracked ips.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Middleware answers 429 once the client ip resolved by httpmw.ClientIP is
// over its budget. The body does not reveal the limits.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(httpmw.ClientIPFromContext(r.Context())) {
			w.Header().Set("Retry-After", "30")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
