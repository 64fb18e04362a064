package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/keithlinneman/linnemanlabs-sections/internal/clock"
	"github.com/keithlinneman/linnemanlabs-sections/internal/cryptoutil"
	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
)

const (
	DefaultPollInterval   = 30 * time.Second
	DefaultStaleThreshold = 30 * time.Minute

	maxBackoff = 5 * time.Minute
)

type pollResult int

const (
	pollNoChange pollResult = iota
	pollSwapped
	pollSSMError
	pollLoadError
)

// Fetcher is what the Watcher needs from a Loader.
type Fetcher interface {
	CurrentHash(ctx context.Context) (string, error)
	LoadHash(ctx context.Context, hash string) (*Snapshot, error)
}

// WatcherMetrics is implemented by the metrics package.
type WatcherMetrics interface {
	IncWatcherPolls()
	IncWatcherSwaps()
	IncWatcherError(kind string)
	ObserveCatalogLoadDuration(seconds float64)
	SetWatcherLastSuccess(unixSeconds float64)
	SetWatcherStale(stale bool)
}

type WatcherOptions struct {
	Logger       log.Logger
	Fetcher      Fetcher
	Store        *Store
	Clock        clock.Clock
	PollInterval time.Duration

	// StaleThreshold is how long SSM may fail before the catalog is
	// reported stale.
	StaleThreshold time.Duration

	// OnSwap runs on the poll goroutine after each swap. Panics are logged.
	OnSwap func(hash, version string)

	Metrics WatcherMetrics
}

// Watcher polls for a new catalog hash and swaps it into the Store.
type Watcher struct {
	fetcher  Fetcher
	store    *Store
	logger   log.Logger
	clock    clock.Clock
	interval time.Duration
	onSwap   func(hash, version string)
	metrics  WatcherMetrics

	currentHash     string
	consecutiveErrs int

	staleThreshold time.Duration
	lastSuccessAt  time.Time
	stale          bool

	polls int64
	swaps int64
}

func NewWatcher(opts WatcherOptions) *Watcher {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = DefaultStaleThreshold
	}
	w := &Watcher{
		fetcher:        opts.Fetcher,
		store:          opts.Store,
		logger:         opts.Logger,
		clock:          opts.Clock,
		interval:       opts.PollInterval,
		onSwap:         opts.OnSwap,
		metrics:        opts.Metrics,
		staleThreshold: opts.StaleThreshold,
		lastSuccessAt:  opts.Clock.Now(),
	}
	// a catalog loaded at startup is not downloaded again on the first poll
	if snap, ok := opts.Store.Get(); ok {
		w.currentHash = snap.Meta.Hash
	}
	return w
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info(ctx, "catalog watcher starting",
		"poll_interval", w.interval.String(),
		"current_hash", shortHash(w.currentHash),
	)

	wait := w.interval
	for {
		fire := make(chan struct{})
		t := w.clock.AfterFunc(wait, func() { close(fire) })
		select {
		case <-ctx.Done():
			t.Stop()
			w.logger.Info(ctx, "catalog watcher stopping", "polls", w.polls, "swaps", w.swaps)
			return ctx.Err()
		case <-fire:
		}
		wait = w.afterPoll(ctx, w.checkOnce(ctx))
	}
}

// afterPoll updates backoff and staleness and returns the next wait.
func (w *Watcher) afterPoll(ctx context.Context, res pollResult) time.Duration {
	if res != pollSSMError {
		if w.consecutiveErrs > 0 {
			w.logger.Info(ctx, "catalog watcher recovered", "had_consecutive_errors", w.consecutiveErrs)
			w.consecutiveErrs = 0
		}
		if w.stale {
			w.logger.Info(ctx, "catalog watcher: staleness recovered")
			w.setStale(false)
		}
		return w.interval
	}

	w.consecutiveErrs++
	backoff := w.backoff()
	w.logger.Warn(ctx, "catalog watcher backing off",
		"consecutive_errors", w.consecutiveErrs,
		"next_poll_in", backoff.String(),
	)
	if since := w.clock.Now().Sub(w.lastSuccessAt); since > w.staleThreshold && !w.stale {
		w.logger.Error(ctx, fmt.Errorf("last successful SSM poll was %s ago", since.Truncate(time.Second)),
			"catalog watcher: catalog is stale")
		w.setStale(true)
	}
	return backoff
}

func (w *Watcher) setStale(v bool) {
	w.stale = v
	if w.metrics != nil {
		w.metrics.SetWatcherStale(v)
	}
}

func (w *Watcher) checkOnce(ctx context.Context) pollResult {
	w.polls++
	if w.metrics != nil {
		w.metrics.IncWatcherPolls()
	}

	hash, err := w.fetcher.CurrentHash(ctx)
	if err != nil {
		w.logger.Error(ctx, err, "catalog watcher: SSM poll failed")
		w.incError("ssm")
		return pollSSMError
	}
	now := w.clock.Now()
	w.lastSuccessAt = now
	if w.metrics != nil {
		w.metrics.SetWatcherLastSuccess(float64(now.Unix()))
	}

	if cryptoutil.HashEqual(hash, w.currentHash) {
		return pollNoChange
	}

	w.logger.Info(ctx, "catalog watcher: new hash",
		"old_hash", shortHash(w.currentHash),
		"new_hash", shortHash(hash),
	)

	start := w.clock.Now()
	snap, err := w.fetcher.LoadHash(ctx, hash)
	if w.metrics != nil {
		w.metrics.ObserveCatalogLoadDuration(w.clock.Now().Sub(start).Seconds())
	}
	if err != nil {
		w.logger.Error(ctx, err, "catalog watcher: load failed, keeping current catalog",
			"rejected_hash", shortHash(hash),
			"current_hash", shortHash(w.currentHash),
		)
		kind := "load"
		if IsNotFound(err) {
			kind = "not_found"
		}
		w.incError(kind)
		return pollLoadError
	}

	w.store.Set(*snap)
	w.swaps++
	old := w.currentHash
	w.currentHash = hash
	if w.metrics != nil {
		w.metrics.IncWatcherSwaps()
	}
	version := snap.Meta.Version
	w.logger.Info(ctx, "catalog swapped",
		"old_hash", shortHash(old),
		"new_hash", shortHash(hash),
		"version", version,
		"items", len(snap.Items),
	)

	if w.onSwap != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error(ctx, fmt.Errorf("OnSwap panic: %v", r), "catalog watcher: OnSwap panicked")
				}
			}()
			w.onSwap(hash, version)
		}()
	}
	return pollSwapped
}

func (w *Watcher) incError(kind string) {
	if w.metrics != nil {
		w.metrics.IncWatcherError(kind)
	}
}

// backoff doubles the interval per consecutive error, capped at maxBackoff.
func (w *Watcher) backoff() time.Duration {
	d := w.interval
	for i := 0; i < w.consecutiveErrs && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
