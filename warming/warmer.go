package warming

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/promptvault/cache"
	"github.com/promptvault/cache/internal/workerpool"
)

// Target is the cache surface Warmer writes predicted values into. Every
// concrete cache in this module (lru.SingleCache, multitier.MultiTierCache,
// adaptive.Multi) already satisfies it.
type Target interface {
	Has(key string) bool
	Set(key string, value any, ttl time.Duration) bool
}

// Report summarizes one warming cycle.
type Report struct {
	Warmed  int
	Skipped int
	Errors  int
	Err     error // aggregated via hashicorp/go-multierror, nil if every attempt succeeded
}

/*
Warmer periodically asks a PatternAnalyzer for predictions and pre-loads
any that are not already resident, through a circuit-breaker-wrapped,
singleflight-deduplicated call to the injected Loader, fanned out across a
bounded worker pool so one warming cycle never spawns unbounded goroutines
and never calls the loader while holding a cache lock.
*/
type Warmer struct {
	analyzer *PatternAnalyzer
	target   Target
	loader   cache.Loader
	ttl      time.Duration

	minConfidence atomic.Uint64 // bits of a float64, adjustable live by facade.AutoTuner
	topN          int
	loaderTimeout time.Duration

	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group
	pool    *workerpool.Pool

	clock cache.Clock

	attemptsThisWindow atomic.Uint64
	successThisWindow  atomic.Uint64
	crashes            atomic.Uint64

	interval   time.Duration
	stopChan   chan struct{}
	destroyOne sync.Once
}

// Config configures a Warmer.
type Config struct {
	MinConfidence float64
	TopN          int
	TTL           time.Duration
	LoaderTimeout time.Duration
	Workers       int
	QueueSize     int
	Clock         cache.Clock

	// Interval, if positive, makes Start arm a ticker that drives RunCycle
	// automatically every Interval until Destroy is called.
	Interval time.Duration
}

func NewWarmer(analyzer *PatternAnalyzer, target Target, loader cache.Loader, cfg Config) *Warmer {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.3
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 20
	}
	if cfg.LoaderTimeout <= 0 {
		cfg.LoaderTimeout = 2 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = cache.SystemClock{}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cache-warmer-loader",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	w := &Warmer{
		analyzer:      analyzer,
		target:        target,
		loader:        loader,
		ttl:           cfg.TTL,
		topN:          cfg.TopN,
		loaderTimeout: cfg.LoaderTimeout,
		breaker:       breaker,
		pool:          workerpool.New(cfg.Workers, cfg.QueueSize),
		clock:         cfg.Clock,
		interval:      cfg.Interval,
		stopChan:      make(chan struct{}),
	}
	w.SetMinConfidence(cfg.MinConfidence)
	return w
}

// Start arms the warming timer: every Interval (as set in Config), it runs
// one RunCycle in the background using ctx for the loader calls that cycle
// makes. A zero Interval makes Start a no-op -- the caller is expected to
// drive RunCycle manually instead. The timer is stopped for good, and never
// re-armed, once Destroy is called.
func (w *Warmer) Start(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.RunCycle(ctx)
			case <-w.stopChan:
				return
			}
		}
	}()
}

// MinConfidence returns the current live minimum-confidence floor.
func (w *Warmer) MinConfidence() float64 {
	return math.Float64frombits(w.minConfidence.Load())
}

// SetMinConfidence adjusts the live minimum-confidence floor, clamped to
// [0.1, 0.8] per the documented auto-tune rule.
func (w *Warmer) SetMinConfidence(c float64) {
	if c < 0.1 {
		c = 0.1
	}
	if c > 0.8 {
		c = 0.8
	}
	w.minConfidence.Store(math.Float64bits(c))
}

// SuccessRate reports the fraction of warm attempts that succeeded since
// the last ResetSuccessRate, for facade.AutoTuner's warming-rate rules.
func (w *Warmer) SuccessRate() float64 {
	attempts := w.attemptsThisWindow.Load()
	if attempts == 0 {
		return 0
	}
	return float64(w.successThisWindow.Load()) / float64(attempts)
}

// Attempts reports how many warm attempts have been made since the last
// ResetSuccessRate, so a caller can distinguish "0% success" from "no
// attempts yet" before acting on SuccessRate.
func (w *Warmer) Attempts() uint64 { return w.attemptsThisWindow.Load() }

// Crashes reports how many submitted warm tasks have panicked and been
// recovered by the Warmer's own task wrapper, cumulative over the Warmer's
// lifetime.
func (w *Warmer) Crashes() uint64 { return w.crashes.Load() }

// ResetSuccessRate zeroes the success-rate window, starting a fresh one.
func (w *Warmer) ResetSuccessRate() {
	w.attemptsThisWindow.Store(0)
	w.successThisWindow.Store(0)
}

// RunCycle generates predictions and warms every candidate above
// minConfidence that is not already resident in target, fanning the
// loader calls out across the worker pool and waiting for all of them to
// finish before returning the aggregated Report.
func (w *Warmer) RunCycle(ctx context.Context) Report {
	preds := w.analyzer.GeneratePredictions(PredictionContext{Now: w.clock.Now()}, w.topN)

	type result struct {
		warmed bool
		err    error
	}
	results := make(chan result, len(preds))
	submitted := 0
	minConfidence := w.MinConfidence()

	for _, pred := range preds {
		if pred.Confidence < minConfidence || w.target.Has(pred.Key) {
			results <- result{warmed: false}
			submitted++
			continue
		}
		pred := pred
		ok := w.pool.TrySubmit(func(taskCtx context.Context) {
			var res result
			defer func() {
				if r := recover(); r != nil {
					w.crashes.Add(1)
					res = result{warmed: false, err: fmt.Errorf("%w: %v", cache.ErrWorkerCrash, r)}
				}
				results <- res
			}()
			err := w.warmOne(taskCtx, pred.Key)
			res = result{warmed: err == nil, err: err}
		})
		if !ok {
			results <- result{warmed: false, err: cache.ErrCapacityExceeded}
		}
		submitted++
	}

	var report Report
	var errs *multierror.Error
	for i := 0; i < submitted; i++ {
		r := <-results
		switch {
		case r.err != nil:
			report.Errors++
			errs = multierror.Append(errs, r.err)
			w.attemptsThisWindow.Add(1)
		case r.warmed:
			report.Warmed++
			w.attemptsThisWindow.Add(1)
			w.successThisWindow.Add(1)
		default:
			report.Skipped++
		}
	}
	if errs != nil {
		report.Err = errs.ErrorOrNil()
	}
	return report
}

// warmOne loads and stores a single key, deduplicating concurrent warm
// attempts for the same key via singleflight and bounding the loader call
// with both a circuit breaker and a per-attempt timeout.
func (w *Warmer) warmOne(ctx context.Context, key string) error {
	_, err, _ := w.group.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(ctx, w.loaderTimeout)
		defer cancel()

		value, breakerErr := w.breaker.Execute(func() (any, error) {
			return w.loader(loadCtx, key)
		})
		if breakerErr != nil {
			if loadCtx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", cache.ErrTimeout, key)
			}
			return nil, fmt.Errorf("%w: %s: %s", cache.ErrLoaderFailure, key, breakerErr)
		}
		w.target.Set(key, value, w.ttl)
		return value, nil
	})
	return err
}

// WarmNow immediately warms a single high-priority key outside the normal
// cycle, e.g. in response to a miss the caller knows is likely to repeat.
func (w *Warmer) WarmNow(ctx context.Context, key string) error {
	if w.target.Has(key) {
		return nil
	}
	return w.warmOne(ctx, key)
}

// Destroy stops the warming timer, if one was started, and releases the
// worker pool's goroutines. A cycle already in flight finishes; none is
// started after Destroy returns.
func (w *Warmer) Destroy() {
	w.destroyOne.Do(func() {
		close(w.stopChan)
		w.pool.Close()
	})
}
