// Package fetcher composes SeriesFetcher implementations: ordered fallback,
// retry with backoff and a read-through cache.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"FundSignal/internal/domain/models"
	drepo "FundSignal/internal/domain/repository"
	"FundSignal/pkg/cache"
	xhttp "FundSignal/pkg/http"
	"FundSignal/pkg/logger"
)

// Named is a SeriesFetcher with a name for logs.
type Named interface {
	drepo.SeriesFetcher
	Name() string
}

// Fallback tries each source in order and returns the first usable series.
type Fallback struct {
	sources []Named
	log     *logger.Logger
}

func NewFallback(log *logger.Logger, sources ...Named) *Fallback {
	return &Fallback{sources: sources, log: log}
}

func (f *Fallback) Fetch(ctx context.Context, code string) (models.TimeSeries, error) {
	var errs []error
	for _, src := range f.sources {
		s, err := src.Fetch(ctx, code)
		if err == nil && s.Len() > 0 {
			return s, nil
		}
		if err == nil {
			err = models.ErrEmptyResult
		}
		if ctx.Err() != nil {
			return models.TimeSeries{}, ctx.Err()
		}
		f.log.Warn("source failed, trying next", logger.String("source", src.Name()), logger.String("code", code), logger.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}
	return models.TimeSeries{}, fmt.Errorf("all sources failed for %s: %w", code, errors.Join(errs...))
}

// Retry re-runs a fetch with exponential backoff and jitter. Only errors that
// look transient are retried.
type Retry struct {
	next     Named
	attempts int
	base     time.Duration
	log      *logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewRetry(next Named, attempts int, base time.Duration, log *logger.Logger) *Retry {
	if attempts < 1 {
		attempts = 1
	}
	return &Retry{next: next, attempts: attempts, base: base, log: log, sleep: sleepCtx}
}

func (r *Retry) Name() string { return r.next.Name() }

func (r *Retry) Fetch(ctx context.Context, code string) (models.TimeSeries, error) {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		var s models.TimeSeries
		s, err = r.next.Fetch(ctx, code)
		if err == nil {
			return s, nil
		}
		if attempt == r.attempts || !retryable(err) {
			break
		}
		wait := backoff(r.base, attempt)
		r.log.Warn("fetch attempt failed",
			logger.String("source", r.next.Name()),
			logger.String("code", code),
			logger.Int("attempt", attempt),
			logger.Duration("backoff_ms", wait),
			logger.Error(err),
		)
		if serr := r.sleep(ctx, wait); serr != nil {
			return models.TimeSeries{}, serr
		}
	}
	return models.TimeSeries{}, err
}

// backoff is base*2^(attempt-1) plus up to one base of jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if base > 0 {
		d += time.Duration(rand.Int63n(int64(base)))
	}
	return d
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, models.ErrEmptyResult) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Caching memoises fetched series in a cache.Service for ttl. Cache failures
// only cost a refetch.
type Caching struct {
	next  drepo.SeriesFetcher
	cache cache.Service
	ttl   time.Duration
	day   func() string
	log   *logger.Logger
}

// NewCaching keys entries by code and the current calendar day, so a new
// day always refetches.
func NewCaching(next drepo.SeriesFetcher, c cache.Service, ttl time.Duration, day func() string, log *logger.Logger) *Caching {
	return &Caching{next: next, cache: c, ttl: ttl, day: day, log: log}
}

// cachedSeries is the wire form; decimals survive JSON as strings.
type cachedSeries struct {
	Code         string               `json:"code"`
	Name         string               `json:"name"`
	Category     string               `json:"category"`
	Observations []models.Observation `json:"observations"`
}

func (c *Caching) Fetch(ctx context.Context, code string) (models.TimeSeries, error) {
	key := cache.GenerateKey("nav", code, c.day())

	var hit cachedSeries
	if err := c.cache.Get(ctx, key, &hit); err == nil && len(hit.Observations) > 0 {
		return models.TimeSeries(hit), nil
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		c.log.Warn("series cache read failed", logger.String("key", key), logger.Error(err))
	}

	s, err := c.next.Fetch(ctx, code)
	if err != nil {
		return s, err
	}
	if err := c.cache.Set(ctx, key, cachedSeries(s), c.ttl); err != nil {
		c.log.Warn("series cache write failed", logger.String("key", key), logger.Error(err))
	}
	return s, nil
}
