package fetcher

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"FundSignal/internal/domain/models"
	"FundSignal/pkg/cache"
	xhttp "FundSignal/pkg/http"
	"FundSignal/pkg/logger"

	"github.com/shopspring/decimal"
)

type scripted struct {
	name  string
	errs  []error
	calls int
}

func (s *scripted) Name() string { return s.name }

func (s *scripted) Fetch(_ context.Context, code string) (models.TimeSeries, error) {
	s.calls++
	if len(s.errs) >= s.calls && s.errs[s.calls-1] != nil {
		return models.TimeSeries{}, s.errs[s.calls-1]
	}
	return models.TimeSeries{
		Code: code,
		Observations: []models.Observation{
			{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), NetValue: decimal.RequireFromString("1.2345")},
		},
	}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestFallbackUsesNextSource(t *testing.T) {
	primary := &scripted{name: "trend", errs: []error{errors.New("regex miss")}}
	secondary := &scripted{name: "history"}
	f := NewFallback(logger.Nop(), primary, secondary)

	s, err := f.Fetch(context.Background(), "110020")
	if err != nil || s.Len() != 1 {
		t.Fatalf("fetch = %v, %v", s, err)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("calls = %d/%d", primary.calls, secondary.calls)
	}
}

func TestFallbackAllFail(t *testing.T) {
	a := &scripted{name: "a", errs: []error{errors.New("x")}}
	b := &scripted{name: "b", errs: []error{errors.New("y")}}
	if _, err := NewFallback(logger.Nop(), a, b).Fetch(context.Background(), "110020"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFallbackKeepsSourceErrors(t *testing.T) {
	unavailable := &xhttp.StatusError{Code: http.StatusServiceUnavailable}
	a := &scripted{name: "trend", errs: []error{unavailable}}
	b := &scripted{name: "history", errs: []error{models.ErrEmptyResult}}

	_, err := NewFallback(logger.Nop(), a, b).Fetch(context.Background(), "110020")
	if !errors.Is(err, models.ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult in chain", err)
	}
	var se *xhttp.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want StatusError 503 in chain", err)
	}
}

func TestRetryTransientThenSuccess(t *testing.T) {
	src := &scripted{name: "trend", errs: []error{
		&xhttp.StatusError{Code: http.StatusServiceUnavailable},
		errors.New("connection reset"),
	}}
	r := NewRetry(src, 3, time.Second, logger.Nop())
	r.sleep = noSleep

	if _, err := r.Fetch(context.Background(), "110020"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if src.calls != 3 {
		t.Fatalf("calls = %d, want 3", src.calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	src := &scripted{name: "trend", errs: []error{&xhttp.StatusError{Code: http.StatusNotFound}}}
	r := NewRetry(src, 3, time.Second, logger.Nop())
	r.sleep = noSleep

	if _, err := r.Fetch(context.Background(), "110020"); err == nil {
		t.Fatalf("expected error")
	}
	if src.calls != 1 {
		t.Fatalf("404 must not be retried, calls = %d", src.calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	boom := errors.New("timeout")
	src := &scripted{name: "trend", errs: []error{boom, boom, boom, boom}}
	r := NewRetry(src, 3, time.Second, logger.Nop())
	r.sleep = noSleep

	if _, err := r.Fetch(context.Background(), "110020"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if src.calls != 3 {
		t.Fatalf("calls = %d, want 3", src.calls)
	}
}

func TestBackoffGrows(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 1; attempt <= 4; attempt++ {
		d := backoff(base, attempt)
		lo := base << (attempt - 1)
		if d < lo || d >= lo+base {
			t.Fatalf("attempt %d: backoff %v outside [%v, %v)", attempt, d, lo, lo+base)
		}
	}
}

func TestCachingServesSecondCallFromCache(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	src := &scripted{name: "trend"}
	c := NewCaching(src, mc, time.Hour, func() string { return "2024-03-01" }, logger.Nop())

	first, err := c.Fetch(context.Background(), "110020")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := c.Fetch(context.Background(), "110020")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("source calls = %d, want 1", src.calls)
	}
	if !second.Observations[0].NetValue.Equal(first.Observations[0].NetValue) ||
		!second.Observations[0].Date.Equal(first.Observations[0].Date) {
		t.Fatalf("cached series differs: %+v vs %+v", second, first)
	}
}
