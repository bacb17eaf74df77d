package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-route latency and error counts. Routes are the
// registered templates (e.g. /api/signals/:code) to keep cardinality low.
func Metrics(latency *prometheus.HistogramVec, errs *prometheus.CounterVec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			if err != nil || status >= 400 {
				errs.WithLabelValues(route).Inc()
			}
			return err
		}
	}
}
