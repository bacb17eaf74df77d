package middleware

import (
	"time"

	"FundSignal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs every request; 5xx as errors and slow ones as warnings.
func RequestLogging(log *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			latency := time.Since(start)
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", c.Path()),
				logger.String("uri", req.RequestURI),
				logger.Int("status", status),
				logger.Duration("latency_ms", latency),
			}
			switch {
			case status >= 500:
				log.Error("http request failed", fields...)
			case slow > 0 && latency >= slow:
				log.Warn("http request slow", fields...)
			default:
				log.Debug("http request", fields...)
			}
			return nil
		}
	}
}
