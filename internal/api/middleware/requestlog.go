package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// quietPaths are polled by health checkers and scrapers; they are logged on their
// first success and on every failure.
var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// RequestID returns the id RequestLog stored on the context, or "".
func RequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

// RequestLog returns Echo middleware that logs requests with structured
// fields. It reuses the caller's X-Request-ID when present, else generates
// one, and echoes it in the response. Client and server errors log at WARN.
// Authenticated requests also carry the caller's user_id.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var seen sync.Map // quiet path -> logged a success

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Set(requestIDKey, reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			ctx, uid := withCallerSlot(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			path := c.Request().URL.Path
			status := c.Response().Status
			if _, quiet := quietPaths[path]; quiet && status < 400 {
				if _, logged := seen.LoadOrStore(path, true); logged {
					return err
				}
			}

			level := slog.LevelInfo
			if status >= 400 {
				level = slog.LevelWarn
			}
			attrs := []any{
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			}
			if *uid > 0 {
				attrs = append(attrs, "user_id", *uid)
			}
			log.Log(c.Request().Context(), level, "request", attrs...)

			return err
		}
	}
}
