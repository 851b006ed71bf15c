package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"rivulet/internal/auth"
	"rivulet/internal/logger"
)

// RequestLoggerMiddleware logs HTTP requests through the shared logger.
func RequestLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			result := "ok"
			if res.Status >= 400 {
				result = "failed"
			}
			fields := []any{
				"module", "http",
				"action", "request",
				"resource", "microsub",
				"result", result,
				"method", req.Method,
				"path", req.URL.Path,
				"status_code", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", c.RealIP(),
			}
			switch {
			case res.Status >= 500:
				logger.Error("http request", fields...)
			case res.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Debug("http request", fields...)
			}

			return nil
		}
	}
}

// AuthMiddleware resolves the bearer token to a verdict and stores it
// in the request context. Tokens arrive in the Authorization header
// or, from older clients, as an access_token parameter.
func AuthMiddleware(authorizer auth.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var token string

			header := c.Request().Header.Get("Authorization")
			if header != "" {
				parts := strings.SplitN(header, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					token = parts[1]
				}
			}
			if token == "" {
				token = c.FormValue("access_token")
			}

			verdict, err := authorizer.Verify(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error":             "unauthorized",
					"error_description": "missing or invalid access token",
				})
			}

			c.Set(auth.ContextKey, verdict)
			return next(c)
		}
	}
}
