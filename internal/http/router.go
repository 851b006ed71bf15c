// Package http wires the protocol endpoint into an echo server.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"rivulet/internal/auth"
	"rivulet/internal/handler"
)

func NewRouter(microsubHandler *handler.MicrosubHandler, authorizer auth.Authorizer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(RequestLoggerMiddleware())

	root := e.Group("", AuthMiddleware(authorizer))
	microsubHandler.RegisterRoutes(root)

	return e
}
