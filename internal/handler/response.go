package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"rivulet/internal/auth"
	"rivulet/internal/engine"
)

// errorResponse is the protocol error body: a machine-readable code
// plus a human description.
type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeEngineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrInvalid):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: err.Error()})
	case errors.Is(err, engine.ErrNotImplemented):
		return c.JSON(http.StatusNotImplemented, errorResponse{Error: "not_implemented", Description: "no adapter can satisfy this request"})
	case errors.Is(err, engine.ErrAdapter):
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "server_error", Description: err.Error()})
	case errors.Is(err, auth.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized", Description: "missing or invalid access token"})
	case errors.Is(err, auth.ErrInsufficientScope):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "insufficient_scope", Description: err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "server_error", Description: "internal error"})
	}
}

func invalidRequest(c echo.Context, description string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: description})
}
