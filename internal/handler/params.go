package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// param reads a single-valued parameter from the form body or, for GET
// requests, the query string. Microsub clients send both.
func param(c echo.Context, name string) string {
	return c.FormValue(name)
}

// multiParam reads an array parameter, accepting both the bare name
// and the bracketed form clients send for repeated values.
func multiParam(c echo.Context, name string) []string {
	values, err := c.FormParams()
	if err != nil {
		return nil
	}
	out := append([]string{}, values[name]...)
	out = append(out, values[name+"[]"]...)
	return out
}

func intParam(c echo.Context, name string) int {
	n, err := strconv.Atoi(param(c, name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
