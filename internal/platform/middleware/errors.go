package middleware

import (
	"github.com/labstack/echo/v4"
)

// errorJSON writes the error body shared by every middleware rejection.
func errorJSON(c echo.Context, status int, msg string) error {
	body := map[string]string{"error": msg}
	if rid := RequestIDFromContext(c); rid != "" {
		body["request_id"] = rid
	}
	return c.JSON(status, body)
}
