package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication: probes, metrics and the participant
// facing pretest endpoints.
var publicPaths = map[string]bool{
	"/health":                     true,
	"/health/db":                  true,
	"/metrics":                    true,
	"/api/v1/pretest/form":        true,
	"/api/v1/pretest/submissions": true,
}

// AuthSkipper reports whether the matched route is public.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
