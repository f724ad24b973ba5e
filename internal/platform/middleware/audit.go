package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/pretest/internal/platform/auth"
)

// AuditEntry records one study-staff access to participant data.
type AuditEntry struct {
	UserID      string
	UserRoles   []string
	Action      string // read, create, update, delete
	Participant string
	IPAddress   string
	UserAgent   string
	Path        string
	Method      string
	Timestamp   time.Time
	RequestID   string
	StatusCode  int
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every request on the group it is mounted on, after the handler
// has run, with the authenticated staff identity. Mount it on the admin
// group, inside the auth middleware.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			req := c.Request()
			ctx := req.Context()
			entry := AuditEntry{
				UserID:      auth.UserIDFromContext(ctx),
				UserRoles:   auth.RolesFromContext(ctx),
				Action:      httpMethodToAction(req.Method),
				Participant: c.Param("participant"),
				IPAddress:   c.RealIP(),
				UserAgent:   req.UserAgent(),
				Path:        req.URL.Path,
				Method:      req.Method,
				Timestamp:   time.Now().UTC(),
				RequestID:   RequestIDFromContext(c),
				StatusCode:  c.Response().Status,
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "staff_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("action", entry.Action).
				Str("participant", entry.Participant).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("study_data_access")

			return err
		}
	}
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
