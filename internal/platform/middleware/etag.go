package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// bufferedResponseWriter holds the body until the handler returns so the
// ETag can be computed over it.
type bufferedResponseWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedResponseWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *bufferedResponseWriter) WriteHeader(code int) { w.status = code }

// ETag adds a strong ETag to successful GET responses and answers 304 when
// If-None-Match matches. Meant for static documents such as the form
// definition.
func ETag() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			res := c.Response()
			orig := res.Writer
			bw := &bufferedResponseWriter{ResponseWriter: orig, status: http.StatusOK}
			res.Writer = bw

			err := next(c)
			res.Writer = orig
			if err != nil {
				return err
			}

			// echo marks the response committed on the first WriteHeader;
			// reset it so the real status can be written.
			res.Committed = false
			res.Size = 0
			if bw.status != http.StatusOK {
				res.WriteHeader(bw.status)
				_, werr := res.Write(bw.buf.Bytes())
				return werr
			}

			etag := computeETag(bw.buf.Bytes())
			res.Header().Set("ETag", etag)
			res.Header().Set("Cache-Control", "no-cache")
			if etagMatch(c.Request().Header.Get("If-None-Match"), etag) {
				res.WriteHeader(http.StatusNotModified)
				return nil
			}
			res.WriteHeader(http.StatusOK)
			_, werr := res.Write(bw.buf.Bytes())
			return werr
		}
	}
}

func computeETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func etagMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == etag {
			return true
		}
	}
	return false
}
