// Package security holds the HTTP hardening middleware and the checks
// applied to caller supplied transcripts before they reach the evaluator.
package security

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/gin-gonic/gin"
)

// MaxTranscriptRunes bounds transcript length; a ten minute talk is well
// under this
const MaxTranscriptRunes = 20000

// CheckTranscript rejects text no honest transcript contains
func CheckTranscript(text string) error {
	if !utf8.ValidString(text) {
		return apperrors.NewValidationError("Transcript contains invalid UTF-8 encoding.", "transcript")
	}
	if strings.ContainsRune(text, 0) {
		return apperrors.NewValidationError("Transcript contains invalid characters.", "transcript")
	}
	if n := utf8.RuneCountInString(text); n > MaxTranscriptRunes {
		return apperrors.NewValidationError(
			fmt.Sprintf("Transcript is too long (%d characters, limit %d).", n, MaxTranscriptRunes), "transcript")
	}
	return nil
}

// RequireJSON answers 415 for bodies that declare a non-JSON content type.
// A missing Content-Type is let through and left to the JSON decoder.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		ct := c.GetHeader("Content-Type")
		if ct == "" {
			c.Next()
			return
		}

		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			appErr := apperrors.NewValidationError("Content-Type must be application/json.", "content_type")
			appErr.HTTPStatus = http.StatusUnsupportedMediaType
			apperrors.Abort(c, appErr)
			return
		}

		c.Next()
	}
}

// LimitBody caps the request body at limit bytes. A declared length over
// the cap is refused before anything is read; otherwise reads past the cap
// fail with *http.MaxBytesError, which renders as 413.
func LimitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			apperrors.Abort(c, apperrors.NewPayloadTooLargeError(limit))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
