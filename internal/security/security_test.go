package security

import (
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCheckTranscript(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		errorMsg string
	}{
		{name: "plain introduction", input: "Hello everyone, I am Ravi."},
		{name: "non-latin text", input: "नमस्ते, मेरा नाम रवि है।"},
		{name: "at the limit", input: strings.Repeat("a", MaxTranscriptRunes)},
		{name: "null byte", input: "Hello\x00there", errorMsg: "invalid characters"},
		{name: "invalid UTF-8", input: "Hello\xff\xfethere", errorMsg: "invalid UTF-8"},
		{name: "too long", input: strings.Repeat("a", MaxTranscriptRunes+1), errorMsg: "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTranscript(tt.input)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperrors.CategoryValidation, appErr.Category)
			assert.Contains(t, appErr.Message(), tt.errorMsg)
		})
	}
}

func TestHeaders(t *testing.T) {
	tests := []struct {
		name    string
		cfg     HeadersConfig
		path    string
		tls     bool
		wantCSP bool
		wantSTS bool
	}{
		{name: "api route", path: "/evaluate", wantCSP: true},
		{name: "docs route skips CSP", cfg: HeadersConfig{DocsPrefix: "/swagger/"}, path: "/swagger/index.html"},
		{name: "forced HSTS", cfg: HeadersConfig{HSTS: true}, path: "/health", wantCSP: true, wantSTS: true},
		{name: "TLS request gets HSTS", path: "/health", tls: true, wantCSP: true, wantSTS: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(Headers(tt.cfg))
			r.GET("/*any", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
			assert.Equal(t, tt.wantCSP, w.Header().Get("Content-Security-Policy") != "")
			assert.Equal(t, tt.wantSTS, w.Header().Get("Strict-Transport-Security") != "")
		})
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.POST("/evaluate", RequireJSON(), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name        string
		contentType string
		want        int
	}{
		{name: "json", contentType: "application/json", want: http.StatusOK},
		{name: "json with charset", contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "no content type", want: http.StatusOK},
		{name: "form", contentType: "application/x-www-form-urlencoded", want: http.StatusUnsupportedMediaType},
		{name: "garbage", contentType: ";;", want: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(`{}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want != http.StatusOK {
				assert.Contains(t, w.Body.String(), `"category":"validation"`)
			}
		})
	}
}

func TestLimitBody(t *testing.T) {
	r := gin.New()
	r.POST("/evaluate", LimitBody(32), func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			apperrors.Abort(c, err)
			return
		}
		c.String(http.StatusOK, "%d", len(body))
	})

	tests := []struct {
		name    string
		body    io.Reader
		chunked bool
		want    int
	}{
		{name: "under the cap", body: strings.NewReader(strings.Repeat("a", 32)), want: http.StatusOK},
		{name: "declared length over the cap", body: strings.NewReader(strings.Repeat("a", 33)), want: http.StatusRequestEntityTooLarge},
		{name: "streamed body over the cap", body: strings.NewReader(strings.Repeat("a", 4096)), chunked: true, want: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/evaluate", tt.body)
			if tt.chunked {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
