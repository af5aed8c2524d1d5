package ratelimit

import (
	"crypto/subtle"
	"net/http"
	"time"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/gin-gonic/gin"
)

// StatusResponse describes the caller's remaining evaluation budget
type StatusResponse struct {
	IP        string         `json:"ip"`
	Limit     int            `json:"limit"`
	Remaining int            `json:"remaining"`
	Period    string         `json:"period"`
	ResetAt   int64          `json:"reset_at"`
	Limiter   map[string]any `json:"limiter"`
	Timestamp string         `json:"timestamp"`
}

// HandleRateLimitStatus reports the requesting IP's budget without
// consuming a request
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		res, err := rl.StatusIP(c.Request.Context(), ip)
		if err != nil {
			apperrors.Abort(c, apperrors.NewInternalError("rate limit status unavailable", err))
			return
		}

		c.JSON(http.StatusOK, StatusResponse{
			IP:        ip,
			Limit:     res.Limit,
			Remaining: res.Remaining,
			Period:    "1m",
			ResetAt:   res.ResetAt.Unix(),
			Limiter:   rl.GetStats(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

// RequireAdminToken rejects requests whose X-Admin-Token header does not
// match token
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid admin token"})
			return
		}
		c.Next()
	}
}

type resetRequest struct {
	IP string `json:"ip"`
}

// HandleReset clears the budget of the IP in the body, or every budget
// when the body names no IP
func (rl *RateLimiter) HandleReset() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				apperrors.Abort(c, apperrors.NewValidationError("invalid reset request", "ip"))
				return
			}
		}

		ctx := c.Request.Context()
		var err error
		if req.IP == "" {
			err = rl.InvalidateAll(ctx)
		} else {
			err = rl.InvalidateIP(ctx, req.IP)
		}
		if err != nil {
			apperrors.Abort(c, apperrors.NewInternalError("rate limit reset failed", err))
			return
		}

		scope := "all"
		if req.IP != "" {
			scope = req.IP
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "reset": scope})
	}
}
