package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory classifies an error for logging, retry and HTTP mapping
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryNetwork       ErrorCategory = "network"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryRateLimit     ErrorCategory = "rate_limit"
	CategoryInternal      ErrorCategory = "internal"
	CategoryExternalAPI   ErrorCategory = "external_api"
	CategoryConfiguration ErrorCategory = "configuration"
)

// AppError wraps an errbuilder error with the category and HTTP status the
// shells need
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
	RequestID  string        `json:"request_id,omitempty"`
	StackTrace string        `json:"stack_trace,omitempty"`
}

// Error renders "[CODE] message"
func (e *AppError) Error() string {
	codeStr := "UNKNOWN_ERROR"
	switch e.ErrBuilder.ErrCode() {
	case errbuilder.CodeInvalidArgument:
		codeStr = "VALIDATION_ERROR"
	case errbuilder.CodeUnavailable:
		codeStr = "UNAVAILABLE"
	case errbuilder.CodeDeadlineExceeded:
		codeStr = "TIMEOUT_ERROR"
	case errbuilder.CodeResourceExhausted:
		codeStr = "RATE_LIMIT_EXCEEDED"
	case errbuilder.CodeInternal:
		codeStr = "INTERNAL_ERROR"
	case errbuilder.CodeFailedPrecondition:
		codeStr = "CONFIGURATION_ERROR"
	}

	return fmt.Sprintf("[%s] %s", codeStr, e.ErrBuilder.Msg)
}

// Message returns the bare message without the code prefix
func (e *AppError) Message() string {
	return e.ErrBuilder.Msg
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from an errbuilder builder
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

func withDetail(builder *errbuilder.ErrBuilder, key, value string) *errbuilder.ErrBuilder {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set(key, errors.New(value))
	return builder.WithDetails(errbuilder.NewErrDetails(errorMap))
}

// NewValidationError creates a 400 error for bad caller input. The optional
// detail lands in the error map under "field".
func NewValidationError(message string, field ...string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if len(field) > 0 && field[0] != "" {
		builder = withDetail(builder, "field", field[0])
	}

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewNetworkError creates a network error
func NewNetworkError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryNetwork, http.StatusBadGateway)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewRateLimitError creates a 429 error
func NewRateLimitError(retryAfter time.Duration) *AppError {
	builder := withDetail(errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded"), "retry_after", retryAfter.String())

	return NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
}

// NewPayloadTooLargeError creates a 413 for a request body over limit bytes
func NewPayloadTooLargeError(limit int64) *AppError {
	builder := withDetail(errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("Request body exceeds %d bytes.", limit)), "limit", strconv.FormatInt(limit, 10))

	return NewAppError(builder, CategoryValidation, http.StatusRequestEntityTooLarge)
}

// NewExternalAPIError creates an error for a failing collaborator service
// (grammar checker, embedding service)
func NewExternalAPIError(service string, cause error) *AppError {
	builder := withDetail(errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(fmt.Sprintf("%s service error", service)), "service", service)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryExternalAPI, http.StatusBadGateway)
}

// NewInternalError creates a 500 error. The message stays in the details and
// is not echoed to clients.
func NewInternalError(message string, cause error) *AppError {
	builder := withDetail(errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error"), "internal_details", message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)

	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// NewConfigurationError creates an error for invalid rubric or service config
func NewConfigurationError(message string, cause error) *AppError {
	builder := withDetail(errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message), "config_details", message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryConfiguration, http.StatusInternalServerError)
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Response is the JSON body every failing endpoint returns
type Response struct {
	Success   bool          `json:"success"`
	Error     string        `json:"error"`
	Category  ErrorCategory `json:"category"`
	RequestID string        `json:"request_id,omitempty"`
}

// NewResponse builds the client-facing body for err
func NewResponse(err *AppError) Response {
	return Response{
		Success:   false,
		Error:     err.Message(),
		Category:  err.Category,
		RequestID: err.RequestID,
	}
}

// Abort logs err and ends the request with its status and response body
func Abort(c *gin.Context, err error) {
	appErr := ToAppError(err)
	if appErr.RequestID == "" {
		appErr.RequestID = c.GetString("request_id")
	}
	LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, NewResponse(appErr))
}

// ErrorHandler renders the last error a handler attached with c.Error
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		Abort(c, c.Errors.Last().Err)
	}
}

// RecoveryHandler turns panics into structured 500 responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", recovered),
			fmt.Errorf("%v", recovered),
		)
		appErr.StackTrace = captureStackTrace()
		Abort(c, appErr)
	})
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var ebErr *errbuilder.ErrBuilder
	if errors.As(err, &ebErr) {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return NewPayloadTooLargeError(tooLarge.Limit)
	}

	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("Request deadline exceeded", err)
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "network is unreachable") {
		return NewNetworkError("Network connection failed", err)
	}

	if strings.Contains(errMsg, "timeout") {
		return NewTimeoutError("Request timeout", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// LogError logs err at a level matching its category
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString("request_id"),
	)

	msg := err.ErrBuilder.Msg
	cause := err.ErrBuilder.Unwrap()

	switch err.Category {
	case CategoryValidation, CategoryRateLimit:
		logEntry.Warn(msg)
	case CategoryNetwork, CategoryTimeout, CategoryExternalAPI:
		logEntry.Info(msg, "cause", cause)
	default:
		logEntry.Error(msg, "cause", cause)
	}

	if err.StackTrace != "" && (gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode) {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// IsRetryableError reports whether a retry could plausibly succeed
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch ToAppError(err).Category {
	case CategoryNetwork, CategoryTimeout, CategoryExternalAPI, CategoryRateLimit:
		return true
	default:
		return false
	}
}

// WrapError prefixes err with a formatted message
func WrapError(err error, message string, args ...any) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", fmt.Sprintf(message, args...), err)
}

// SafeClose closes a resource and logs a failure instead of returning it
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}
