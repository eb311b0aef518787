package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/edge-sentinel/agent/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Error codes
const (
	ErrInternalCode           = "INTERNAL_ERROR"
	ErrBadRequestCode         = "BAD_REQUEST"
	ErrNotFoundCode           = "NOT_FOUND"
	ErrServiceUnavailableCode = "SERVICE_UNAVAILABLE"
	ErrSerializationCode      = "SERIALIZATION_ERROR"
	ErrRateLimitedCode        = "RATE_LIMITED"
)

// ErrorInfo is the error payload of every failed response.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// RequestError represents errors that can occur during request handling
type RequestError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError
func NewRequestError(statusCode int, reason string, err error) *RequestError {
	return &RequestError{
		StatusCode: statusCode,
		Reason:     reason,
		Err:        err,
	}
}

// IsRequestError checks if the given error is a RequestError
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// GetErrorInfo extracts error information for the standardized response
func (e *RequestError) GetErrorInfo() *ErrorInfo {
	var details string
	if e.Err != nil {
		details = e.Err.Error()
	}
	return &ErrorInfo{
		Code:    codeFor(e.StatusCode),
		Message: e.Reason,
		Details: details,
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequestCode
	case http.StatusNotFound:
		return ErrNotFoundCode
	case http.StatusServiceUnavailable:
		return ErrServiceUnavailableCode
	case http.StatusTooManyRequests:
		return ErrRateLimitedCode
	default:
		return ErrInternalCode
	}
}

// RespondWithError writes the standardized error envelope and aborts the chain.
func RespondWithError(c *gin.Context, statusCode int, err *RequestError) {
	info := err.GetErrorInfo()
	if statusCode >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			"path", c.FullPath(),
			"code", info.Code,
			"error", err,
		)
	}
	c.AbortWithStatusJSON(statusCode, gin.H{
		"error":   info,
		"message": info.Message,
	})
}

// RespondOK writes the standardized success envelope.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"data":    data,
		"message": "Success",
	})
}
