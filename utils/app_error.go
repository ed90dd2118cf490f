package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error taxonomy codes. Every error crossing a service boundary
// carries one of these so handlers can map it to an HTTP status
// without inspecting message text.
const (
	CodeValidation  = "VALIDATION"
	CodeConflict    = "CONFLICT"
	CodeForbidden   = "FORBIDDEN"
	CodeNotFound    = "NOT_FOUND"
	CodeGateway     = "GATEWAY"
	CodeDiscrepancy = "DISCREPANCY"
	CodeInternal    = "INTERNAL"
)

// AppError is the uniform service-level error.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func ValidationErr(msg string) *AppError  { return &AppError{Code: CodeValidation, Message: msg} }
func ConflictErr(msg string) *AppError    { return &AppError{Code: CodeConflict, Message: msg} }
func ForbiddenErr(msg string) *AppError   { return &AppError{Code: CodeForbidden, Message: msg} }
func NotFoundErr(msg string) *AppError    { return &AppError{Code: CodeNotFound, Message: msg} }
func DiscrepancyErr(msg string) *AppError { return &AppError{Code: CodeDiscrepancy, Message: msg} }

func GatewayErr(msg string, err error) *AppError {
	return &AppError{Code: CodeGateway, Message: msg, Err: err}
}

func InternalErr(msg string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Err: err}
}

// CodeOf extracts the taxonomy code from an error chain, defaulting to INTERNAL.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// HTTPStatus maps a service error onto an HTTP status code.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeGateway:
		return http.StatusBadGateway
	case CodeDiscrepancy:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError converts a service error into the uniform JSON error
// shape. Internal details are logged, never surfaced.
func RespondError(c *gin.Context, err error) {
	code := CodeOf(err)
	msg := "An unexpected error occurred. Please try again later."
	var ae *AppError
	if errors.As(err, &ae) && code != CodeInternal {
		msg = ae.Message
	}
	if code == CodeInternal {
		GetLogger().Error("internal error", zap.Error(err))
	}
	c.JSON(HTTPStatus(err), ErrorResponse{Message: msg})
}
