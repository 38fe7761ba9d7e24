// Package errors defines the structured error type used across templhead.
//
// Errors carry a category (Type), a stable machine-readable Code, and an
// optional Cause. Configuration errors are fatal and surfaced to the caller
// immediately; hook errors abort the render pass that raised them but leave
// the registry intact, so the caller may simply render again.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeHook       ErrorType = "hook"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeNotInstalled     = "HEAD_NOT_INSTALLED"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeHookFailed       = "ERR_HOOK_FAILED"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeDecodeFailed     = "ERR_DECODE_FAILED"
	ErrCodeDocumentInvalid  = "ERR_DOCUMENT_INVALID"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// TemplheadError is a structured error type with context.
type TemplheadError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *TemplheadError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *TemplheadError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on type and code.
func (e *TemplheadError) Is(target error) bool {
	var t *TemplheadError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *TemplheadError) WithContext(key string, value interface{}) *TemplheadError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile adds the declaration or document file the error relates to.
func (e *TemplheadError) WithFile(filePath string) *TemplheadError {
	e.FilePath = filePath

	return e
}

// WithComponent adds component context.
func (e *TemplheadError) WithComponent(component string) *TemplheadError {
	e.Component = component

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *TemplheadError {
	return &TemplheadError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *TemplheadError {
	return &TemplheadError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewHookError wraps the error returned by a hook callback. The pass is
// aborted; rendering again is safe.
func NewHookError(stage string, cause error) *TemplheadError {
	return &TemplheadError{
		Type:        ErrorTypeHook,
		Code:        ErrCodeHookFailed,
		Message:     "hook " + stage + " failed",
		Cause:       cause,
		Context:     map[string]interface{}{"stage": stage},
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *TemplheadError {
	return &TemplheadError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *TemplheadError {
	return &TemplheadError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// ErrNotInstalled is returned when the head is used from a context it was
// never installed into.
var ErrNotInstalled = NewConfigError(
	ErrCodeNotInstalled,
	"head is not installed in this context; wrap it with head.WithHead first",
)

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var te *TemplheadError
	if errors.As(err, &te) {
		return te.Recoverable
	}

	return false
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	return isType(err, ErrorTypeConfig)
}

// IsHookError checks if an error came from a hook callback.
func IsHookError(err error) bool {
	return isType(err, ErrorTypeHook)
}

func isType(err error, typ ErrorType) bool {
	var te *TemplheadError
	if errors.As(err, &te) {
		return te.Type == typ
	}

	return false
}

// Logger is the subset of the logging interface ErrorHandler needs.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler logs errors according to their category.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err. Recoverable errors are warnings.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var te *TemplheadError
	if !errors.As(err, &te) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	fields := []interface{}{"type", te.Type, "code", te.Code}
	if te.FilePath != "" {
		fields = append(fields, "file", te.FilePath)
	}
	if te.Recoverable {
		h.logger.Warn(ctx, err, "Recoverable error occurred", fields...)
		return
	}
	h.logger.Error(ctx, err, "Error occurred", fields...)
}
