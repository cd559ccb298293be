package plugin

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a well-known lifecycle failure category.
type ErrorCode string

const (
	ErrCodeInvalid           ErrorCode = "INVALID_DESCRIPTOR"
	ErrCodeDuplicate         ErrorCode = "DUPLICATE_ID"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyInstalled  ErrorCode = "ALREADY_INSTALLED"
	ErrCodeNotInstalled      ErrorCode = "NOT_INSTALLED"
	ErrCodeAlreadyEnabled    ErrorCode = "ALREADY_ENABLED"
	ErrCodeAlreadyDisabled   ErrorCode = "ALREADY_DISABLED"
	ErrCodeNotEnabled        ErrorCode = "NOT_ENABLED"
	ErrCodeDependencyMissing ErrorCode = "DEPENDENCY_MISSING"
	ErrCodeCycle             ErrorCode = "CIRCULAR_DEPENDENCY"
	ErrCodeHookFailed        ErrorCode = "HOOK_FAILED"
	ErrCodeBusy              ErrorCode = "BUSY"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeCancelled         ErrorCode = "CANCELLED"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrDuplicate         = &DomainError{Code: ErrCodeDuplicate}
	ErrNotFound          = &DomainError{Code: ErrCodeNotFound}
	ErrAlreadyInstalled  = &DomainError{Code: ErrCodeAlreadyInstalled}
	ErrNotInstalled      = &DomainError{Code: ErrCodeNotInstalled}
	ErrAlreadyEnabled    = &DomainError{Code: ErrCodeAlreadyEnabled}
	ErrAlreadyDisabled   = &DomainError{Code: ErrCodeAlreadyDisabled}
	ErrNotEnabled        = &DomainError{Code: ErrCodeNotEnabled}
	ErrDependencyMissing = &DomainError{Code: ErrCodeDependencyMissing}
	ErrHookFailed        = &DomainError{Code: ErrCodeHookFailed}
	ErrBusy              = &DomainError{Code: ErrCodeBusy}
)

// DomainError is a typed lifecycle failure enriched with contextual data.
// Registry operations report every non-fatal failure through it.
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if id, ok := e.Context["plugin_id"].(string); ok && id != "" {
		msg = fmt.Sprintf("%s [%s]", msg, id)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As usage.
func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another DomainError with the same code. A target without a
// message acts as a code-only sentinel.
func (e *DomainError) Is(target error) bool {
	var domainErr *DomainError
	if !errors.As(target, &domainErr) || e == nil {
		return false
	}
	if e.Code != domainErr.Code {
		return false
	}
	return domainErr.Message == "" || domainErr.Message == e.Message
}

// PluginID returns the plugin identifier recorded in the error context.
func (e *DomainError) PluginID() string {
	if e == nil {
		return ""
	}
	id, _ := e.Context["plugin_id"].(string)
	return id
}

// DependencyID returns the unmet dependency for ErrCodeDependencyMissing errors.
func (e *DomainError) DependencyID() string {
	if e == nil {
		return ""
	}
	id, _ := e.Context["dependency"].(string)
	return id
}

// WithContext clones the error with additional contextual metadata.
func (e *DomainError) WithContext(ctx map[string]interface{}) *DomainError {
	if e == nil {
		return nil
	}
	merged := make(map[string]interface{}, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Context: merged,
	}
}

// NewError constructs a DomainError scoped to a plugin id.
func NewError(code ErrorCode, id, message string, cause error) *DomainError {
	ctx := map[string]interface{}{}
	if id != "" {
		ctx["plugin_id"] = id
	}
	return &DomainError{Code: code, Message: message, Cause: cause, Context: ctx}
}

// NewDependencyError reports the first unmet dependency of a plugin.
func NewDependencyError(id, dependency string) *DomainError {
	return NewError(ErrCodeDependencyMissing, id, "dependency not installed", nil).
		WithContext(map[string]interface{}{"dependency": dependency})
}

// CodeOf extracts the ErrorCode carried by err, or "" when err is not a DomainError.
func CodeOf(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsRejection reports whether err is a non-fatal "already in that state" rejection
// produced by repeating a lifecycle call.
func IsRejection(err error) bool {
	switch CodeOf(err) {
	case ErrCodeAlreadyInstalled, ErrCodeNotInstalled, ErrCodeAlreadyEnabled, ErrCodeAlreadyDisabled:
		return true
	default:
		return false
	}
}
