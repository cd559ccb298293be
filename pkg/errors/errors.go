package errors

import (
	"fmt"
)

// ParseError represents a manifest parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HookError represents a runtime failure inside a plugin lifecycle hook.
type HookError struct {
	PluginID string
	Hook     string
	Err      error
}

// NewHookError constructs a HookError.
func NewHookError(pluginID, hook string, err error) error {
	return &HookError{PluginID: pluginID, Hook: hook, Err: err}
}

func (e *HookError) Error() string {
	if e == nil {
		return ""
	}
	if e.Hook != "" {
		return fmt.Sprintf("hook error in %s.%s: %v", e.PluginID, e.Hook, e.Err)
	}
	return fmt.Sprintf("hook error in %s: %v", e.PluginID, e.Err)
}

// Unwrap exposes the root error.
func (e *HookError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginError indicates a plugin definition that cannot be turned into a descriptor.
type PluginError struct {
	Plugin  string
	Message string
	Err     error
}

// NewPluginError constructs a PluginError for the given plugin id.
func NewPluginError(plugin string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &PluginError{Plugin: plugin, Message: message, Err: err}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	if e.Plugin != "" {
		return fmt.Sprintf("plugin error [%s]: %s", e.Plugin, e.Message)
	}
	return fmt.Sprintf("plugin error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
