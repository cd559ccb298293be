package main

import (
	"errors"
	"fmt"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

func newCommandError(operation, context string, cause error, suggestion string) error {
	return &commandError{operation: operation, context: context, cause: cause, suggestion: suggestion}
}

type commandError struct {
	operation  string
	context    string
	cause      error
	suggestion string
}

func (e *commandError) Error() string {
	if e.suggestion == "" {
		return fmt.Sprintf("Failed to %s: %s\n\nError: %v", e.operation, e.context, e.cause)
	}
	return fmt.Sprintf("Failed to %s: %s\n\nError: %v\n\nSuggestion: %s", e.operation, e.context, e.cause, e.suggestion)
}

func (e *commandError) Unwrap() error { return e.cause }

// manifestSuggestion picks a hint for a manifest loading failure.
func manifestSuggestion(err error) string {
	var domainErr *domainplugin.DomainError
	if !errors.As(err, &domainErr) {
		return "Check the manifest file and try again."
	}
	switch domainErr.Code {
	case domainplugin.ErrCodeNotFound:
		return "Pass the manifest path with --manifest or create plugins.yaml in the current directory."
	case domainplugin.ErrCodeDuplicate:
		return "Give every plugin a unique id."
	case domainplugin.ErrCodeDependencyMissing:
		return "Declare every dependency as a plugin in the same manifest."
	case domainplugin.ErrCodeCycle:
		return "Remove one of the dependencies in the cycle shown above."
	case domainplugin.ErrCodeInvalid:
		return "Fix the Lua hook source shown above."
	default:
		return "Fix the manifest errors shown above and try again."
	}
}
