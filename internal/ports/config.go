package ports

import (
	"context"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

// DescriptorSource loads plugin descriptors from a manifest. Implementations
// translate infrastructure failures into domain error codes:
//   - io/fs.ErrNotExist → ErrCodeNotFound
//   - syntax or schema failures → ErrCodeValidation
//   - duplicate plugin ids → ErrCodeDuplicate
//   - unknown dependency ids → ErrCodeDependencyMissing
type DescriptorSource interface {
	// Descriptors parses and validates the manifest at path and builds
	// ready-to-register descriptors, hooks included.
	Descriptors(ctx context.Context, path string) ([]*domainplugin.Descriptor, error)

	// Validate performs the same checks as Descriptors without building hooks.
	Validate(ctx context.Context, path string) error
}

// HookCompiler turns manifest hook sources into lifecycle callbacks.
type HookCompiler interface {
	CompileHook(pluginID, hook, source string) (domainplugin.Hook, error)
	CompileErrorHook(pluginID, source string) (func(context.Context, error), error)
}
