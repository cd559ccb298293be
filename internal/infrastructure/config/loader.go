package config

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
	apperrors "github.com/alexisbeaulieu97/dashhost/pkg/errors"
)

// ManifestLoader implements ports.DescriptorSource by reading manifest files
// from disk.
type ManifestLoader struct {
	logger   ports.Logger
	compiler ports.HookCompiler
}

// NewManifestLoader creates a loader. compiler may be nil, in which case
// hook sources are ignored.
func NewManifestLoader(logger ports.Logger, compiler ports.HookCompiler) *ManifestLoader {
	return &ManifestLoader{
		logger:   logging.OrNoOp(logger).With("component", "loader"),
		compiler: compiler,
	}
}

// Load parses and validates the manifest at path.
func (l *ManifestLoader) Load(ctx context.Context, path string) (*Manifest, error) {
	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	l.logDebug(ctx, "loading plugin manifest", map[string]interface{}{"path": path})

	manifest, err := ParseManifest(path)
	if err != nil {
		l.logError(ctx, "failed to parse manifest", err, map[string]interface{}{"path": path})
		return nil, convertError(err, path)
	}

	l.logInfo(ctx, "plugin manifest loaded", map[string]interface{}{"path": path, "plugins": len(manifest.Plugins)})
	return manifest, nil
}

// Descriptors loads the manifest and builds descriptors with compiled hooks.
func (l *ManifestLoader) Descriptors(ctx context.Context, path string) ([]*domainplugin.Descriptor, error) {
	manifest, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	descriptors, err := ToDescriptors(manifest, l.compiler)
	if err != nil {
		l.logError(ctx, "failed to build plugin descriptors", err, map[string]interface{}{"path": path})
		return nil, convertError(err, path)
	}
	return descriptors, nil
}

// Validate checks the manifest without compiling hooks.
func (l *ManifestLoader) Validate(ctx context.Context, path string) error {
	if err := contextCheck(ctx); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		l.logError(ctx, "manifest path stat failed", err, map[string]interface{}{"path": path})
		return convertError(err, path)
	}
	if info.IsDir() {
		return domainError(domainplugin.ErrCodeValidation, "manifest path is a directory", nil, map[string]interface{}{"path": path})
	}

	_, err = l.Load(ctx, path)
	return err
}

var _ ports.DescriptorSource = (*ManifestLoader)(nil)

func convertError(err error, path string) error {
	if err == nil {
		return nil
	}
	var parseErr *apperrors.ParseError
	if errors.As(err, &parseErr) {
		if errors.Is(parseErr.Err, os.ErrNotExist) {
			return domainError(domainplugin.ErrCodeNotFound, "manifest not found", parseErr.Err, map[string]interface{}{"path": path})
		}
		return domainError(domainplugin.ErrCodeValidation, "invalid manifest syntax", err, map[string]interface{}{"path": parseErr.Path, "line": parseErr.Line})
	}
	var valErr *apperrors.ValidationError
	if errors.As(err, &valErr) {
		context := map[string]interface{}{"path": path}
		if valErr.Field != "" {
			context["field"] = valErr.Field
		}
		code := domainplugin.ErrCodeValidation
		msg := strings.ToLower(valErr.Message)
		switch {
		case strings.Contains(msg, "duplicate"):
			code = domainplugin.ErrCodeDuplicate
		case strings.Contains(msg, "unknown plugin"):
			code = domainplugin.ErrCodeDependencyMissing
		case strings.Contains(msg, "dependency cycle"):
			code = domainplugin.ErrCodeCycle
		}
		return domainError(code, valErr.Message, err, context)
	}
	var pluginErr *apperrors.PluginError
	if errors.As(err, &pluginErr) {
		return domainError(domainplugin.ErrCodeInvalid, "invalid plugin hook", err, map[string]interface{}{"path": path, "plugin_id": pluginErr.Plugin})
	}
	if os.IsNotExist(err) {
		return domainError(domainplugin.ErrCodeNotFound, "manifest not found", err, map[string]interface{}{"path": path})
	}
	return domainError(domainplugin.ErrCodeInternal, "manifest load failed", err, map[string]interface{}{"path": path})
}

func contextCheck(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return domainError(domainplugin.ErrCodeCancelled, "operation cancelled", err, nil)
	}
	return nil
}

func domainError(code domainplugin.ErrorCode, message string, cause error, ctx map[string]interface{}) *domainplugin.DomainError {
	return &domainplugin.DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: ctx,
	}
}

func (l *ManifestLoader) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.logger.Debug(ctx, msg, flattenFields(fields)...)
}

func (l *ManifestLoader) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	l.logger.Info(ctx, msg, flattenFields(fields)...)
}

func (l *ManifestLoader) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	payload := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["error"] = err
	l.logger.Error(ctx, msg, flattenFields(payload)...)
}

func flattenFields(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return args
}
