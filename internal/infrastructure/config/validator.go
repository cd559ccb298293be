package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/alexisbeaulieu97/dashhost/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern   = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	pluginIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("plugin_id", func(fl validator.FieldLevel) bool {
			return pluginIDPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ValidateManifest performs schema and cross-plugin validation.
func ValidateManifest(manifest *Manifest) error {
	if manifest == nil {
		return apperrors.NewValidationError("manifest", "manifest is nil", nil)
	}

	if err := validatorInstance().Struct(manifest); err != nil {
		return convertValidationError(err)
	}

	index := make(map[string]int, len(manifest.Plugins))
	for i, plugin := range manifest.Plugins {
		if _, exists := index[plugin.ID]; exists {
			return apperrors.NewValidationError(fieldForPlugin(i, "id"), fmt.Sprintf("duplicate plugin id %q", plugin.ID), nil)
		}
		index[plugin.ID] = i
	}

	for i, plugin := range manifest.Plugins {
		for _, dep := range plugin.Dependencies {
			if dep == plugin.ID {
				return apperrors.NewValidationError(fieldForPlugin(i, "dependencies"), fmt.Sprintf("plugin %q depends on itself", dep), nil)
			}
			if _, ok := index[dep]; !ok {
				return apperrors.NewValidationError(fieldForPlugin(i, "dependencies"), fmt.Sprintf("references unknown plugin %q", dep), nil)
			}
		}
	}

	if cycle := detectCycle(manifest.Plugins); len(cycle) > 0 {
		return apperrors.NewValidationError("plugins", fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")), nil)
	}

	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return apperrors.NewValidationError(field, msg, err)
	}

	return apperrors.NewValidationError("manifest", err.Error(), err)
}

// yamlishFieldName renders Manifest.Plugins[0].ID as plugins[0].id.
func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, snakeCase(part))
	}
	return strings.Join(lowered, ".")
}

func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fieldForPlugin(index int, field string) string {
	return fmt.Sprintf("plugins[%d].%s", index, field)
}
