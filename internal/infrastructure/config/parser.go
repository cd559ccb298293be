package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	apperrors "github.com/alexisbeaulieu97/dashhost/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ErrUnsupportedFormat is returned for manifest files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported manifest format")

// ParseManifest loads a manifest from disk, validates it, and returns the
// resulting model. The format is chosen by file extension.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewParseError(path, 0, err)
	}

	manifest, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	if err := ValidateManifest(manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

func decode(path string, data []byte) (*Manifest, error) {
	var manifest Manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return nil, apperrors.NewParseError(path, extractLine(err), err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &manifest); err != nil {
			return nil, apperrors.NewParseError(path, tomlLine(err), err)
		}
	default:
		return nil, apperrors.NewParseError(path, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext))
	}
	return &manifest, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}

func tomlLine(err error) int {
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, _ := decodeErr.Position()
		return row
	}
	return 0
}
