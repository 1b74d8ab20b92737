package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for file extensions other than .hcl, .json, .yaml and .yml.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Load reads and validates the configuration file at path. The format is chosen
// by extension: .hcl and .json are decoded as HCL, .yaml and .yml as YAML.
func Load(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("config: configuration file path is required")
	}

	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config: configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(path, src)
}

// Parse decodes src as if it were read from filename, then validates it.
func Parse(filename string, src []byte) (*File, error) {
	var f File
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl", ".json":
		if err := hclsimple.Decode(filename, src, nil, &f); err != nil {
			return nil, fmt.Errorf("config: failed to parse configuration file: %w", err)
		}
	case ".yaml", ".yml":
		if err := decodeYAML(src, &f); err != nil {
			return nil, fmt.Errorf("config: failed to parse configuration file: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filename, err)
	}
	return &f, nil
}

func decodeYAML(src []byte, out *File) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
