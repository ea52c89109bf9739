package portfolio

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed portfolio.yaml
var defaultData []byte

// Default returns the embedded portfolio.
func Default() (*Portfolio, error) {
	return Parse(defaultData, FormatYAML)
}

// Format identifies an encoding of portfolio data.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported portfolio file extension %q", filepath.Ext(path))
	}
}

// Parse decodes and validates portfolio data.
func Parse(data []byte, format Format) (*Portfolio, error) {
	var p Portfolio
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode yaml portfolio: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &p); err != nil {
			return nil, fmt.Errorf("decode toml portfolio: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported portfolio format %q", format)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid portfolio: %w", err)
	}
	return &p, nil
}

// LoadFile reads a YAML or TOML portfolio from disk.
func LoadFile(path string) (*Portfolio, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portfolio file: %w", err)
	}
	return Parse(data, format)
}

// Load returns the portfolio at path, or the embedded one when path is empty.
func Load(path string) (*Portfolio, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}
