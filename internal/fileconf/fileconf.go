// Package fileconf decodes the YAML/JSON registry files (profiles, publishers).
package fileconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPath is returned when no file path was configured.
var ErrEmptyPath = errors.New("file path is empty")

type decoder func([]byte, any) error

var decoders = map[string]decoder{
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
	".json": json.Unmarshal,
}

// Load reads path and decodes it into out. The extension picks the format; files
// without a known extension are tried as YAML and then JSON. what names the file in
// errors ("profiles", "publishers").
func Load(path, what string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%s %w", what, ErrEmptyPath)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", what, err)
	}
	return Decode(raw, filepath.Ext(path), what, out)
}

// Decode decodes raw using the format implied by ext.
func Decode(raw []byte, ext, what string, out any) error {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if fn, ok := decoders[ext]; ok {
		if err := fn(raw, out); err != nil {
			return fmt.Errorf("decode %s file: %w", what, err)
		}
		return nil
	}

	if err := yaml.Unmarshal(raw, out); err == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err == nil {
		return nil
	}
	return fmt.Errorf("%s file format not recognized (expected YAML or JSON)", what)
}

// Write encodes v as YAML at path, creating parent directories.
func Write(path, what string, v any) error {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", what, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s directory: %w", what, err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write %s file: %w", what, err)
	}
	return nil
}
