package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a bundle file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from a file name; anything other than
// .yaml or .yml is JSON.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes b to w.
func Encode(w io.Writer, b *Bundle, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("encode bundle: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("encode bundle: %w", err)
		}
		return nil
	}
}

// Decode reads a bundle and validates it. Unknown fields are rejected.
func Decode(data []byte, format Format) (*Bundle, error) {
	var b Bundle
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode bundle: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode bundle: %w", err)
		}
	}

	if b.Version != FormatVersion {
		return nil, fmt.Errorf("decode bundle: unsupported version %q", b.Version)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
