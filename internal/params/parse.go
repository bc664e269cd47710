package params

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("malformed parameter document")

// ParseError reports a parameter source that could not be decoded into a mapping.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse parameters: %v", e.Err)
	}
	return fmt.Sprintf("parse parameters %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Format names an on-disk parameter syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// For mocking in tests
var osReadFile = os.ReadFile

// Parse decodes data into a Document. The root must be a mapping; an empty
// source yields an empty document.
func Parse(data []byte, format Format) (Document, error) {
	return parse("", data, format)
}

// ReadFile reads and parses the parameter file at path.
func ReadFile(path string) (Document, error) {
	data, err := osReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read parameters %s: %w", path, err)
	}
	return parse(path, data, FormatFromPath(path))
}

func parse(source string, data []byte, format Format) (Document, error) {
	switch format {
	case FormatTOML:
		var m map[string]interface{}
		if err := toml.Unmarshal(data, &m); err != nil {
			return Document{}, &ParseError{Source: source, Err: err}
		}
		return NewDocument(m), nil
	case FormatYAML, "":
		var raw interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Document{}, &ParseError{Source: source, Err: err}
		}
		if raw == nil {
			return Document{}, nil
		}
		root, ok := normalize(raw).(map[string]interface{})
		if !ok {
			return Document{}, &ParseError{Source: source, Err: fmt.Errorf("root must be a mapping, got %T", raw)}
		}
		return Document{root: root}, nil
	default:
		return Document{}, &ParseError{Source: source, Err: fmt.Errorf("unsupported format %q", format)}
	}
}
