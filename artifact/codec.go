package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/speakerbind/errors"
)

// Format selects the rendering of an artifact.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", errors.InvalidInput("format", fmt.Sprintf("unsupported format %q", s))
	}
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// Encode writes v to w in format f. JSON is indented by two spaces and
// terminated by a newline.
func Encode(w io.Writer, v any, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("artifact: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("artifact: encode json: %w", err)
		}
		return nil
	default:
		return errors.InvalidInput("format", fmt.Sprintf("unsupported format %q", f))
	}
}

// Marshal is Encode into a byte slice.
func Marshal(v any, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type header struct {
	SchemaVersion string `json:"schema_version" yaml:"schema_version"`
}

// Decode parses an envelope and rejects any schema version other than want.
func Decode[T any](data []byte, f Format, want string) (*Envelope[T], error) {
	var h header
	if err := unmarshal(data, f, &h); err != nil {
		return nil, err
	}
	if h.SchemaVersion != want {
		return nil, errors.SchemaMismatch(want, h.SchemaVersion)
	}

	var env Envelope[T]
	if err := unmarshal(data, f, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func unmarshal(data []byte, f Format, v any) error {
	var err error
	switch f {
	case FormatYAML:
		err = yaml.Unmarshal(data, v)
	case FormatJSON, "":
		err = json.Unmarshal(data, v)
	default:
		return errors.InvalidInput("format", fmt.Sprintf("unsupported format %q", f))
	}
	if err != nil {
		return errors.InvalidInput("artifact", err.Error()).WithCause(err)
	}
	return nil
}
