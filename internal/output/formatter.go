package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "yaml"}

// Formatter renders views for the terminal.
type Formatter interface {
	Format(data any) (string, error)
	FormatList(data any) (string, error)
}

// NewFormatter returns the formatter for format.
func NewFormatter(format string) (Formatter, error) {
	switch format {
	case "text":
		return NewTextFormatter(), nil
	case "json":
		return jsonFormatter, nil
	case "yaml":
		return yamlFormatter, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// Machine-readable formats render lists and single values the same way.
var (
	jsonFormatter = &encoder{name: "JSON", marshal: func(v any) ([]byte, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		return append(b, '\n'), err
	}}
	yamlFormatter = &encoder{name: "YAML", marshal: yaml.Marshal}
)

type encoder struct {
	name    string
	marshal func(any) ([]byte, error)
}

func (e *encoder) Format(data any) (string, error) {
	b, err := e.marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", e.name, err)
	}
	return string(b), nil
}

func (e *encoder) FormatList(data any) (string, error) {
	return e.Format(data)
}
