package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat selects how a subcommand renders its result.
type OutputFormat string

const (
	// FormatText is human-oriented plain text (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON, for scripting.
	FormatJSON OutputFormat = "json"
)

// Formatter renders a command result.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TextFormatter renders results as plain text. Types that implement
// fmt.Stringer control their own rendering.
type TextFormatter struct{}

func (f *TextFormatter) Format(data any) ([]byte, error) {
	return []byte(fmt.Sprintf("%v\n", data)), nil
}

func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter renders results as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}

func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// NewFormatter creates a formatter for the format. Unknown formats fall back
// to text.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}
