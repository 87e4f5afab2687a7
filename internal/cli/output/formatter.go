package output

import (
	"fmt"
	"io"
	"strings"
)

// Format represents the output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Formatter formats data for output.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format, wide bool) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{Wide: wide}
	}
}

// Printer writes results to Out and notices to Err.
type Printer struct {
	Out       io.Writer
	Err       io.Writer
	Formatter Formatter
	// Quiet suppresses success notices and navigation lines.
	Quiet bool
}

// NewPrinter creates a Printer for format.
func NewPrinter(out, errOut io.Writer, format Format, wide, quiet bool) *Printer {
	return &Printer{
		Out:       out,
		Err:       errOut,
		Formatter: NewFormatter(format, wide),
		Quiet:     quiet,
	}
}

// Print formats data to Out.
func (p *Printer) Print(data any) error {
	return p.Formatter.Format(p.Out, data)
}

// Success writes a success notice unless quiet.
func (p *Printer) Success(msg string) {
	if !p.Quiet {
		Success(p.Err, msg)
	}
}

// Failure writes an error notice. Errors are never suppressed.
func (p *Printer) Failure(msg string) {
	Failure(p.Err, msg)
}

// Navigation writes a navigation line unless quiet.
func (p *Printer) Navigation(path string) {
	if !p.Quiet {
		Navigation(p.Err, path)
	}
}

// Machine reports whether output is meant for scripts rather than people.
func (p *Printer) Machine() bool {
	switch p.Formatter.(type) {
	case *JSONFormatter, *YAMLFormatter:
		return true
	}
	return false
}
