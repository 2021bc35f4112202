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

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Formatter formats data for output.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

// Printer writes results in one format.
type Printer struct {
	Format Format
	Out    io.Writer
}

// NewPrinter returns a printer writing to out.
func NewPrinter(format Format, out io.Writer) *Printer {
	return &Printer{Format: format, Out: out}
}

// Print writes data. In table format, table is rendered when non-nil;
// otherwise data is formatted directly.
func (p *Printer) Print(data any, table *Table) error {
	if p.Format == FormatTable && table != nil {
		return table.Render(p.Out)
	}
	return NewFormatter(p.Format).Format(p.Out, data)
}
