// Package diagnostics accumulates errors and warnings produced while
// parsing and validating quarry schema files, and renders them with the
// offending source underlined for human-friendly reading.
package diagnostics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Span is a byte range in the schema source.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewSpan creates a span covering [start, end).
func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// Contains reports whether the position falls inside the span,
// boundaries included.
func (s Span) Contains(position int) bool {
	return position >= s.Start && position <= s.End
}

// Error is a parse or validation error tied to a source location.
type Error struct {
	span    Span
	message string
}

// NewError creates an Error with the given message and span.
func NewError(message string, span Span) Error {
	return Error{message: message, span: span}
}

// Message returns the human-readable description.
func (e Error) Message() string { return e.message }

// Span returns the source location.
func (e Error) Span() Span { return e.span }

// Warning is a non-fatal finding tied to a source location.
type Warning struct {
	span    Span
	message string
}

// NewWarning creates a Warning with the given message and span.
func NewWarning(message string, span Span) Warning {
	return Warning{message: message, span: span}
}

// Message returns the human-readable description.
func (w Warning) Message() string { return w.message }

// Span returns the source location.
func (w Warning) Span() Span { return w.span }

// Diagnostics collects errors and warnings so validation can report
// everything it finds instead of stopping at the first problem.
type Diagnostics struct {
	errors   []Error
	warnings []Warning
}

// New creates an empty collection.
func New() Diagnostics {
	return Diagnostics{}
}

// PushError adds an error.
func (d *Diagnostics) PushError(err Error) {
	d.errors = append(d.errors, err)
}

// Errorf adds a formatted error at the given span.
func (d *Diagnostics) Errorf(span Span, format string, args ...any) {
	d.PushError(NewError(fmt.Sprintf(format, args...), span))
}

// PushWarning adds a warning.
func (d *Diagnostics) PushWarning(warning Warning) {
	d.warnings = append(d.warnings, warning)
}

// Warnf adds a formatted warning at the given span.
func (d *Diagnostics) Warnf(span Span, format string, args ...any) {
	d.PushWarning(NewWarning(fmt.Sprintf(format, args...), span))
}

// Errors returns all errors in push order.
func (d *Diagnostics) Errors() []Error { return d.errors }

// Warnings returns all warnings in push order.
func (d *Diagnostics) Warnings() []Warning { return d.warnings }

// HasErrors reports whether at least one error was recorded.
func (d *Diagnostics) HasErrors() bool { return len(d.errors) > 0 }

// ToResult returns nil when the collection holds no errors.
func (d *Diagnostics) ToResult() error {
	switch n := len(d.errors); {
	case n == 0:
		return nil
	case n == 1:
		return fmt.Errorf("validation failed with 1 error")
	default:
		return fmt.Errorf("validation failed with %d errors", n)
	}
}

// ToPrettyString renders every error against the source text.
func (d *Diagnostics) ToPrettyString(fileName, source string) string {
	var buf bytes.Buffer
	for _, err := range d.errors {
		writeDiagnostic(&buf, fileName, source, err.Span(), err.Message(), errorColorer{})
	}
	return buf.String()
}

// WarningsToPrettyString renders every warning against the source text.
func (d *Diagnostics) WarningsToPrettyString(fileName, source string) string {
	var buf bytes.Buffer
	for _, warn := range d.warnings {
		writeDiagnostic(&buf, fileName, source, warn.Span(), warn.Message(), warningColorer{})
	}
	return buf.String()
}

type colorer interface {
	title() string
	primary() *color.Color
}

type errorColorer struct{}

func (errorColorer) title() string         { return "error" }
func (errorColorer) primary() *color.Color { return color.New(color.FgRed, color.Bold) }

type warningColorer struct{}

func (warningColorer) title() string         { return "warning" }
func (warningColorer) primary() *color.Color { return color.New(color.FgYellow, color.Bold) }

// writeDiagnostic renders one finding: a header, the source line with the
// offending range highlighted, and a caret line underneath.
func writeDiagnostic(w io.Writer, fileName, text string, span Span, message string, c colorer) {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	if span.Start > len(text) {
		span.Start = len(text)
	}
	if span.End > len(text) {
		span.End = len(text)
	}

	startLine := strings.Count(text[:span.Start], "\n")
	endLine := strings.Count(text[:span.End], "\n")
	lines := strings.Split(text, "\n")

	lineStart := 0
	for i := 0; i < startLine; i++ {
		lineStart += len(lines[i]) + 1
	}

	line := lines[startLine]
	startInLine := span.Start - lineStart
	endInLine := startInLine + (span.End - span.Start)
	if endInLine > len(line) {
		endInLine = len(line)
	}

	prefix := line[:startInLine]
	offending := line[startInLine:endInLine]
	suffix := line[endInLine:]

	titleColor := c.primary()
	descColor := color.New(color.Bold)
	arrowColor := color.New(color.FgCyan, color.Bold)
	pathColor := color.New(color.Underline)
	gutterColor := color.New(color.FgCyan, color.Bold)

	titleColor.Fprintf(w, "%s", c.title())
	fmt.Fprintf(w, ": ")
	descColor.Fprintf(w, "%s\n", message)

	arrowColor.Fprintf(w, "  --> ")
	pathColor.Fprintf(w, "%s:%d\n", fileName, startLine+1)

	gutterColor.Fprintf(w, "   | \n")

	gutterColor.Fprintf(w, "%2d | ", startLine+1)
	fmt.Fprintf(w, "%s", prefix)
	titleColor.Fprintf(w, "%s", offending)
	fmt.Fprintf(w, "%s\n", suffix)

	gutterColor.Fprintf(w, "   | ")
	fmt.Fprintf(w, "%s", strings.Repeat(" ", startInLine))
	if len(offending) == 0 {
		titleColor.Fprintf(w, "^ Unexpected token.\n")
	} else {
		titleColor.Fprintf(w, "%s\n", strings.Repeat("^", len(offending)))
	}

	for lineNum := startLine + 1; lineNum <= endLine && lineNum < len(lines); lineNum++ {
		gutterColor.Fprintf(w, "%2d | ", lineNum+1)
		fmt.Fprintf(w, "%s\n", lines[lineNum])
	}

	gutterColor.Fprintf(w, "   | \n")
}

// FromError creates a collection holding a single error.
func FromError(err Error) Diagnostics {
	d := New()
	d.PushError(err)
	return d
}
