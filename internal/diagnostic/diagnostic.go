// Package diagnostic renders resolution errors the way rustc does (spec.md
// §4.8), and accumulates them the way cue/errors.List accumulates cue
// errors: as values in an ordered buffer, never as a panic/exception path.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/rhdl/rhdlc/internal/source"
	"github.com/rhdl/rhdlc/internal/token"
)

// Severity is one of the three kinds the renderer supports.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "error"
	}
}

// Code labels a diagnostic with the taxonomy name from spec.md §7, so test
// harnesses can group by kind without parsing the rendered message. Render
// does not include it; the CLI prints it on a `= code:` line after each
// rendered diagnostic.
type Code string

const (
	CodeWorkingDirectory                      Code = "WorkingDirectoryError"
	CodeModuleFileNotFound                    Code = "ModuleFileNotFound"
	CodeDuplicateModuleFile                   Code = "DuplicateModuleFile"
	CodeParseError                            Code = "ParseError"
	CodeUnexpectedModFile                     Code = "UnexpectedModFile"
	CodeDirectoryArgument                     Code = "DirectoryArgument"
	CodeUnsupported                           Code = "UnsupportedError"
	CodeMultipleDefinition                    Code = "MultipleDefinitionError"
	CodeSpecialIdentNotAtStartOfPath          Code = "SpecialIdentNotAtStartOfPathError"
	CodeGlobalPathCannotHaveSpecialIdent      Code = "GlobalPathCannotHaveSpecialIdentError"
	CodeTooManySupers                         Code = "TooManySupersError"
	CodeSelfNameNotInGroup                    Code = "SelfNameNotInGroupError"
	CodeGlobAtEntry                           Code = "GlobAtEntryError"
	CodeDisambiguation                        Code = "DisambiguationError"
	CodeUnresolvedItem                        Code = "UnresolvedItemError"
	CodeItemVisibility                        Code = "ItemVisibilityError"
	CodeScopeVisibility                       Code = "ScopeVisibilityError"
	CodeNonAncestral                          Code = "NonAncestralError"
	CodeIncorrectVisibility                   Code = "IncorrectVisibilityError"
	CodeInvalidRawIdentifier                  Code = "InvalidRawIdentifierError"
)

// Hint further classifies an UnresolvedItemError / visibility error the way
// spec.md §7 describes ("ItemHint distinguishing Item, Type, Trait, ...").
type Hint int

const (
	HintNone Hint = iota
	HintItem
	HintType
	HintTrait
	HintExternalNamedScope
	HintInternalNamedChildScope
	HintInternalNamedChildOrExternalNamedScope
	HintInternalNamedRootScope
)

func (h Hint) String() string {
	switch h {
	case HintItem:
		return "Item"
	case HintType:
		return "Type"
	case HintTrait:
		return "Trait"
	case HintExternalNamedScope:
		return "ExternalNamedScope"
	case HintInternalNamedChildScope:
		return "InternalNamedChildScope"
	case HintInternalNamedChildOrExternalNamedScope:
		return "InternalNamedChildOrExternalNamedScope"
	case HintInternalNamedRootScope:
		return "InternalNamedRootScope"
	default:
		return ""
	}
}

// Ref is one reference into source: a span and the note printed under its
// caret underline.
type Ref struct {
	Span token.Span
	Note string
}

// Diagnostic is one rendered message (spec.md §4.8's input tuple).
type Diagnostic struct {
	Severity  Severity
	Code      Code
	Message   string
	File      *source.File // nil when no source is available (e.g. WorkingDirectoryError)
	Primary   Ref
	Secondary []Ref
	Hint      Hint
}

// List accumulates diagnostics in the order phases produce them (spec.md
// §7: "a phase never stops early... records and continues"), mirroring
// cue/errors.List's append-only, non-panicking accumulation style.
type List struct {
	items []*Diagnostic
}

// Add appends d to the buffer.
func (l *List) Add(d *Diagnostic) { l.items = append(l.items, d) }

// Diagnostics returns the buffer's contents in insertion order.
func (l *List) Diagnostics() []*Diagnostic { return l.items }

// HasErrors reports whether any accumulated diagnostic has Error severity;
// this drives the process exit code (spec.md §5).
func (l *List) HasErrors() bool {
	for _, d := range l.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Len is the number of accumulated diagnostics.
func (l *List) Len() int { return len(l.items) }

// Error implements the error interface by rendering every accumulated
// diagnostic, joined by blank lines — the same shape as cue/errors.List's
// Error() method.
func (l *List) Error() string {
	var b strings.Builder
	for i, d := range l.items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Render(d))
	}
	return b.String()
}

// Render formats one diagnostic as the multi-line rustc-style block
// specified in spec.md §4.8.
func Render(d *Diagnostic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", d.Severity, d.Message)

	filename := "<unknown>"
	if d.File != nil {
		filename = d.File.DisplayPath()
	}
	fmt.Fprintf(&b, "  --> %s:%d:%d\n", filename, d.Primary.Span.Start.Line, d.Primary.Span.Start.Column)

	if d.File == nil {
		return strings.TrimRight(b.String(), "\n")
	}

	var before, after []Ref
	for _, r := range d.Secondary {
		if r.Span.Start.Offset < d.Primary.Span.Start.Offset {
			before = append(before, r)
		} else {
			after = append(after, r)
		}
	}

	b.WriteString("   |\n")
	for _, r := range before {
		writeRefBlock(&b, d.File.Content, r)
	}
	writeRefBlock(&b, d.File.Content, d.Primary)
	for _, r := range after {
		writeRefBlock(&b, d.File.Content, r)
	}

	return strings.TrimRight(b.String(), "\n")
}

// writeRefBlock writes one " N | <line>\n   | <carets> <note>\n" pair,
// clipping multi-line spans to the first line's extent.
func writeRefBlock(b *strings.Builder, content string, r Ref) {
	line := sourceLine(content, r.Span.Start.Line)
	lineNumWidth := len(fmt.Sprintf("%d", r.Span.Start.Line)) + 1
	gutter := strings.Repeat(" ", lineNumWidth)

	fmt.Fprintf(b, "%*d | %s\n", lineNumWidth, r.Span.Start.Line, line)

	endCol := r.Span.End.Column
	if r.Span.End.Line != r.Span.Start.Line {
		endCol = len([]rune(line)) + 1
	}
	width := endCol - r.Span.Start.Column
	if width < 1 {
		width = 1
	}
	caretPad := ""
	if r.Span.Start.Column > 1 {
		caretPad = strings.Repeat(" ", r.Span.Start.Column-1)
	}
	carets := strings.Repeat("^", width)
	if r.Note != "" {
		fmt.Fprintf(b, "%s | %s%s %s\n", gutter, caretPad, carets, r.Note)
	} else {
		fmt.Fprintf(b, "%s | %s%s\n", gutter, caretPad, carets)
	}
}

// sourceLine returns the 1-indexed line of content, or "" past EOF.
func sourceLine(content string, line int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if line-1 >= len(lines) {
		return ""
	}
	return lines[line-1]
}
