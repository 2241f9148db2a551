// Package diag accumulates compile/runtime diagnostics with source
// positions: a message, a kind, a byte offset into the offending
// module's source, and an optional unwind trace of call sites.
package diag

import (
	"fmt"
	"strings"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindErr   Kind = "err"
	KindTrace Kind = "trace"
	KindNote  Kind = "note"
)

// SourcePos locates a diagnostic in a module's source bytes.
type SourcePos struct {
	Path       string
	ByteOffset int
}

// TraceEntry is one "called here" frame in a fatal error's unwind
// trace.
type TraceEntry struct {
	Function string
	Pos      SourcePos
}

// Diagnostic is a single accumulated message: an err, a trace entry, or
// a note, each carrying {message, source_bytes, source_path,
// byte_offset, kind}.
type Diagnostic struct {
	Kind        Kind
	Message     string
	Pos         SourcePos
	SourceBytes []byte
	Trace       []TraceEntry
}

// Error renders a diagnostic with a caret under the offending byte
// offset.
func (d *Diagnostic) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s\n", d.Kind, d.Message))
	if d.Pos.Path != "" {
		line, col, srcLine := locate(d.SourceBytes, d.Pos.ByteOffset)
		sb.WriteString(fmt.Sprintf("  at %s:%d:%d\n", d.Pos.Path, line, col))
		if srcLine != "" {
			sb.WriteString(fmt.Sprintf("\n  %d | %s\n", line, srcLine))
			sb.WriteString(fmt.Sprintf("  %s", strings.Repeat(" ", len(fmt.Sprintf("%d | ", line)))))
			if col > 0 {
				sb.WriteString(strings.Repeat(" ", col-1))
			}
			sb.WriteString("^\n")
		}
	}
	if len(d.Trace) > 0 {
		sb.WriteString("\nCall Stack:\n")
		for _, t := range d.Trace {
			if t.Function != "" {
				sb.WriteString(fmt.Sprintf("  at %s (%s:%d)\n", t.Function, t.Pos.Path, t.Pos.ByteOffset))
			} else {
				sb.WriteString(fmt.Sprintf("  at %s:%d\n", t.Pos.Path, t.Pos.ByteOffset))
			}
		}
	}
	return sb.String()
}

// locate turns a byte offset into a (1-based line, 1-based column,
// source line text) triple.
func locate(src []byte, offset int) (line, col int, text string) {
	if offset < 0 || offset > len(src) {
		return 0, 0, ""
	}
	line = 1
	lineStart := 0
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	col = offset - lineStart + 1
	lineEnd := len(src)
	for i := lineStart; i < len(src); i++ {
		if src[i] == '\n' {
			lineEnd = i
			break
		}
	}
	return line, col, string(src[lineStart:lineEnd])
}

// AddTrace appends one caller-frame entry, used while a fatal error
// unwinds the call-frame chain.
func (d *Diagnostic) AddTrace(function string, pos SourcePos) {
	d.Trace = append(d.Trace, TraceEntry{Function: function, Pos: pos})
}

// Reporter accumulates diagnostics across a single compile-and-run.
type Reporter struct {
	Diagnostics []*Diagnostic
}

func NewReporter() *Reporter { return &Reporter{} }

func (r *Reporter) Report(d *Diagnostic) { r.Diagnostics = append(r.Diagnostics, d) }

func (r *Reporter) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Kind == KindErr {
			return true
		}
	}
	return false
}

func (r *Reporter) String() string {
	var sb strings.Builder
	for _, d := range r.Diagnostics {
		sb.WriteString(d.Error())
	}
	return sb.String()
}

// FatalError is the value the dispatch loop returns when execution hits
// an unrecoverable error. It wraps the originating
// diagnostic plus the trace accumulated while unwinding.
type FatalError struct {
	Diagnostic *Diagnostic
}

func (f *FatalError) Error() string { return f.Diagnostic.Error() }

func NewFatal(msg string, pos SourcePos, src []byte) *FatalError {
	return &FatalError{Diagnostic: &Diagnostic{
		Kind:        KindErr,
		Message:     msg,
		Pos:         pos,
		SourceBytes: src,
	}}
}
