package util

import (
	"fmt"
	"strings"
)

// FormatDiagnostic renders the stable error report
//
//	<file>:<line>:<column>: Error: <message>
//	<source line>
//	<caret>
//
// The source line and caret are omitted when the line is unknown.
func FormatDiagnostic(file string, line, column int, message, sourceLine string) string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s:%d:%d: Error: %s", file, line, column, message)
	if line > 0 {
		out.WriteString("\n")
		out.WriteString(sourceLine)
		out.WriteString("\n")
		out.WriteString(CaretLine(sourceLine, column))
	}
	return out.String()
}

// CaretLine returns a '^' under the given 1-based column of sourceLine. The
// padding copies the tabs of the line's prefix so the caret lines up in a
// terminal.
func CaretLine(sourceLine string, column int) string {
	var b strings.Builder
	n := 0
	for _, r := range sourceLine {
		if n >= column-1 {
			break
		}
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
		n++
	}
	if n < column-1 {
		b.WriteString(strings.Repeat(" ", column-1-n))
	}
	b.WriteByte('^')
	return b.String()
}

// SplitModuleName splits "a.b.c" into its dotted parts.
func SplitModuleName(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, ".")
}
