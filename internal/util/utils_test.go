package util

import "testing"

func TestCaretLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		column int
		want   string
	}{
		{"first column", "x + 1", 1, "^"},
		{"spaces", "val x = y", 9, "        ^"},
		{"tab indent", "\tval x = y", 10, "\t        ^"},
		{"mixed indent", " \t\tfoo()", 5, " \t\t ^"},
		{"past end of line", "ab", 5, "    ^"},
		{"unknown column", "ab", 0, "^"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CaretLine(tt.line, tt.column); got != tt.want {
				t.Errorf("CaretLine(%q, %d) = %q, want %q", tt.line, tt.column, got, tt.want)
			}
		})
	}
}

func TestFormatDiagnostic(t *testing.T) {
	got := FormatDiagnostic("main.lyng", 2, 3, "boom", "\tx!")
	want := "main.lyng:2:3: Error: boom\n\tx!\n\t ^"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := FormatDiagnostic("main.lyng", 0, 0, "boom", ""); got != "main.lyng:0:0: Error: boom" {
		t.Errorf("unexpected report %q", got)
	}
}
