package output

import (
	"fmt"
	"io"
)

// Notice glyphs.
const (
	SuccessMark    = "✓"
	FailureMark    = "✗"
	NavigationMark = "→"
)

// Success writes "✓ msg".
func Success(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", SuccessMark, msg)
}

// Failure writes "✗ msg".
func Failure(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", FailureMark, msg)
}

// Navigation writes "→ path".
func Navigation(w io.Writer, path string) {
	fmt.Fprintf(w, "%s %s\n", NavigationMark, path)
}
