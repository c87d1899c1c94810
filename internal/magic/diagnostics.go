package magic

import "fmt"

// Diagnostic describes one malformed rule line. Diagnostics are collected
// during Compile and never abort compilation, per spec.md §7: a compile
// error is per-line, discarded with a reason, and parsing continues.
type Diagnostic struct {
	Source  string
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s", d.Source, d.Line, d.Message)
}

func (d Diagnostic) Error() string {
	return d.String()
}
