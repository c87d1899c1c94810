package magic

import (
	"fmt"
	"strings"
)

// FormatForList renders the forest as one line per rule, depth-indented
// with '>' markers, the way the teacher's Database.FormatForList renders
// the binary database for `gofile -l`.
func (f *Forest) FormatForList() []string {
	var lines []string
	f.Walk(func(r *Rule) {
		lines = append(lines, formatRule(r))
	})
	return lines
}

func formatRule(r *Rule) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(">", r.Depth))
	fmt.Fprintf(&b, "%d\t%s\t%s%s", r.Offset, r.Kind, r.Operator, describeContent(r))
	if r.MimeType != "" {
		fmt.Fprintf(&b, "\t%s", r.MimeType)
		if r.MimeEncoding != "" {
			fmt.Fprintf(&b, "\t%s", r.MimeEncoding)
		}
	}
	return b.String()
}

func describeContent(r *Rule) string {
	if r.Kind == KindString {
		return fmt.Sprintf("%q", string(r.Content))
	}
	return fmt.Sprintf("0x%x", r.Numeric)
}
