package magic

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Compiler turns a textual magic rules document into an immutable Forest,
// one pass, line oriented — a port of the teacher's Parser/LoadOne, with
// the flat-entry/.mgc binary model replaced by the tree-shaped Rule/Forest
// this spec calls for (see DESIGN.md).
type Compiler struct {
	logger  *slog.Logger
	counter int
}

// NewCompiler returns a Compiler that logs nowhere above Debug level.
func NewCompiler() *Compiler {
	return &Compiler{logger: slog.Default()}
}

// NewCompilerWithLogger returns a Compiler using the given logger for
// Debug-level diagnostics. A nil logger falls back to slog.Default().
func NewCompilerWithLogger(logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{logger: logger}
}

// Compile reads a magic rules document line by line and returns the
// compiled forest plus any per-line diagnostics. Diagnostics never abort
// compilation: a malformed line is skipped and parsing continues with the
// next line, per spec.md §7.
func (c *Compiler) Compile(r io.Reader, sourceName string) (*Forest, []Diagnostic) {
	forest := &Forest{}
	var diagnostics []Diagnostic
	var cursors []*Rule // cursors[d] is the most recent rule seen at depth d

	scanner := bufio.NewScanner(r)
	// Individual magic lines are short; raise the default 64KiB cap only
	// defensively for pathological inputs.
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		rule, depth, ok, err := c.parseLine(scanner.Text(), lineNo, sourceName)
		if err != nil {
			diagnostics = append(diagnostics, Diagnostic{Source: sourceName, Line: lineNo, Message: err.Error()})
			c.logger.Debug("magic: discarding malformed line", "source", sourceName, "line", lineNo, "reason", err)
			if rule == nil {
				// Genuine parse failure (truncated line, bad offset, bad
				// numeric literal): there is nothing to attach to the
				// tree, so the cursor stack is left untouched.
				continue
			}
			// Unknown type: parseLine still returns a rule (it will never
			// match, per its own doc comment) so it must still be
			// attached below — otherwise continuation depth accounting
			// for lines below it breaks.
		}
		if !ok {
			continue // blank or comment line
		}

		rule.SourceIndex = c.counter
		c.counter++

		if depth == 0 {
			forest.Roots = append(forest.Roots, rule)
			cursors = append(cursors[:0], rule)
			continue
		}

		if depth > len(cursors) {
			msg := fmt.Sprintf("continuation depth %d has no parent at depth %d", depth, depth-1)
			diagnostics = append(diagnostics, Diagnostic{Source: sourceName, Line: lineNo, Message: msg})
			c.logger.Debug("magic: discarding line with inconsistent depth", "source", sourceName, "line", lineNo, "depth", depth)
			continue
		}

		parent := cursors[depth-1]
		rule.Parent = parent
		parent.Children = append(parent.Children, rule)
		cursors = append(cursors[:depth], rule)
	}

	finalize(forest)
	return forest, diagnostics
}

// CompileFile opens path and compiles it. Unlike Compile, a failure to
// open the file is a hard error rather than a diagnostic: there is no
// line to attach it to.
func (c *Compiler) CompileFile(path string) (*Forest, []Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("magic: open %s: %w", path, err)
	}
	defer f.Close()

	forest, diags := c.Compile(f, path)
	return forest, diags, nil
}

// CompileFiles compiles several magic rule files into one forest, with
// roots appended in file-then-line order, and source indices continuing
// across files so tie-breaking stays well defined for the combined set.
func CompileFiles(paths []string) (*Forest, []Diagnostic, error) {
	c := NewCompiler()
	combined := &Forest{}
	var allDiags []Diagnostic

	for _, path := range paths {
		forest, diags, err := c.CompileFile(path)
		if err != nil {
			return nil, allDiags, err
		}
		combined.Roots = append(combined.Roots, forest.Roots...)
		allDiags = append(allDiags, diags...)
	}

	finalize(combined)
	return combined, allDiags, nil
}

// finalize caches Depth (already set during assembly) and SubtreeWeight
// for every rule in the forest so the match engine never recomputes
// structural information at match time.
func finalize(f *Forest) {
	f.Walk(func(r *Rule) {
		r.SubtreeWeight = subtreeWeight(r)
	})
}

// parseLine parses one magic rule line per spec.md §4.1's grammar:
//
//	[>*] offset  type  content  [mime_type  [mime_encoding]]
//
// It returns (rule, depth, ok, err). ok is false for blank/comment lines
// (not an error); err is non-nil for a malformed line, which the caller
// records as a diagnostic. A malformed line returns a nil rule and is
// discarded, except for an unknown type: that rule is returned alongside
// err and the caller still attaches it to the tree.
func (c *Compiler) parseLine(raw string, lineNo int, sourceName string) (*Rule, int, bool, error) {
	trimmed := strings.TrimLeft(raw, " \t")
	if trimmed == "" || trimmed[0] == '#' {
		return nil, 0, false, nil
	}

	depth := 0
	l := trimmed
	for len(l) > 0 && l[0] == '>' {
		depth++
		l = l[1:]
	}
	l = strings.TrimLeft(l, " \t")

	offsetTok, l := readToken(l)
	typeTok, l := readToken(l)
	contentTok, l := readToken(l)
	if offsetTok == "" || typeTok == "" || contentTok == "" {
		return nil, 0, false, fmt.Errorf("truncated line (need offset, type and content)")
	}

	offset, err := parseOffset(offsetTok)
	if err != nil {
		return nil, 0, false, err
	}

	mimeType, l := readToken(l)
	mimeEncoding, _ := readToken(l)

	kind, containsWidth, hasValueMask, valueMask := resolveType(typeTok)

	rule := &Rule{
		Offset:        offset,
		Kind:          kind,
		ContainsWidth: containsWidth,
		HasValueMask:  hasValueMask,
		ValueMask:     valueMask,
		MimeType:      mimeType,
		MimeEncoding:  mimeEncoding,
		Depth:         depth,
		Line:          lineNo,
		Source:        sourceName,
	}

	if kind == KindUnknown {
		// spec.md §4.1: "Unknown types produce an 'unknown-type' rule
		// that never matches" — it is still attached to the tree so
		// continuation grouping and depth accounting stay correct, but
		// it is reported as a diagnostic because it is almost always a
		// typo in the rules file.
		return rule, depth, true, fmt.Errorf("unknown type %q (rule kept, will never match)", typeTok)
	}

	op, content := extractOperator(contentTok, kind)
	rule.Operator = op
	rule.Literal = content

	if kind == KindString {
		rule.Content = decodeEscapes(content)
	} else if op == OpAny && content == "" {
		// A bare "x" carries no value: the any operator always matches.
	} else {
		v, err := parseNumeric(content)
		if err != nil {
			return nil, 0, false, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rule.Numeric = v
	}

	return rule, depth, true, nil
}

// readToken reads the next whitespace-delimited field from s, treating a
// backslash as escaping the character that follows it (so "\ " inside a
// content field does not end the token early), and returns the remainder
// with any leading whitespace run collapsed away.
func readToken(s string) (token, rest string) {
	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			i += 2
			continue
		}
		if s[i] == ' ' || s[i] == '\t' {
			break
		}
		i++
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

// resolveType maps a type token to a Kind per spec.md §4.1: exact match
// for "short"/"byte", prefix match for the others, with "string>N"
// recognized as the bounded-contains extension.
//
// A numeric kind's prefix may carry a trailing "&mask" or "^mask", the
// classic magic(5) value-mask suffix (spec.md §8 row 6's
// "belong&0xFFFFFF00"): the bytes read for the test are AND'ed with mask
// before the rule's operator is applied. This implementation treats '&'
// and '^' identically, as a plain AND-mask; magic(5)'s historical
// distinction between the two (one-complement vs plain mask) has no
// bearing on any case this spec's grammar exercises.
func resolveType(tok string) (kind Kind, containsWidth int, hasValueMask bool, valueMask uint64) {
	switch {
	case tok == "short" || strings.HasPrefix(tok, "short"):
		if m, ok := maskSuffix(tok, "short"); ok || tok == "short" {
			return KindShort, 0, ok, m
		}
	case tok == "byte" || strings.HasPrefix(tok, "byte"):
		if m, ok := maskSuffix(tok, "byte"); ok || tok == "byte" {
			return KindByte, 0, ok, m
		}
	case strings.HasPrefix(tok, "beshort"):
		m, ok := maskSuffix(tok, "beshort")
		return KindBEShort, 0, ok, m
	case strings.HasPrefix(tok, "leshort"):
		m, ok := maskSuffix(tok, "leshort")
		return KindLEShort, 0, ok, m
	case strings.HasPrefix(tok, "belong"):
		m, ok := maskSuffix(tok, "belong")
		return KindBELong, 0, ok, m
	case strings.HasPrefix(tok, "lelong"):
		m, ok := maskSuffix(tok, "lelong")
		return KindLELong, 0, ok, m
	case strings.HasPrefix(tok, "string"):
		if rest := tok[len("string"):]; strings.HasPrefix(rest, ">") {
			if n, err := strconv.Atoi(rest[1:]); err == nil && n > 0 {
				return KindString, n, false, 0
			}
		}
		return KindString, 0, false, 0
	}
	return KindUnknown, 0, false, 0
}

// maskSuffix reports whether tok is base followed by "&N" or "^N", and if
// so parses N. A bare tok == base (no suffix) is reported by the caller,
// not here.
func maskSuffix(tok, base string) (uint64, bool) {
	rest := strings.TrimPrefix(tok, base)
	if len(rest) < 2 || (rest[0] != '&' && rest[0] != '^') {
		return 0, false
	}
	v, err := parseNumeric(rest[1:])
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractOperator consumes a leading operator sigil from content if one
// is valid for kind, per spec.md §4.1's per-kind sigil tables. If the
// first character is not a recognized sigil for this kind, the operator
// defaults to equals and content is returned unchanged.
func extractOperator(content string, kind Kind) (Operator, string) {
	if content == "" {
		return OpEquals, content
	}
	table := numericOperators
	if kind == KindString {
		table = stringOperators
	}
	if op, ok := table[content[0]]; ok {
		return op, content[1:]
	}
	return OpEquals, content
}
