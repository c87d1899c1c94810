// Package magic compiles a textual magic(5)-style rules document into an
// immutable rule forest and provides the shared data model the match
// engine walks.
package magic

import "fmt"

// Kind is the type of comparison a Rule performs against the byte source.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindByte
	KindShort   // native byte order in the source grammar; treated as big-endian, see DESIGN.md
	KindBEShort
	KindLEShort
	KindBELong
	KindLELong
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindByte:
		return "byte"
	case KindShort:
		return "short"
	case KindBEShort:
		return "beshort"
	case KindLEShort:
		return "leshort"
	case KindBELong:
		return "belong"
	case KindLELong:
		return "lelong"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether k compares an integer value rather than bytes.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindByte, KindShort, KindBEShort, KindLEShort, KindBELong, KindLELong:
		return true
	default:
		return false
	}
}

// Operator is the comparison applied between the bytes read from the
// source and a Rule's Content/Numeric.
type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreaterThan
	OpLessThan
	OpBitwiseAnd
	OpBitwiseClear
	OpAny
	OpNegated
)

func (o Operator) String() string {
	switch o {
	case OpEquals:
		return "="
	case OpNotEquals:
		return "!"
	case OpGreaterThan:
		return ">"
	case OpLessThan:
		return "<"
	case OpBitwiseAnd:
		return "&"
	case OpBitwiseClear:
		return "^"
	case OpAny:
		return "x"
	case OpNegated:
		return "~"
	default:
		return "?"
	}
}

// stringOperators and numericOperators are the sigil tables from spec.md
// §4.1 "Operator extraction".
var stringOperators = map[byte]Operator{
	'=': OpEquals,
	'!': OpNotEquals,
	'>': OpGreaterThan,
	'<': OpLessThan,
}

var numericOperators = map[byte]Operator{
	'=': OpEquals,
	'!': OpNotEquals,
	'>': OpGreaterThan,
	'<': OpLessThan,
	'&': OpBitwiseAnd,
	'^': OpBitwiseClear,
	'x': OpAny,
	'~': OpNegated,
}

// Rule is a single node in the compiled forest: a test plus an optional
// MIME assignment, evaluated only when its Parent matched.
type Rule struct {
	Offset   int
	Kind     Kind
	Operator Operator

	// Content holds the escape-decoded string literal for string rules.
	Content []byte
	// Literal is the original, un-decoded content token, kept for
	// diagnostics and the numeric round-trip property.
	Literal string
	// Numeric holds the parsed integer for numeric rules.
	Numeric uint64
	// ContainsWidth is non-zero for the "string>N" bounded-contains
	// extension: N bytes are read and Content is matched as a
	// contiguous subsequence rather than a fixed-position prefix.
	ContainsWidth int

	// HasValueMask and ValueMask hold the classic magic(5) type-suffix
	// mask ("belong&0xFFFFFF00"): when set, the bytes read for a
	// numeric test are AND'ed with ValueMask before the operator is
	// applied. Meaningless for KindString.
	HasValueMask bool
	ValueMask    uint64

	MimeType     string
	MimeEncoding string

	Children []*Rule
	Parent   *Rule

	// Depth is the number of leading '>' markers on the source line;
	// cached at compile time.
	Depth int
	// SubtreeWeight is the sum of relative depths of all descendants,
	// used by the specificity formula; cached at compile time.
	SubtreeWeight int
	// SourceIndex increases monotonically in file-then-line order and
	// breaks specificity ties in favor of the earliest rule.
	SourceIndex int

	Line   int
	Source string
}

// Width returns the number of bytes the match engine must read at Offset
// to evaluate this rule.
func (r *Rule) Width() int {
	switch r.Kind {
	case KindString:
		if r.ContainsWidth > 0 {
			return r.ContainsWidth
		}
		// The "+1" preserves the legacy width computation documented in
		// spec.md's DESIGN NOTES: it keeps a short read observable even
		// when Content is empty, and matches the bounded-contains form's
		// read size when N happens to equal len(Content)+1.
		return len(r.Content) + 1
	case KindByte:
		return 1
	case KindShort, KindBEShort, KindLEShort:
		return 2
	case KindBELong, KindLELong:
		return 4
	default:
		return 0
	}
}

// Mask returns the bitmask numeric comparisons for this rule's Kind are
// truncated to.
func (r *Rule) Mask() uint64 {
	switch r.Kind {
	case KindByte:
		return 0xFF
	case KindShort, KindBEShort, KindLEShort:
		return 0xFFFF
	case KindBELong, KindLELong:
		return 0xFFFFFFFF
	default:
		return 0
	}
}

// EffectiveMask is the mask the match engine actually applies: the
// kind's width mask, further narrowed by an explicit type-suffix value
// mask when the rule carries one (see HasValueMask).
func (r *Rule) EffectiveMask() uint64 {
	m := r.Mask()
	if r.HasValueMask {
		m &= r.ValueMask
	}
	return m
}

func (r *Rule) String() string {
	return fmt.Sprintf("Rule{offset=%d kind=%s op=%s mime=%q depth=%d}",
		r.Offset, r.Kind, r.Operator, r.MimeType, r.Depth)
}

// Forest is the compiled, immutable rule set: an ordered sequence of root
// rule trees, in source-file order.
type Forest struct {
	Roots []*Rule
}

// MaxReadLength returns the maximum over every rule (root and descendant,
// transitively) of offset+width — the bound a stream source must be
// marked with before evaluating this forest.
func (f *Forest) MaxReadLength() int {
	max := 0
	var walk func(r *Rule)
	walk = func(r *Rule) {
		if need := r.Offset + r.Width(); need > max {
			max = need
		}
		for _, c := range r.Children {
			walk(c)
		}
	}
	for _, root := range f.Roots {
		walk(root)
	}
	return max
}

// Walk calls fn for every rule in the forest, root rules first, each
// followed by its children in source order (pre-order, depth-first).
func (f *Forest) Walk(fn func(*Rule)) {
	var walk func(r *Rule)
	walk = func(r *Rule) {
		fn(r)
		for _, c := range r.Children {
			walk(c)
		}
	}
	for _, root := range f.Roots {
		walk(root)
	}
}

// Count returns the total number of rules (root and descendant) in the
// forest.
func (f *Forest) Count() int {
	n := 0
	f.Walk(func(*Rule) { n++ })
	return n
}

// subtreeWeight computes the §4.2 "recursive_subtree_count": the sum,
// over every descendant of r, of that descendant's depth relative to r.
func subtreeWeight(r *Rule) int {
	total := 0
	var walk func(node *Rule, relDepth int)
	walk = func(node *Rule, relDepth int) {
		for _, c := range node.Children {
			total += relDepth
			walk(c, relDepth+1)
		}
	}
	walk(r, 1)
	return total
}

// Specificity returns the §4.2 specificity score for a matched rule:
// (depth+1) / (recursive_subtree_count+1).
func (r *Rule) Specificity() float64 {
	return float64(r.Depth+1) / float64(r.SubtreeWeight+1)
}
