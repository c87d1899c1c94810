package match

import (
	"bytes"
	"encoding/binary"

	"github.com/magikind/gofile/internal/magic"
)

// readNumeric interprets data (already truncated to the rule's width) as
// an unsigned integer per the rule's Kind, zero-extended to 64 bits. This
// is a narrowed port of the teacher's readUint16/readUint32 helpers
// (internal/detector/helper.go): only the six numeric kinds this spec
// names are needed, so byte order is resolved directly instead of via a
// LITTLE_ENDIAN flag bit.
func readNumeric(k magic.Kind, data []byte) uint64 {
	switch k {
	case magic.KindByte:
		return uint64(data[0])
	case magic.KindShort, magic.KindBEShort:
		return uint64(binary.BigEndian.Uint16(data[:2]))
	case magic.KindLEShort:
		return uint64(binary.LittleEndian.Uint16(data[:2]))
	case magic.KindBELong:
		return uint64(binary.BigEndian.Uint32(data[:4]))
	case magic.KindLELong:
		return uint64(binary.LittleEndian.Uint32(data[:4]))
	default:
		return 0
	}
}

// compareNumeric applies spec.md §4.2's numeric operator table. v and c
// are both AND'ed with mask first (the rule's EffectiveMask: its width
// mask, narrowed by any type-suffix value mask), so e.g. a byte
// comparison never sees stray high bits.
func compareNumeric(op magic.Operator, v, c, mask uint64) bool {
	v &= mask
	c &= mask
	switch op {
	case magic.OpEquals:
		return v == c
	case magic.OpNotEquals:
		return v != c
	case magic.OpGreaterThan:
		return v > c
	case magic.OpLessThan:
		return v < c
	case magic.OpBitwiseAnd:
		return (v & c) == c
	case magic.OpBitwiseClear:
		// Equivalent to bitwise_and's predicate; the duplication is in
		// the source grammar (spec.md DESIGN NOTES), kept observable.
		return ((v & c) ^ c) == 0
	case magic.OpAny:
		return true
	case magic.OpNegated:
		return (^v & mask) == c
	default:
		return false
	}
}

// matchString applies spec.md §4.2's string match_one rules. data has
// already been read at the rule's Offset for the rule's Width().
func matchString(r *magic.Rule, data []byte) bool {
	if r.ContainsWidth > 0 {
		return bytes.Contains(data, r.Content)
	}
	n := len(r.Content)
	if len(data) < n {
		return false
	}
	head := data[:n]
	switch r.Operator {
	case magic.OpEquals:
		return bytes.Equal(head, r.Content)
	case magic.OpNotEquals:
		return !bytes.Equal(head, r.Content)
	case magic.OpGreaterThan:
		return bytes.Compare(head, r.Content) > 0
	case magic.OpLessThan:
		return bytes.Compare(head, r.Content) < 0
	default:
		return false
	}
}
