package magic

// decodeEscapes decodes the backslash escapes spec.md §4.1 defines for
// string rule content, in a single left-to-right pass. It is a narrowed
// port of the teacher's getStr (apprentice.c's getstr): where the
// original handles the whole magic(5) escape grammar (and stops at an
// unescaped space/tab to find the field boundary), this only decodes —
// the field has already been isolated by the tokenizer in compiler.go.
func decodeEscapes(s string) []byte {
	out := make([]byte, 0, len(s))
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '\n' {
			// A raw newline terminates decoding.
			break
		}
		if c != '\\' {
			out = append(out, c)
			i++
			continue
		}
		i++
		if i >= len(s) {
			// Trailing lone backslash: keep it literally.
			out = append(out, '\\')
			break
		}
		switch s[i] {
		case '\\':
			out = append(out, '\\')
			i++
		case ' ':
			out = append(out, ' ')
			i++
		case 't':
			out = append(out, '\t')
			i++
		case 'n':
			out = append(out, '\n')
			i++
		case 'r':
			out = append(out, '\r')
			i++
		case 'x':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				out = append(out, byte(hexVal(s[i+1])<<4|hexVal(s[i+2])))
				i += 3
			} else {
				// Malformed \x escape: fall back to the literal 'x'.
				out = append(out, 'x')
				i++
			}
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := int(s[i] - '0')
			digits := 1
			i++
			for digits < 3 && i < len(s) && s[i] >= '0' && s[i] <= '7' {
				val = val*8 + int(s[i]-'0')
				i++
				digits++
			}
			out = append(out, byte(val))
		default:
			// Any other escaped character decodes to itself.
			out = append(out, s[i])
			i++
		}
	}
	return out
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	default:
		return 0
	}
}
