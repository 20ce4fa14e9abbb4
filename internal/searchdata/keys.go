package searchdata

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"
)

// EncodeKey turns a symbol name into the key form used by the payload:
// lowercase, with every ASCII character other than [a-z0-9] written as "_"
// followed by its hex code.
// Example: "BOOST_AUTO_TEST_CASE" -> "boost_5fauto_5ftest_5fcase"
func EncodeKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r >= utf8.RuneSelf:
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "_%02x", r)
		}
	}
	return b.String()
}

// DecodeKey reverses EncodeKey's escaping. Case is not restored. Sequences that
// are not a valid escape are kept as they are.
// Example: "bubsort_5fcoord" -> "bubsort_coord"
func DecodeKey(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		if key[i] == '_' && i+2 < len(key) {
			// EncodeKey only escapes ASCII
			if code, err := strconv.ParseUint(key[i+1:i+3], 16, 8); err == nil && code < utf8.RuneSelf {
				b.WriteByte(byte(code))
				i += 2
				continue
			}
		}
		b.WriteByte(key[i])
	}
	return b.String()
}

// PlainText converts an HTML snippet from the payload into plain text.
// Example: "qmb.m&#160;line" -> "qmb.m line"
func PlainText(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}
