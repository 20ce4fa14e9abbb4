package indexing

import (
	"fmt"
	"strings"
	"unicode"
)

// SplitAnchor separates an anchor into its page and fragment, dropping any
// leading "../" segments.
// Example: "../qmb_8m.html#ad85" -> ("qmb_8m.html", "ad85")
func SplitAnchor(anchor string) (page, fragment string) {
	page = anchor
	if i := strings.IndexByte(anchor, '#'); i >= 0 {
		page, fragment = anchor[:i], anchor[i+1:]
	}
	for strings.HasPrefix(page, "../") {
		page = page[len("../"):]
	}
	return page, fragment
}

// pageEscapes maps the characters after "_" in a documentation filename back
// to the characters they stand for
var pageEscapes = map[byte]string{
	'_': "_", '1': ":", '2': "/", '3': "<", '4': ">", '5': "*",
	'6': "&", '7': "|", '8': ".", '9': "!",
}

// pageWideEscapes covers the two character "_0x" forms
var pageWideEscapes = map[byte]string{
	'0': ",", '1': " ", '2': "{", '3': "}", '4': "?", '5': "^", '6': "%",
	'7': "(", '8': ")", '9': "+", 'a': "=", 'b': "$", 'c': "\\", 'd': "@",
	'e': "]", 'f': "[", 'g': "#", 'h': "\"", 'i': "~", 'j': "'", 'k': ";", 'l': "`",
}

// compoundPrefixes are the page name prefixes for non-file compounds
var compoundPrefixes = []string{"namespace", "struct", "union", "interface", "class"}

// CompoundFromPage recovers the documented entity name from a generated page
// filename. Escapes that cannot be decoded are kept as they are.
// Example: "class_f_f_t_w_complex.html" -> "FFTWComplex"
// Example: "test__config__qsc_8cpp.html" -> "test_config_qsc.cpp"
func CompoundFromPage(page string) string {
	name := strings.TrimSuffix(page, ".html")

	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '_' || i+1 >= len(name) {
			b.WriteByte(c)
			continue
		}
		next := name[i+1]
		if next == '0' && i+2 < len(name) {
			if s, ok := pageWideEscapes[name[i+2]]; ok {
				b.WriteString(s)
				i += 2
				continue
			}
		}
		if s, ok := pageEscapes[next]; ok {
			b.WriteString(s)
			i++
			continue
		}
		if next >= 'a' && next <= 'z' {
			b.WriteRune(unicode.ToUpper(rune(next)))
			i++
			continue
		}
		b.WriteByte(c)
	}
	decoded := b.String()

	// Files keep their extension; other compounds carry a kind prefix
	if strings.Contains(decoded, ".") {
		return decoded
	}
	for _, prefix := range compoundPrefixes {
		if rest, ok := strings.CutPrefix(decoded, prefix); ok && rest != "" {
			return rest
		}
	}
	return decoded
}

// DocumentID builds the bleve document ID of an occurrence
func DocumentID(section, key string, position int) string {
	return fmt.Sprintf("%s/%s/%d", section, key, position)
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"of": true, "as": true, "by": true, "is": true, "it": true,
	"const": true, "void": true, "int": true, "double": true, "float": true,
}

// ExtractKeywords extracts identifier-like terms from a label and description,
// in order of first appearance
func ExtractKeywords(label, description string) []string {
	words := strings.FieldsFunc(strings.ToLower(label+" "+description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	seen := make(map[string]bool)
	keywords := make([]string, 0, MaxKeywords)
	for _, word := range words {
		word = strings.Trim(word, "_")
		if len(word) < 3 || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}
