package docxml

import "strings"

// Comments are stored on disk with real line breaks replaced by the
// two-byte literal sequence "\n", so a single comment element never spans
// multiple lines in the serialised document (spec.md §4.5, supplemented
// feature: "comment text round-trips through a literal backslash-n escape
// rather than an embedded newline"). encodeComment/decodeComment are the
// inverse of each other for any string, including one that contains a
// literal backslash followed by 'n' -- a backslash is escaped first so
// decoding is unambiguous.
func encodeComment(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

func decodeComment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
