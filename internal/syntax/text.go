package syntax

import "strings"

// Text returns the source text spanned by n. It reports false when n is
// absent. Spans outside src are clamped and invalid UTF-8 is replaced, so
// nodes from error-recovered trees never cause a panic.
func Text(n Node, src []byte) (string, bool) {
	if n.IsZero() {
		return "", false
	}
	start, end := int(n.StartByte()), int(n.EndByte())
	if start > len(src) {
		start = len(src)
	}
	if end > len(src) {
		end = len(src)
	}
	if end < start {
		end = start
	}
	return strings.ToValidUTF8(string(src[start:end]), "\uFFFD"), true
}
