package section

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultContentLength = 300
	Ellipsis             = " . . ."
)

// Truncate shortens content to length runes and appends Ellipsis when the
// content is at least length runes long. length <= 0 means
// DefaultContentLength. Only trailing whitespace of the kept prefix is
// trimmed. The cut ignores word and tag boundaries.
func Truncate(content string, length int) string {
	if length <= 0 {
		length = DefaultContentLength
	}
	if utf8.RuneCountInString(content) < length {
		return content
	}
	cut, n := len(content), 0
	for i := range content {
		if n == length {
			cut = i
			break
		}
		n++
	}
	return strings.TrimRightFunc(content[:cut], unicode.IsSpace) + Ellipsis
}
