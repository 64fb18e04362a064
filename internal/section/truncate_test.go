package section

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		length  int
		want    string
	}{
		{"empty", "", 10, ""},
		{"shorter than length", "hello", 10, "hello"},
		{"exactly length", "hello", 5, "hello . . ."},
		{"longer", "hello world", 5, "hello . . ."},
		{"trailing space trimmed", "hello world", 6, "hello . . ."},
		{"leading space kept", "  hello world", 7, "  hello . . ."},
		{"cuts mid word", "truncation", 4, "trun . . ."},
		{"counts runes", "héllo wörld", 5, "héllo . . ."},
		{"zero uses default", strings.Repeat("a", 301), 0, strings.Repeat("a", 300) + Ellipsis},
		{"negative uses default", strings.Repeat("a", 299), -1, strings.Repeat("a", 299)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.content, tt.length); got != tt.want {
				t.Fatalf("Truncate(%q, %d) = %q, want %q", tt.content, tt.length, got, tt.want)
			}
		})
	}
}

func TestTruncateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("short content is unchanged", prop.ForAll(
		func(s string, extra int) bool {
			n := utf8.RuneCountInString(s) + extra
			return Truncate(s, n) == s
		},
		gen.AnyString(), gen.IntRange(1, 50),
	))

	properties.Property("long content keeps a trimmed prefix of length runes", prop.ForAll(
		func(s string, n int) bool {
			if utf8.RuneCountInString(s) < n {
				return true
			}
			got := Truncate(s, n)
			if !strings.HasSuffix(got, Ellipsis) {
				return false
			}
			kept := strings.TrimSuffix(got, Ellipsis)
			prefix := string([]rune(s)[:n])
			return kept == strings.TrimRightFunc(prefix, unicode.IsSpace)
		},
		gen.AnyString(), gen.IntRange(1, 40),
	))

	properties.Property("result never exceeds length plus marker", prop.ForAll(
		func(s string, n int) bool {
			limit := max(n, utf8.RuneCountInString(s)) + utf8.RuneCountInString(Ellipsis)
			return utf8.RuneCountInString(Truncate(s, n)) <= limit
		},
		gen.AnyString(), gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}
