package section

import (
	"net/url"
	"strings"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
)

// ItemPath expands {id} and {slug} in pattern. {slug} falls back to the ID
// when the item has no slug.
func ItemPath(pattern string, it catalog.Item) string {
	return strings.NewReplacer(
		"{id}", url.PathEscape(it.ID),
		"{slug}", url.PathEscape(it.Ref()),
	).Replace(pattern)
}

// joinPath builds /prefix/ref/suffix with prefix slashes normalized.
func joinPath(prefix, ref string, suffix ...string) string {
	var b strings.Builder
	if p := strings.Trim(prefix, "/"); p != "" {
		b.WriteString("/" + p)
	}
	b.WriteString("/" + url.PathEscape(ref))
	for _, s := range suffix {
		b.WriteString("/" + s)
	}
	return b.String()
}
