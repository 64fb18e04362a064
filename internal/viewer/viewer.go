// Package viewer carries who is looking at a page. Authentication happens
// elsewhere; renderers only read the IsAdmin flag.
package viewer

import (
	"context"
	"net/http"
	"strings"

	"github.com/keithlinneman/linnemanlabs-sections/internal/cryptoutil"
)

type Viewer struct {
	IsAdmin bool
}

// Anonymous is the viewer for requests without credentials.
var Anonymous = Viewer{}

type ctxKey struct{}

func WithContext(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

// FromContext returns Anonymous when no viewer was attached.
func FromContext(ctx context.Context) Viewer {
	if v, ok := ctx.Value(ctxKey{}).(Viewer); ok {
		return v
	}
	return Anonymous
}

// Middleware marks a request as admin when it carries
// "Authorization: Bearer <adminToken>" or the admin cookie with that value.
// An empty adminToken makes every request anonymous.
func Middleware(adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := Anonymous
			if adminToken != "" && cryptoutil.TokenEqual(credential(r), adminToken) {
				v.IsAdmin = true
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), v)))
		})
	}
}

// CookieName holds the admin token for browser sessions.
const CookieName = "sections_admin"

func credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
