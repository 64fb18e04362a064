package sitehttp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/keithlinneman/linnemanlabs-sections/internal/viewer"
)

func TestDeleteConfirmPage(t *testing.T) {
	f := newFixture(t, nil)

	if rec := f.do(http.MethodGet, "/posts/first/delete", nil, false); rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous: status = %d", rec.Code)
	}

	rec := f.do(http.MethodGet, "/posts/first/delete", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Are you sure you want to delete this post?",
		`action="/posts/first/delete"`,
		`name="confirm" value="yes"`,
		`href="/posts/first"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("confirm page missing %q", want)
		}
	}

	if rec := f.do(http.MethodGet, "/posts/missing/delete", nil, true); rec.Code != http.StatusNotFound {
		t.Fatalf("missing item: status = %d", rec.Code)
	}
}

func TestDelete_Success(t *testing.T) {
	f := newFixture(t, nil)
	changes := 0
	f.store.OnChange(func() { changes++ })

	rec := f.do(http.MethodPost, "/posts/first/delete", url.Values{"confirm": {"yes"}}, true)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/posts" {
		t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
	if calls := f.api.Calls(); len(calls) != 1 || calls[0] != "/api/posts/1" {
		t.Fatalf("api calls = %v", calls)
	}
	if _, ok := f.store.Lookup("first"); ok {
		t.Fatal("item still in store")
	}
	if changes != 1 {
		t.Fatalf("store change callbacks = %d, want 1", changes)
	}
	if rec := f.do(http.MethodGet, "/posts/first", nil, false); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted item still served: %d", rec.Code)
	}
}

func TestDelete_Declined(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/posts/first/delete", url.Values{}, true)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/posts/first" {
		t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(f.api.Calls()) != 0 {
		t.Fatal("API called without confirmation")
	}
	if _, ok := f.store.Lookup("first"); !ok {
		t.Fatal("declined delete removed the item")
	}
}

func TestDelete_APIFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.api.err = errors.New("upstream 500")

	rec := f.do(http.MethodPost, "/posts/first/delete", url.Values{"confirm": {"yes"}}, true)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "First post") {
		t.Fatal("detail page not re-rendered")
	}
	if _, ok := f.store.Lookup("first"); !ok {
		t.Fatal("failed delete removed the item")
	}
}

func TestDelete_Forbidden(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/posts/first/delete", url.Values{"confirm": {"yes"}}, false)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(f.api.Calls()) != 0 {
		t.Fatal("API called for anonymous viewer")
	}
}

func TestDelete_NoAPI(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.API = nil })
	rec := f.do(http.MethodPost, "/posts/first/delete", url.Values{"confirm": {"yes"}}, true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := f.store.Lookup("first"); !ok {
		t.Fatal("item removed without an API")
	}
}

func TestDelete_CrossOrigin(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"foreign origin", map[string]string{"Origin": "https://evil.example"}, http.StatusForbidden},
		{"null origin", map[string]string{"Origin": "null"}, http.StatusForbidden},
		{"cross-site fetch", map[string]string{"Sec-Fetch-Site": "cross-site"}, http.StatusForbidden},
		{"same-site fetch", map[string]string{"Sec-Fetch-Site": "same-site", "Origin": "http://example.com"}, http.StatusForbidden},
		{"same origin", map[string]string{"Origin": "http://example.com"}, http.StatusSeeOther},
		{"same-origin fetch", map[string]string{"Sec-Fetch-Site": "same-origin"}, http.StatusSeeOther},
		{"no browser headers", nil, http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			form := url.Values{"confirm": {"yes"}}
			req := httptest.NewRequest(http.MethodPost, "/posts/first/delete", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(&http.Cookie{Name: viewer.CookieName, Value: adminToken})
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			_, present := f.store.Lookup("first")
			if tt.want == http.StatusForbidden {
				if len(f.api.Calls()) != 0 || !present {
					t.Fatalf("rejected request deleted: api calls = %v present = %v", f.api.Calls(), present)
				}
			} else if present {
				t.Fatal("same-origin delete left the item")
			}
		})
	}
}

func TestCrossOriginGetAllowed(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/posts/first", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
