package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
)

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	items := []catalog.Item{
		{ID: "h", Kind: catalog.KindPost, Title: "Labs", Tags: []string{catalog.HeaderTag}, Published: true},
		{ID: "1", Kind: catalog.KindPost, Title: "Go post", Content: "<p>about go</p>", Slug: "go-post", Tags: []string{"go"}, Published: true, MainMedia: "/m/1.jpg"},
		{ID: "2", Kind: catalog.KindEvent, Title: "Meetup", Content: "<p>meet</p>", Tags: []string{"go", "event"}, MainMedia: "/m/2.mp4"},
	}
	if err := catalog.WriteFile(path, "v1", items); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader("")
	err := app.Run(context.Background(), append([]string{"sectionctl"}, args...))
	return out.String(), errOut.String(), err
}

func TestFilter(t *testing.T) {
	path := writeCatalog(t)
	out, _, err := run(t, "filter", "--file", path, "--tag", "go", "--max", "5")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	var got []catalog.Item
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Fatalf("got %+v", got)
	}

	out, _, err = run(t, "filter", "--file", path, "--tag", "go", "--tag", "event", "--max", "1")
	if err != nil || !strings.Contains(out, `"id": "2"`) || strings.Contains(out, `"id": "1"`) {
		t.Fatalf("two tags: err = %v out = %s", err, out)
	}
}

func TestFilter_MissingFile(t *testing.T) {
	if _, _, err := run(t, "filter", "--file", filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestRender(t *testing.T) {
	path := writeCatalog(t)
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"cards", []string{"--layout", "cards", "--title", "Posts", "--read-more", "--path", "/posts/{slug}"},
			[]string{"section-cards", "Posts", `href="/posts/go-post"`}},
		{"strip", []string{"--layout", "strip", "--media-left", "--tag", "go"},
			[]string{"section-standard__post", "Go post", "Meetup"}},
		{"detail", []string{"--layout", "detail", "--ref", "go-post", "--admin"},
			[]string{"Go post", "about go", "button-delete"}},
		{"detail missing", []string{"--layout", "detail", "--ref", "nope"},
			[]string{"Not found"}},
		{"slideshow", []string{"--layout", "slideshow", "--index", "1"},
			[]string{"section-slideshow", `value="1" checked`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, append([]string{"render", "--file", path}, tt.args...)...)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q", w)
				}
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	path := writeCatalog(t)
	for _, args := range [][]string{
		{"--layout", "grid"},
		{"--layout", "detail"},
		{"--layout", "slideshow", "--index", "9"},
	} {
		if _, _, err := run(t, append([]string{"render", "--file", path}, args...)...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func apiServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodDelete || r.URL.Path != "/api/posts/1" {
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func catalogIDs(t *testing.T, path string) []string {
	t.Helper()
	snap, err := catalog.LoadFile(path, catalog.SourceFile, catalog.ValidationOptions{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	ids := make([]string, len(snap.Items))
	for i, it := range snap.Items {
		ids[i] = it.ID
	}
	return ids
}

func TestDelete(t *testing.T) {
	path := writeCatalog(t)
	srv, calls := apiServer(t, http.StatusNoContent)

	out, _, err := run(t, "delete", "--file", path, "--ref", "go-post", "--api-base-url", srv.URL, "--yes")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if strings.TrimSpace(out) != "/posts" {
		t.Fatalf("navigation output = %q", out)
	}
	if calls.Load() != 1 {
		t.Fatalf("api calls = %d", calls.Load())
	}
	if ids := catalogIDs(t, path); strings.Join(ids, ",") != "h,2" {
		t.Fatalf("catalog ids = %v", ids)
	}
}

func TestDelete_DeclinedWithoutTTY(t *testing.T) {
	path := writeCatalog(t)
	srv, calls := apiServer(t, http.StatusNoContent)

	_, stderr, err := run(t, "delete", "--file", path, "--ref", "go-post", "--api-base-url", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "declined") {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(stderr, "--yes") {
		t.Fatalf("stderr = %q", stderr)
	}
	if calls.Load() != 0 {
		t.Fatal("API called without confirmation")
	}
	if len(catalogIDs(t, path)) != 3 {
		t.Fatal("catalog changed")
	}
}

func TestDelete_APIFailure(t *testing.T) {
	path := writeCatalog(t)
	srv, _ := apiServer(t, http.StatusInternalServerError)

	out, _, err := run(t, "delete", "--file", path, "--ref", "1", "--api-base-url", srv.URL, "-y")
	if err == nil {
		t.Fatal("expected error")
	}
	if out != "" {
		t.Fatalf("navigated after failure: %q", out)
	}
	if len(catalogIDs(t, path)) != 3 {
		t.Fatal("catalog changed after API failure")
	}
}

func TestDelete_UnknownRef(t *testing.T) {
	path := writeCatalog(t)
	if _, _, err := run(t, "delete", "--file", path, "--ref", "nope", "--api-base-url", "http://127.0.0.1:1", "--yes"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTTYConfirm(t *testing.T) {
	tests := []struct {
		name        string
		yes         bool
		interactive bool
		input       string
		want        bool
	}{
		{"yes flag", true, false, "", true},
		{"no tty", false, false, "y\n", false},
		{"answered y", false, true, "y\n", true},
		{"answered YES", false, true, " YES \n", true},
		{"answered n", false, true, "n\n", false},
		{"empty", false, true, "\n", false},
		{"eof", false, true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := &ttyConfirm{yes: tt.yes, interactive: tt.interactive, in: strings.NewReader(tt.input), out: &out}
			if got := c.Confirm(context.Background(), "Delete?"); got != tt.want {
				t.Fatalf("Confirm = %v, want %v", got, tt.want)
			}
			if tt.interactive && !tt.yes && !strings.Contains(out.String(), "Delete? [y/N]") {
				t.Fatalf("prompt = %q", out.String())
			}
		})
	}
}
