package httpmw

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
)

func TestWithLogger_Fields(t *testing.T) {
	spy := newSpyLogger()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Info(r.Context(), "inside")
	}), RequestID(""), ClientIP(ClientIPOptions{}), WithLogger(spy))

	req := httptest.NewRequest(http.MethodGet, "/posts/first?q=secret", nil)
	req.RemoteAddr = "203.0.113.9:4444"
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := spy.all()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	kv := entries[0].kv
	if kv["client.address"] != "203.0.113.9" || kv["url.path"] != "/posts/first" || kv["http.request.method"] != "GET" {
		t.Fatalf("fields = %v", kv)
	}
	if id, _ := kv["request_id"].(string); id == "" {
		t.Fatal("request_id missing")
	}
	for k, v := range kv {
		if s, ok := v.(string); ok && s == "q=secret" {
			t.Fatalf("query logged under %s", k)
		}
	}
}

func TestSchemeOf(t *testing.T) {
	tests := []struct {
		name  string
		proto string
		tls   bool
		want  string
	}{
		{"plain", "", false, "http"},
		{"tls", "", true, "https"},
		{"forwarded", "HTTPS, http", false, "https"},
		{"bogus forwarded", "gopher", false, "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			if tt.tls {
				r.TLS = &tls.ConnectionState{}
			}
			if got := schemeOf(r); got != tt.want {
				t.Fatalf("scheme = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccessLog(t *testing.T) {
	spy := newSpyLogger()
	r := chi.NewRouter()
	r.Use(WithLogger(spy), AccessLog())
	r.Get("/posts/{ref}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})
	r.Get("/static/site.css", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/-/ready", func(w http.ResponseWriter, r *http.Request) {})

	for _, p := range []string{"/posts/first", "/static/site.css", "/-/ready"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	entries := spy.all()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want only the page request", len(entries))
	}
	kv := entries[0].kv
	if entries[0].msg != "http request" || kv["http.response.status_code"] != http.StatusTeapot {
		t.Fatalf("entry = %+v", entries[0])
	}
	if kv["http.response.body.size"] != int64(15) || kv["http.route"] != "/posts/{ref}" {
		t.Fatalf("fields = %v", kv)
	}
}

func TestScope(t *testing.T) {
	spy := newSpyLogger()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Info(r.Context(), "x")
	}), WithLogger(spy), Scope("detail"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := spy.all()[0].kv["handler"]; got != "detail" {
		t.Fatalf("handler = %v", got)
	}
}

func TestAccessWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	aw := &accessWriter{ResponseWriter: rec}
	aw.Flush()
	if !rec.Flushed {
		t.Fatal("Flush not forwarded")
	}
	if aw.Unwrap() != rec {
		t.Fatal("Unwrap returned wrong writer")
	}
}
