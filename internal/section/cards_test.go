package section

import (
	"strings"
	"testing"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
)

func TestCards_Render(t *testing.T) {
	long := post("p1", true)
	long.Content = strings.Repeat("word ", 100)
	items := []catalog.Item{long, post("p2", false)}

	out, err := Cards{Title: "Latest", ContentLength: 12, ReadMore: true}.Render(t.Context(), items)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)

	if n := strings.Count(s, `class="section-cards__card"`); n != 2 {
		t.Fatalf("cards = %d, want 2", n)
	}
	for _, want := range []string{
		`<h2 class="heading-secondary section-cards__header">Latest</h2>`,
		"word word wo" + Ellipsis,
		`href="/posts/p1"`,
		`href="/posts/p2"`,
		`<img class="section-cards__image" src="/media/p1.jpg"`,
		"<p>content o" + Ellipsis,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %q in:\n%s", want, s)
		}
	}
	if strings.Contains(s, "content of p2") {
		t.Error("p2 content not truncated")
	}
	if strings.Count(s, "section-cards__image") != 1 {
		t.Error("item without media rendered an image")
	}
}

func TestCards_NoReadMore(t *testing.T) {
	out, err := Cards{}.Render(t.Context(), []catalog.Item{post("p1", false)})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "Read More") {
		t.Fatal("read more rendered while disabled")
	}
}

func TestCards_CustomPath(t *testing.T) {
	it := post("p1", false)
	it.Slug = "hello"
	out, _ := Cards{ReadMore: true, ReadMorePath: "/blog/{slug}"}.Render(t.Context(), []catalog.Item{it})
	if !strings.Contains(string(out), `href="/blog/hello"`) {
		t.Fatalf("custom path not used:\n%s", out)
	}
}

func TestCards_Empty(t *testing.T) {
	out, err := Cards{Title: "Nothing"}.Render(t.Context(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "Nothing") || !strings.Contains(s, `<ul class="section-cards__list">`) {
		t.Fatalf("empty grid should keep title and list:\n%s", s)
	}
	if strings.Contains(s, "section-cards__card") {
		t.Fatal("empty grid rendered cards")
	}
}
