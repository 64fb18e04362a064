package catalog

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"
)

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func tagged(id string, tags ...string) Item {
	return Item{ID: id, Kind: KindPost, Title: strings.ToUpper(id), Tags: tags}
}

// Filter

func TestFilter(t *testing.T) {
	items := []Item{
		tagged("a", "x"),
		tagged("b", "x", "y"),
		tagged("c"),
		tagged("d", "y", "x"),
		tagged("e", "X"),
	}

	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"max zero", Criteria{MaxItems: 0}, []string{}},
		{"negative max", Criteria{MaxItems: -1, RequiredTags: []string{"x"}}, []string{}},
		{"no required tags takes first n", Criteria{MaxItems: 2}, []string{"a", "b"}},
		{"single tag", Criteria{MaxItems: 10, RequiredTags: []string{"x"}}, []string{"a", "b", "d"}},
		{"all tags required", Criteria{MaxItems: 10, RequiredTags: []string{"x", "y"}}, []string{"b", "d"}},
		{"bounded", Criteria{MaxItems: 1, RequiredTags: []string{"y"}}, []string{"b"}},
		{"case sensitive", Criteria{MaxItems: 10, RequiredTags: []string{"X"}}, []string{"e"}},
		{"no match", Criteria{MaxItems: 10, RequiredTags: []string{"missing"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(items, tt.c)
			if got == nil {
				t.Fatal("Filter returned nil, want empty slice")
			}
			if !slices.Equal(ids(got), tt.want) {
				t.Fatalf("Filter = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestFilter_EmptyInput(t *testing.T) {
	if got := Filter(nil, Criteria{MaxItems: 3}); got == nil || len(got) != 0 {
		t.Fatalf("Filter(nil) = %#v", got)
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	items := []Item{tagged("a", "x"), tagged("b"), tagged("c", "x")}
	before := ids(items)
	out := Filter(items, Criteria{MaxItems: 5, RequiredTags: []string{"x"}})
	out[0].ID = "changed"
	if !slices.Equal(ids(items), before) {
		t.Fatalf("input changed: %v", ids(items))
	}
}

func TestHeaderItem(t *testing.T) {
	items := []Item{tagged("a"), tagged("hdr", HeaderTag), tagged("hdr2", HeaderTag)}
	got, ok := HeaderItem(items)
	if !ok || got.ID != "hdr" {
		t.Fatalf("HeaderItem = %v, %v", got.ID, ok)
	}
	if _, ok := HeaderItem(items[:1]); ok {
		t.Fatal("expected no header item")
	}
}

// Item

func TestItem_IsZero(t *testing.T) {
	if !(Item{}).IsZero() {
		t.Error("zero Item should be IsZero")
	}
	if (Item{Published: true}).IsZero() {
		t.Error("published item is not zero")
	}
	if (Item{Details: json.RawMessage(`{}`)}).IsZero() {
		t.Error("item with details is not zero")
	}
}

func TestItem_Ref(t *testing.T) {
	if got := (Item{ID: "p1"}).Ref(); got != "p1" {
		t.Errorf("Ref = %q, want id", got)
	}
	if got := (Item{ID: "p1", Slug: "hello-world"}).Ref(); got != "hello-world" {
		t.Errorf("Ref = %q, want slug", got)
	}
}

func TestItem_DecodeRejectsNonStringContent(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"items":[{"id":"p1","kind":"post","content":42}]}`))
	if err == nil {
		t.Fatal("expected error for numeric content")
	}
}

func TestKind_Known(t *testing.T) {
	for _, k := range []Kind{KindPost, KindBlog, KindEvent, KindProduct} {
		if !k.Known() {
			t.Errorf("%s should be known", k)
		}
	}
	if Kind("page").Known() {
		t.Error("page should not be known")
	}
}
