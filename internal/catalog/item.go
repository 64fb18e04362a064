package catalog

import (
	"encoding/json"
	"slices"
	"time"
)

type Kind string

const (
	KindPost    Kind = "post"
	KindBlog    Kind = "blog"
	KindEvent   Kind = "event"
	KindProduct Kind = "product"
)

// Known reports whether k is one of the supported kinds.
func (k Kind) Known() bool {
	switch k {
	case KindPost, KindBlog, KindEvent, KindProduct:
		return true
	}
	return false
}

// Item is a single piece of content. Content is sanitized HTML and is
// rendered verbatim. Details carries kind-specific fields that renderers
// never look at.
type Item struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Title     string          `json:"title,omitempty"`
	Content   string          `json:"content,omitempty"`
	MainMedia string          `json:"mainMedia,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	Published bool            `json:"published"`
	Comments  []Comment       `json:"comments,omitempty"`
	Slug      string          `json:"slug,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// IsZero reports whether no field of the item is populated.
func (it Item) IsZero() bool {
	return it.ID == "" && it.Kind == "" && it.Title == "" && it.Content == "" &&
		it.MainMedia == "" && len(it.Tags) == 0 && !it.Published &&
		len(it.Comments) == 0 && it.Slug == "" && len(it.Details) == 0
}

// HasTags reports whether every tag in required is present on the item.
// Matching is exact and case-sensitive.
func (it Item) HasTags(required []string) bool {
	for _, t := range required {
		if !slices.Contains(it.Tags, t) {
			return false
		}
	}
	return true
}

// Ref is the path identifier for the item: the slug when set, else the ID.
func (it Item) Ref() string {
	if it.Slug != "" {
		return it.Slug
	}
	return it.ID
}
