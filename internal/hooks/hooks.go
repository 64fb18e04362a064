// Package hooks lets callers inject markup at fixed points of a rendered
// section without touching the renderers.
package hooks

import (
	"html/template"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
)

type Point string

// Section-level points.
const (
	BeforeTitle       Point = "beforeTitle"
	AfterTitle        Point = "afterTitle"
	BeforePosts       Point = "beforePosts"
	AfterPosts        Point = "afterPosts"
	BeforePost        Point = "beforePost"
	AfterPost         Point = "afterPost"
	BeforeMainMedia   Point = "beforeMainMedia"
	AfterMainMedia    Point = "afterMainMedia"
	BeforeContent     Point = "beforeContent"
	AfterContent      Point = "afterContent"
	BeforeComments    Point = "beforeComments"
	AfterComments     Point = "afterComments"
	BeforeCommentForm Point = "beforeCommentForm"
	AfterCommentForm  Point = "afterCommentForm"
)

// Item-level points receive the item being rendered.
const (
	BeforePostTitle   Point = "beforePostTitle"
	AfterPostTitle    Point = "afterPostTitle"
	BeforePostMedia   Point = "beforePostMedia"
	AfterPostMedia    Point = "afterPostMedia"
	BeforePostContent Point = "beforePostContent"
	AfterPostContent  Point = "afterPostContent"
	BeforePostLink    Point = "beforePostLink"
	AfterPostLink     Point = "afterPostLink"
)

type (
	SectionFunc func() template.HTML
	ItemFunc    func(catalog.Item) template.HTML
)

// Set maps points to callbacks. The zero value is ready to use and a nil
// *Set renders nothing. Callbacks may run any number of times and panics
// are not recovered.
type Set struct {
	section map[Point]SectionFunc
	item    map[Point]ItemFunc
}

func New() *Set {
	return &Set{section: map[Point]SectionFunc{}, item: map[Point]ItemFunc{}}
}

// Section registers fn at p, replacing any previous callback.
func (s *Set) Section(p Point, fn SectionFunc) *Set {
	if s.section == nil {
		s.section = map[Point]SectionFunc{}
	}
	s.section[p] = fn
	return s
}

// Item registers fn at p, replacing any previous callback.
func (s *Set) Item(p Point, fn ItemFunc) *Set {
	if s.item == nil {
		s.item = map[Point]ItemFunc{}
	}
	s.item[p] = fn
	return s
}

func (s *Set) Render(p Point) template.HTML {
	if s == nil {
		return ""
	}
	if fn := s.section[p]; fn != nil {
		return fn()
	}
	return ""
}

func (s *Set) RenderItem(p Point, it catalog.Item) template.HTML {
	if s == nil {
		return ""
	}
	if fn := s.item[p]; fn != nil {
		return fn(it)
	}
	return ""
}

// Has reports whether anything is registered at p.
func (s *Set) Has(p Point) bool {
	if s == nil {
		return false
	}
	return s.section[p] != nil || s.item[p] != nil
}
