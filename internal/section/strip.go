package section

import (
	"context"
	"html/template"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/hooks"
)

const DefaultStripPath = "/posts/{slug}"

type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// Placement picks the media side for the item at index i. With exactly one
// of left or right set, every item uses that side; otherwise items alternate
// starting on the left.
func Placement(i int, left, right bool) Side {
	switch {
	case left && !right:
		return SideLeft
	case right && !left:
		return SideRight
	case i%2 == 0:
		return SideLeft
	default:
		return SideRight
	}
}

// Strip renders items in rows with media beside the text.
type Strip struct {
	Title        string
	EmptyMessage string
	ClassName    string

	MediaLeft  bool
	MediaRight bool
	// ClickableMedia links each media element to the full-size asset.
	ClickableMedia bool

	ReadMore bool
	// ReadMorePath is expanded with ItemPath. Defaults to DefaultStripPath.
	ReadMorePath  string
	ContentLength int

	Hooks   *hooks.Set
	Metrics Metrics
}

type stripMedia struct {
	Before template.HTML
	Media  *mediaView
	After  template.HTML
}

type stripPost struct {
	Item        catalog.Item
	Side        Side
	Left, Right *stripMedia
	TextClass   string

	BeforeTitle, AfterTitle     template.HTML
	BeforeContent, AfterContent template.HTML
	Content                     template.HTML
	BeforeLink, AfterLink       template.HTML
	Link                        string
}

type stripView struct {
	Title, EmptyMessage, ClassName string
	BeforeTitle, AfterTitle        template.HTML
	BeforePosts, AfterPosts        template.HTML
	Posts                          []stripPost
}

func (s Strip) Render(ctx context.Context, items []catalog.Item) (template.HTML, error) {
	h := s.Hooks
	pattern := s.ReadMorePath
	if pattern == "" {
		pattern = DefaultStripPath
	}

	v := stripView{
		Title:        s.Title,
		EmptyMessage: s.EmptyMessage,
		ClassName:    s.ClassName,
		BeforeTitle:  h.Render(hooks.BeforeTitle),
		AfterTitle:   h.Render(hooks.AfterTitle),
		BeforePosts:  h.Render(hooks.BeforePosts),
		Posts:        make([]stripPost, 0, len(items)),
	}

	for i, it := range items {
		p := stripPost{
			Item:      it,
			Side:      Placement(i, s.MediaLeft, s.MediaRight),
			TextClass: "section-standard__text--wide",
		}
		if it.MainMedia != "" {
			p.TextClass = "section-standard__text"
			m := &stripMedia{
				Before: h.RenderItem(hooks.BeforePostMedia, it),
				Media:  newMedia(it.MainMedia, it.Title, "section-standard__image", s.ClickableMedia),
				After:  h.RenderItem(hooks.AfterPostMedia, it),
			}
			if p.Side == SideLeft {
				p.Left = m
			} else {
				p.Right = m
			}
		}
		p.BeforeTitle = h.RenderItem(hooks.BeforePostTitle, it)
		p.AfterTitle = h.RenderItem(hooks.AfterPostTitle, it)
		p.BeforeContent = h.RenderItem(hooks.BeforePostContent, it)
		p.Content = template.HTML(Truncate(it.Content, s.ContentLength))
		p.AfterContent = h.RenderItem(hooks.AfterPostContent, it)
		if s.ReadMore {
			p.BeforeLink = h.RenderItem(hooks.BeforePostLink, it)
			p.Link = ItemPath(pattern, it)
			p.AfterLink = h.RenderItem(hooks.AfterPostLink, it)
		}
		v.Posts = append(v.Posts, p)
	}
	v.AfterPosts = h.Render(hooks.AfterPosts)

	return observe(ctx, s.Metrics, "strip", func() (template.HTML, error) {
		return execute("strip", v)
	})
}
