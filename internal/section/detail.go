package section

import (
	"context"
	"html/template"
	"strings"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/hooks"
	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
	"github.com/keithlinneman/linnemanlabs-sections/internal/viewer"
)

const (
	DefaultAPIPath       = "/api/posts"
	DefaultPathPrefix    = "posts"
	DefaultRedirectRoute = "/posts"
)

type Options struct {
	EnableCommenting bool
	// APIPath is the collection endpoint used for deletes and comments.
	APIPath string
	// PathPrefix is the first path segment of edit and delete links.
	PathPrefix string
	// RedirectRoute is where the viewer goes after a successful delete.
	RedirectRoute string
	// HideEdit drops the Edit button for hosts that serve no editor.
	HideEdit bool

	EmptyTitle   string
	EmptyMessage string
	ClassName    string
}

func (o Options) withDefaults() Options {
	if o.APIPath == "" {
		o.APIPath = DefaultAPIPath
	}
	if o.PathPrefix == "" {
		o.PathPrefix = DefaultPathPrefix
	}
	if o.RedirectRoute == "" {
		o.RedirectRoute = DefaultRedirectRoute
	}
	return o
}

// Detail renders one item with its admin controls and comments.
type Detail struct {
	Options  Options
	Hooks    *hooks.Set
	Comments CommentRenderer
	Metrics  Metrics
	Logger   log.Logger
}

// View is a rendered detail page plus the metadata for the page head.
type View struct {
	Title       string
	Description string
	Image       string
	Keywords    string
	HTML        template.HTML
}

type detailView struct {
	Item      catalog.Item
	ClassName string
	Admin     bool
	ShowTags  bool
	Media     *mediaView
	Content   template.HTML
	// EditPath is empty when the Edit button is hidden.
	EditPath string
	// DeletePath leads to the delete confirmation.
	DeletePath string
	Comments   template.HTML

	BeforePost, AfterPost           template.HTML
	BeforeTitle, AfterTitle         template.HTML
	BeforeMainMedia, AfterMainMedia template.HTML
	BeforeContent, AfterContent     template.HTML
	BeforeComments, AfterComments   template.HTML
}

// Render produces the view for item. A nil or empty item yields only the
// empty title and message. all is searched for the section-header item
// that prefixes the page title.
func (d Detail) Render(ctx context.Context, item *catalog.Item, v viewer.Viewer, all []catalog.Item) (View, error) {
	opts := d.Options.withDefaults()

	if item == nil || item.IsZero() {
		html, err := observe(ctx, d.Metrics, "detail", func() (template.HTML, error) {
			return execute("detail-empty", opts)
		})
		return View{Title: opts.EmptyTitle, HTML: html}, err
	}
	it := *item
	h := d.Hooks

	view := View{
		Title:       it.Title,
		Description: Description(it.Content),
		Image:       it.MainMedia,
		Keywords:    strings.Join(it.Tags, ","),
	}
	if hdr, ok := catalog.HeaderItem(all); ok && it.Title != "" {
		view.Title = hdr.Title + " | " + it.Title
	}

	dv := detailView{
		Item:       it,
		ClassName:  opts.ClassName,
		Admin:      v.IsAdmin,
		ShowTags:   v.IsAdmin && len(it.Tags) > 0,
		Media:      newMedia(it.MainMedia, it.Title, "post__media", false),
		Content:    template.HTML(it.Content),
		DeletePath: joinPath(opts.PathPrefix, it.Ref(), "delete"),
	}
	if !opts.HideEdit {
		dv.EditPath = joinPath(opts.PathPrefix, it.Ref(), "edit")
	}
	dv.BeforePost = h.Render(hooks.BeforePost)
	dv.BeforeTitle = h.Render(hooks.BeforeTitle)
	dv.AfterTitle = h.Render(hooks.AfterTitle)
	dv.BeforeMainMedia = h.Render(hooks.BeforeMainMedia)
	dv.AfterMainMedia = h.Render(hooks.AfterMainMedia)
	dv.BeforeContent = h.Render(hooks.BeforeContent)
	dv.AfterContent = h.Render(hooks.AfterContent)
	dv.BeforeComments = h.Render(hooks.BeforeComments)

	comments := d.Comments
	if comments == nil {
		comments = CommentList{}
	}
	in := CommentInput{
		Item:             it,
		Comments:         it.Comments,
		EnableCommenting: opts.EnableCommenting,
		APIPath:          opts.APIPath,
		// filled either way; the renderer decides whether a form shows
		BeforeForm: h.Render(hooks.BeforeCommentForm),
		AfterForm:  h.Render(hooks.AfterCommentForm),
	}
	var err error
	if dv.Comments, err = comments.RenderComments(ctx, in); err != nil {
		return View{}, err
	}
	dv.AfterComments = h.Render(hooks.AfterComments)
	dv.AfterPost = h.Render(hooks.AfterPost)

	view.HTML, err = observe(ctx, d.Metrics, "detail", func() (template.HTML, error) {
		return execute("detail", dv)
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

// Description is content with its first paragraph tags removed, used for
// the page description meta tag.
func Description(content string) string {
	s := strings.Replace(content, "<p>", "", 1)
	return strings.Replace(s, "</p>", "", 1)
}
