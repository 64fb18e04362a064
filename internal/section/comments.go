package section

import (
	"context"
	"html/template"
	"net/url"
	"strings"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
)

// CommentInput is what the detail view hands to the comment subsystem.
type CommentInput struct {
	Item             catalog.Item
	Comments         []catalog.Comment
	EnableCommenting bool
	APIPath          string

	// BeforeForm and AfterForm are hook output to place around the form.
	// They are set even when commenting is disabled.
	BeforeForm template.HTML
	AfterForm  template.HTML
}

type CommentRenderer interface {
	RenderComments(ctx context.Context, in CommentInput) (template.HTML, error)
}

// CommentList renders comments as a flat list and, when commenting is
// enabled, a form that posts to {APIPath}/{id}/comments.
type CommentList struct{}

func (CommentList) RenderComments(_ context.Context, in CommentInput) (template.HTML, error) {
	return execute("comments", struct {
		CommentInput
		Action string
	}{in, strings.TrimRight(in.APIPath, "/") + "/" + url.PathEscape(in.Item.ID) + "/comments"})
}
