package section

import (
	"context"
	"html/template"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
)

const DefaultCardPath = "/posts/{id}"

// Cards renders items as a grid of cards.
type Cards struct {
	Title         string
	ContentLength int
	ReadMore      bool
	// ReadMorePath is expanded with ItemPath. Defaults to DefaultCardPath.
	ReadMorePath string

	Metrics Metrics
}

type cardView struct {
	Item    catalog.Item
	Media   *mediaView
	Content template.HTML
	Link    string
}

func (c Cards) Render(ctx context.Context, items []catalog.Item) (template.HTML, error) {
	pattern := c.ReadMorePath
	if pattern == "" {
		pattern = DefaultCardPath
	}
	cards := make([]cardView, 0, len(items))
	for _, it := range items {
		cv := cardView{
			Item:    it,
			Media:   newMedia(it.MainMedia, it.Title, "section-cards__image", false),
			Content: template.HTML(Truncate(it.Content, c.ContentLength)),
		}
		if c.ReadMore {
			cv.Link = ItemPath(pattern, it)
		}
		cards = append(cards, cv)
	}

	return observe(ctx, c.Metrics, "cards", func() (template.HTML, error) {
		return execute("cards", struct {
			Title string
			Cards []cardView
		}{c.Title, cards})
	})
}
