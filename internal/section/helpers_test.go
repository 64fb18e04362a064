package section

import (
	"fmt"
	"html/template"
	"regexp"
	"sync"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
)

func post(id string, media bool) catalog.Item {
	it := catalog.Item{
		ID:        id,
		Kind:      catalog.KindPost,
		Title:     "Title " + id,
		Content:   "<p>content of " + id + "</p>",
		Published: true,
	}
	if media {
		it.MainMedia = "/media/" + id + ".jpg"
	}
	return it
}

var mediaSideRe = regexp.MustCompile(`data-media="(left|right)"`)

// spyMetrics records render and delete observations.
type spyMetrics struct {
	mu      sync.Mutex
	renders []string
	deletes []string
}

func (m *spyMetrics) ObserveRender(layout string, _ float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renders = append(m.renders, fmt.Sprintf("%s:%v", layout, err == nil))
}

func (m *spyMetrics) IncDelete(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, stage)
}

func marker(name string) template.HTML { return template.HTML("<!--" + name + "-->") }
