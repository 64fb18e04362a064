package section

import (
	"context"
	"html/template"
	"time"

	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
)

// Metrics is implemented by the metrics package. A nil Metrics is ignored.
type Metrics interface {
	ObserveRender(layout string, seconds float64, err error)
	IncDelete(stage string)
}

// observe runs render, records its duration and logs failures.
func observe(ctx context.Context, m Metrics, layout string, render func() (template.HTML, error)) (template.HTML, error) {
	start := time.Now()
	out, err := render()
	if m != nil {
		m.ObserveRender(layout, time.Since(start).Seconds(), err)
	}
	if err != nil {
		log.FromContext(ctx).Error(ctx, err, "section render failed", "layout", layout)
	}
	return out, err
}
