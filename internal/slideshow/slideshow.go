// Package slideshow cycles through a fixed list of items on a timer.
//
// A Slideshow starts Idle when it has no items and never arms a timer in
// that state. Otherwise Start arms a repeating timer that advances the
// current slide. Select jumps to a slide and stops cycling for good. Close
// stops everything; no callback runs after it returns.
package slideshow

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/clock"
	"github.com/keithlinneman/linnemanlabs-sections/internal/section"
	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

const DefaultInterval = 5 * time.Second

var ErrIndexOutOfRange = errors.New("slideshow: index out of range")

type State int

const (
	Idle State = iota
	Cycling
)

func (s State) String() string {
	if s == Cycling {
		return "cycling"
	}
	return "idle"
}

type Options struct {
	Interval time.Duration
	Clock    clock.Clock

	EmptyTitle   string
	EmptyMessage string
	// SelectPath is where the slide picker form posts. Empty renders the
	// picker without a form action.
	SelectPath string

	// OnAdvance is called with the new index after each timer advance,
	// outside the lock.
	OnAdvance func(index int)
}

type Slideshow struct {
	opts  Options
	items []catalog.Item

	mu      sync.Mutex
	current int
	timer   *clock.Timer
	gen     uint64
	stopped bool // Select or Close ended cycling
}

// New copies items. It does not start the timer.
func New(items []catalog.Item, opts Options) *Slideshow {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Slideshow{opts: opts, items: append([]catalog.Item(nil), items...)}
}

// Start arms the advance timer. It is a no-op with no items, after Select
// or Close, or while a timer is already armed.
func (s *Slideshow) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 || s.stopped || s.timer != nil {
		return
	}
	s.arm()
}

// arm replaces any pending timer. Callers hold mu.
func (s *Slideshow) arm() {
	s.cancel()
	gen := s.gen
	s.timer = s.opts.Clock.AfterFunc(s.opts.Interval, func() { s.tick(gen) })
}

// cancel stops the pending timer and invalidates callbacks already in
// flight. Callers hold mu.
func (s *Slideshow) cancel() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Slideshow) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.stopped {
		s.mu.Unlock()
		return
	}
	s.current = (s.current + 1) % len(s.items)
	idx := s.current
	s.arm()
	s.mu.Unlock()

	if s.opts.OnAdvance != nil {
		s.opts.OnAdvance(idx)
	}
}

// Select shows slide k and stops cycling.
func (s *Slideshow) Select(k int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k < 0 || k >= len(s.items) {
		return xerrors.Wrapf(ErrIndexOutOfRange, "select %d of %d", k, len(s.items))
	}
	s.cancel()
	s.stopped = true
	s.current = k
	return nil
}

// Selected returns a stopped copy of s showing slide k. s itself keeps
// cycling.
func (s *Slideshow) Selected(k int) (*Slideshow, error) {
	c := &Slideshow{opts: s.opts, items: s.items}
	if err := c.Select(k); err != nil {
		return nil, err
	}
	return c, nil
}

// Close stops the timer. Safe to call more than once.
func (s *Slideshow) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	s.stopped = true
}

func (s *Slideshow) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// State is Idle for an empty slideshow and Cycling otherwise, including
// after Select.
func (s *Slideshow) State() State {
	if len(s.items) == 0 {
		return Idle
	}
	return Cycling
}

// Len is the number of slides.
func (s *Slideshow) Len() int { return len(s.items) }

// Armed reports whether an advance is pending.
func (s *Slideshow) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

type slideView struct {
	Index   int
	Item    catalog.Item
	Media   template.HTML
	Current bool
}

// Render draws every slide, hiding all but the current one, followed by a
// radio picker.
func (s *Slideshow) Render(_ context.Context) (template.HTML, error) {
	if len(s.items) == 0 {
		return execute("slideshow-empty", s.opts)
	}
	cur := s.Current()
	slides := make([]slideView, len(s.items))
	for i, it := range s.items {
		m, err := section.Media(it.MainMedia, it.Title, "slide__media", false)
		if err != nil {
			return "", err
		}
		slides[i] = slideView{Index: i, Item: it, Media: m, Current: i == cur}
	}
	return execute("slideshow", struct {
		Slides     []slideView
		SelectPath string
	}{slides, s.opts.SelectPath})
}

func execute(name string, data any) (template.HTML, error) {
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", xerrors.Wrapf(err, "execute %s template", name)
	}
	return template.HTML(b.String()), nil
}
