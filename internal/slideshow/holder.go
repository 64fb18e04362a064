package slideshow

import (
	"sync"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
)

// Holder owns the running slideshow and replaces it when the catalog
// changes. The replaced instance is closed so its timer never fires again.
type Holder struct {
	opts Options

	mu     sync.Mutex
	cur    *Slideshow
	closed bool
}

// NewHolder starts with an empty slideshow.
func NewHolder(opts Options) *Holder {
	return &Holder{opts: opts, cur: New(nil, opts)}
}

// Replace starts a slideshow over items and closes the previous one.
// After Close it does nothing.
func (h *Holder) Replace(items []catalog.Item) {
	next := New(items, h.opts)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	prev := h.cur
	h.cur = next
	next.Start()
	h.mu.Unlock()

	prev.Close()
}

func (h *Holder) Get() *Slideshow {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur
}

// Close stops the current slideshow. It is idempotent.
func (h *Holder) Close() {
	h.mu.Lock()
	h.closed = true
	cur := h.cur
	h.mu.Unlock()
	cur.Close()
}
