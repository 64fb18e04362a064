package sitehttp

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/slideshow"
	"github.com/keithlinneman/linnemanlabs-sections/internal/viewer"
)

func (s *Site) handleListing(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	items := s.opts.Store.Items()
	body, err := s.opts.Listing.Render(r.Context(), items)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	title := "Linnemanlabs"
	if hdr, ok := catalog.HeaderItem(items); ok && hdr.Title != "" {
		title = hdr.Title
	}
	s.writePage(w, r, http.StatusOK, s.newPage(r, title, body))
}

// lookup resolves {ref} to an item, writing 404 or 503 when it cannot.
func (s *Site) lookup(w http.ResponseWriter, r *http.Request) (catalog.Item, bool) {
	if !s.ready(w) {
		return catalog.Item{}, false
	}
	it, ok := s.opts.Store.Lookup(chi.URLParam(r, "ref"))
	if !ok {
		s.notFound(w, r)
		return catalog.Item{}, false
	}
	return it, true
}

func (s *Site) handleDetail(w http.ResponseWriter, r *http.Request) {
	it, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.renderDetail(w, r, http.StatusOK, &it)
}

func (s *Site) renderDetail(w http.ResponseWriter, r *http.Request, status int, it *catalog.Item) {
	ctx := r.Context()
	view, err := s.opts.Detail.Render(ctx, it, viewer.FromContext(ctx), s.opts.Store.Items())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	p := s.newPage(r, view.Title, view.HTML)
	p.Description = view.Description
	p.Image = view.Image
	p.Keywords = view.Keywords
	s.writePage(w, r, status, p)
}

// handleSlideshow renders the shared slideshow, or a per-request copy
// stopped at ?index=k so one viewer's pick never halts cycling for others.
func (s *Site) handleSlideshow(w http.ResponseWriter, r *http.Request) {
	show := s.opts.Slideshow.Get()
	if raw := r.URL.Query().Get("index"); raw != "" {
		picked, ok := s.selectSlide(w, r, show, raw)
		if !ok {
			return
		}
		show = picked
	}
	body, err := show.Render(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.writePage(w, r, http.StatusOK, s.newPage(r, "Slideshow", body))
}

func (s *Site) handleSlideshowSelect(w http.ResponseWriter, r *http.Request) {
	raw := r.PostFormValue("index")
	if _, ok := s.selectSlide(w, r, s.opts.Slideshow.Get(), raw); !ok {
		return
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.IncSlideshowSelect()
	}
	http.Redirect(w, r, "/slideshow?index="+url.QueryEscape(raw), http.StatusSeeOther)
}

// selectSlide parses raw and returns a copy of show stopped at that slide,
// writing 400 when the index is unusable.
func (s *Site) selectSlide(w http.ResponseWriter, r *http.Request, show *slideshow.Slideshow, raw string) (*slideshow.Slideshow, bool) {
	k, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "index must be an integer", http.StatusBadRequest)
		return nil, false
	}
	picked, err := show.Selected(k)
	if err != nil {
		if errors.Is(err, slideshow.ErrIndexOutOfRange) {
			http.Error(w, "index out of range", http.StatusBadRequest)
			return nil, false
		}
		s.serverError(w, r, err)
		return nil, false
	}
	return picked, true
}
