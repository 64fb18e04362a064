package sitehttp

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
	"github.com/keithlinneman/linnemanlabs-sections/internal/section"
	"github.com/keithlinneman/linnemanlabs-sections/internal/slideshow"
	"github.com/keithlinneman/linnemanlabs-sections/internal/viewer"
	"github.com/keithlinneman/linnemanlabs-sections/internal/webassets"
	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

const (
	LayoutCards = "cards"
	LayoutStrip = "strip"
)

// Renderer draws a listing. section.Cards and section.Strip implement it.
type Renderer interface {
	Render(ctx context.Context, items []catalog.Item) (template.HTML, error)
}

type Metrics interface {
	IncSlideshowSelect()
}

type Options struct {
	Logger     log.Logger
	Store      *catalog.Store
	Collection string

	// Listing draws GET /{collection}.
	Listing Renderer
	Detail  section.Detail

	// API performs deletes. Nil answers delete requests with 503.
	API section.APIClient

	Slideshow *slideshow.Holder
	// AdminToken is handed to viewer.Middleware.
	AdminToken string
	Metrics    Metrics
}

type Site struct {
	opts     Options
	logger   log.Logger
	page     *template.Template
	static   http.Handler
	fallback fs.FS
}

func New(opts Options) (*Site, error) {
	switch {
	case opts.Store == nil:
		return nil, xerrors.New("sitehttp: store is required")
	case opts.Listing == nil:
		return nil, xerrors.New("sitehttp: listing renderer is required")
	case opts.Collection == "":
		return nil, xerrors.New("sitehttp: collection is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Slideshow == nil {
		opts.Slideshow = slideshow.NewHolder(slideshow.Options{})
	}
	d := &opts.Detail.Options
	if d.PathPrefix == "" {
		d.PathPrefix = opts.Collection
	}
	if d.RedirectRoute == "" {
		d.RedirectRoute = "/" + opts.Collection
	}
	// no editor is mounted here
	d.HideEdit = true
	return &Site{
		opts:     opts,
		logger:   opts.Logger,
		page:     webassets.Layout(),
		static:   http.StripPrefix("/static/", http.FileServerFS(webassets.StaticFS())),
		fallback: webassets.FallbackFS(),
	}, nil
}

// RegisterRoutes mounts the site. Static assets skip the viewer middleware.
func (s *Site) RegisterRoutes(r chi.Router) {
	r.Get("/static/*", s.handleStatic)

	r.Group(func(r chi.Router) {
		r.Use(viewer.Middleware(s.opts.AdminToken))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/"+s.opts.Collection, http.StatusFound)
		})
		r.Get("/slideshow", s.handleSlideshow)
		r.Post("/slideshow/select", s.handleSlideshowSelect)

		r.Route("/"+s.opts.Collection, func(r chi.Router) {
			r.Use(sameOrigin)
			r.Get("/", s.handleListing)
			r.Get("/{ref}", s.handleDetail)
			r.Get("/{ref}/delete", s.handleDeleteConfirm)
			r.Post("/{ref}/delete", s.handleDelete)
		})
	})

	r.NotFound(s.notFound)
}

type pageData struct {
	Title          string
	Description    string
	Image          string
	Keywords       string
	Collection     string
	CatalogVersion string
	Admin          bool
	Body           template.HTML
}

func (s *Site) newPage(r *http.Request, title string, body template.HTML) pageData {
	return pageData{
		Title:          title,
		Collection:     s.opts.Collection,
		CatalogVersion: s.opts.Store.CatalogVersion(),
		Admin:          viewer.FromContext(r.Context()).IsAdmin,
		Body:           body,
	}
}

// writePage renders into a buffer first so a template error still yields
// a clean 500.
func (s *Site) writePage(w http.ResponseWriter, r *http.Request, status int, p pageData) {
	var buf bytes.Buffer
	if err := s.page.ExecuteTemplate(&buf, "page", p); err != nil {
		s.serverError(w, r, xerrors.Wrap(err, "execute page template"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Site) fragment(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.page.ExecuteTemplate(&buf, name, data); err != nil {
		return "", xerrors.Wrapf(err, "execute %s template", name)
	}
	return template.HTML(buf.String()), nil
}

func (s *Site) serveFallback(w http.ResponseWriter, status int, name string) {
	data, err := fs.ReadFile(s.fallback, name)
	if err != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Site) notFound(w http.ResponseWriter, _ *http.Request) {
	s.serveFallback(w, http.StatusNotFound, "404.html")
}

func (s *Site) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), err, "render failed", "url.path", r.URL.Path)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// ready answers 503 with the maintenance page until a catalog is loaded.
func (s *Site) ready(w http.ResponseWriter) bool {
	if s.opts.Store.ReadyErr() != nil {
		w.Header().Set("Retry-After", "30")
		s.serveFallback(w, http.StatusServiceUnavailable, "maintenance.html")
		return false
	}
	return true
}

func (s *Site) handleStatic(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	s.static.ServeHTTP(w, r)
}

func (s *Site) itemPath(it catalog.Item) string {
	return section.ItemPath("/"+s.opts.Collection+"/{slug}", it)
}
