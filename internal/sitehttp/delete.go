package sitehttp

import (
	"context"
	"net/http"

	"github.com/keithlinneman/linnemanlabs-sections/internal/section"
	"github.com/keithlinneman/linnemanlabs-sections/internal/viewer"
)

// formConfirm answers the confirmation with what the form submitted.
type formConfirm bool

func (c formConfirm) Confirm(context.Context, string) bool { return bool(c) }

// redirector records the route; the handler issues the redirect once the
// delete has finished.
type redirector struct {
	route string
}

func (n *redirector) Navigate(_ context.Context, route string) { n.route = route }

func (s *Site) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !viewer.FromContext(r.Context()).IsAdmin {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return false
	}
	return true
}

func (s *Site) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	it, ok := s.lookup(w, r)
	if !ok {
		return
	}
	itemPath := s.itemPath(it)
	body, err := s.fragment("confirm", map[string]string{
		"Message": section.ConfirmMessage,
		"Action":  r.URL.Path,
		"Cancel":  itemPath,
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.writePage(w, r, http.StatusOK, s.newPage(r, "Delete "+it.Title, body))
}

func (s *Site) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if s.opts.API == nil {
		http.Error(w, "content API not configured", http.StatusServiceUnavailable)
		return
	}
	it, ok := s.lookup(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	nav := &redirector{}
	res := s.opts.Detail.Delete(ctx, &it, section.Ports{
		Confirm:   formConfirm(r.PostFormValue("confirm") == "yes"),
		API:       s.opts.API,
		Store:     s.opts.Store,
		Navigator: nav,
	}).Wait(ctx)

	switch res.Stage {
	case section.StageNavigated:
		http.Redirect(w, r, nav.route, http.StatusSeeOther)
	case section.StageRemoved:
		http.Redirect(w, r, res.Route, http.StatusSeeOther)
	case section.StageDeclined:
		http.Redirect(w, r, s.itemPath(it), http.StatusSeeOther)
	case section.StageRequest:
		s.renderDetail(w, r, http.StatusBadGateway, &it)
	default:
		// the client went away before the API answered
		s.logger.Warn(ctx, "delete abandoned", "id", it.ID, "error", res.Err)
	}
}
