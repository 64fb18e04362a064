// Package catalogapi serves the active catalog as JSON: a summary of the
// loaded snapshot and the tag filter over HTTP.
package catalogapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
	"github.com/keithlinneman/linnemanlabs-sections/internal/version"
)

// DefaultMax bounds /api/catalog/items when max is absent. MaxLimit caps
// what a caller can ask for.
const (
	DefaultMax = 20
	MaxLimit   = 200
)

type SnapshotProvider interface {
	Get() (*catalog.Snapshot, bool)
}

type API struct {
	catalog SnapshotProvider
	logger  log.Logger
	now     func() time.Time
}

func NewAPI(p SnapshotProvider, logger log.Logger) *API {
	if logger == nil {
		logger = log.Nop()
	}
	return &API{catalog: p, logger: logger, now: time.Now}
}

func (api *API) RegisterRoutes(r chi.Router) {
	r.Get("/api/catalog", api.HandleSummary)
	r.Get("/api/catalog/items", api.HandleItems)
}

type SummaryResponse struct {
	Version    string         `json:"version,omitempty"`
	Hash       string         `json:"sha256,omitempty"`
	Source     catalog.Source `json:"source"`
	Signed     bool           `json:"signed"`
	VerifiedAt time.Time      `json:"verified_at,omitzero"`
	LoadedAt   time.Time      `json:"loaded_at,omitzero"`
	Items      int            `json:"items"`
	Published  int            `json:"published"`
	Kinds      map[string]int `json:"kinds"`
	ServerTime time.Time      `json:"server_time"`
	Server     version.Info   `json:"server"`
	Error      string         `json:"error,omitempty"`
}

type ItemsResponse struct {
	Criteria catalog.Criteria `json:"criteria"`
	Count    int              `json:"count"`
	Items    []catalog.Item   `json:"items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (api *API) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := SummaryResponse{
		Source:     catalog.SourceUnknown,
		Kinds:      map[string]int{},
		ServerTime: api.now().UTC().Truncate(time.Second),
		Server:     version.Get(),
	}

	snap, ok := api.catalog.Get()
	if !ok {
		resp.Error = "no catalog loaded"
		api.writeJSON(ctx, w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Version = snap.Meta.Version
	resp.Hash = snap.Meta.Hash
	resp.Source = snap.Meta.Source
	resp.Signed = snap.Meta.Signed
	resp.VerifiedAt = snap.Meta.VerifiedAt.Truncate(time.Second)
	resp.LoadedAt = snap.LoadedAt.Truncate(time.Second)
	resp.Items = len(snap.Items)
	for _, it := range snap.Items {
		resp.Kinds[string(it.Kind)]++
		if it.Published {
			resp.Published++
		}
	}

	api.logger.Debug(ctx, "served catalog summary", "version", resp.Version, "hash", resp.Hash)
	api.writeJSON(ctx, w, http.StatusOK, resp)
}

// HandleItems filters the catalog by every ?tag= given, returning at most
// ?max= items in catalog order.
func (api *API) HandleItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	c := catalog.Criteria{MaxItems: DefaultMax, RequiredTags: q["tag"]}
	if s := q.Get("max"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			api.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "max must be a non-negative integer"})
			return
		}
		c.MaxItems = min(n, MaxLimit)
	}

	snap, ok := api.catalog.Get()
	if !ok {
		api.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Error: "no catalog loaded"})
		return
	}

	items := catalog.Filter(snap.Items, c)
	api.logger.Debug(ctx, "served catalog items", "tags", c.RequiredTags, "max", c.MaxItems, "count", len(items))
	api.writeJSON(ctx, w, http.StatusOK, ItemsResponse{Criteria: c, Count: len(items), Items: items})
}

func (api *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
