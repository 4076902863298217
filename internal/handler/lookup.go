package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helloakshay27/hi-society-assets/internal/assetapi"
	"github.com/helloakshay27/hi-society-assets/internal/types"
)

// LookupHandler proxies the upstream option lists the form depends on.
type LookupHandler struct {
	upstream *assetapi.Client
}

func NewLookupHandler(upstream *assetapi.Client) *LookupHandler {
	return &LookupHandler{upstream: upstream}
}

// Get proxies one independent lookup. A failed upstream call logs and
// returns an empty list so the form stays usable.
// GET /v1/lookups/{kind}?filter=
func (h *LookupHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind := assetapi.LookupKind(chi.URLParam(r, "kind"))
	if !assetapi.ValidLookup(kind) {
		writeError(w, http.StatusNotFound, "UNKNOWN_LOOKUP", "unknown lookup kind")
		return
	}
	opts, err := h.upstream.Lookup(r.Context(), kind, r.URL.Query().Get("filter"))
	if err != nil {
		log.Printf("lookup %s: %v", kind, err)
		opts = nil
	}
	writeOptions(w, opts)
}

// Locations serves the sequential location cascade. Exactly one parent
// id parameter selects the level: none → sites, site_id → buildings,
// building_id → wings, wing_id → areas, area_id → floors, floor_id →
// rooms.
// GET /v1/lookups/locations
func (h *LookupHandler) Locations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts []types.Option
	var err error
	switch {
	case q.Get("floor_id") != "":
		opts, err = h.upstream.Rooms(r.Context(), q.Get("floor_id"))
	case q.Get("area_id") != "":
		opts, err = h.upstream.Floors(r.Context(), q.Get("area_id"))
	case q.Get("wing_id") != "":
		opts, err = h.upstream.Areas(r.Context(), q.Get("wing_id"))
	case q.Get("building_id") != "":
		opts, err = h.upstream.Wings(r.Context(), q.Get("building_id"))
	case q.Get("site_id") != "":
		opts, err = h.upstream.Buildings(r.Context(), q.Get("site_id"))
	default:
		opts, err = h.upstream.Sites(r.Context())
	}
	if err != nil {
		log.Printf("location lookup: %v", err)
		opts = nil
	}
	writeOptions(w, opts)
}

func writeOptions(w http.ResponseWriter, opts []types.Option) {
	if opts == nil {
		opts = []types.Option{}
	}
	writeJSON(w, http.StatusOK, map[string][]types.Option{"options": opts})
}
