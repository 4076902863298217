package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helloakshay27/hi-society-assets/internal/prefs"
)

// PrefsHandler serves the per-deployment display preferences.
type PrefsHandler struct {
	store prefs.Store
}

func NewPrefsHandler(store prefs.Store) *PrefsHandler {
	return &PrefsHandler{store: store}
}

// All returns every stored preference.
// GET /v1/prefs
func (h *PrefsHandler) All(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.All(r.Context())
	if err != nil {
		apiErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

// Set upserts one preference value.
// PUT /v1/prefs/{key}
func (h *PrefsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.store.Set(r.Context(), key, req.Value); err != nil {
		apiErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{key: req.Value})
}
