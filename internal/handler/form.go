// Package handler implements the HTTP surface of the form gateway:
// session lifecycle, field changes, validation, attachment queueing,
// submission, lookups, and preferences.
package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helloakshay27/hi-society-assets/internal/assetapi"
	"github.com/helloakshay27/hi-society-assets/internal/attach"
	"github.com/helloakshay27/hi-society-assets/internal/category"
	"github.com/helloakshay27/hi-society-assets/internal/form"
	"github.com/helloakshay27/hi-society-assets/internal/notify"
	"github.com/helloakshay27/hi-society-assets/internal/payload"
	"github.com/helloakshay27/hi-society-assets/internal/reconcile"
	"github.com/helloakshay27/hi-society-assets/internal/types"
	"github.com/helloakshay27/hi-society-assets/internal/validate"
)

// FormHandler owns edit sessions and their pending-upload buckets.
type FormHandler struct {
	sessions *form.Manager
	upstream *assetapi.Client
	bus      *notify.Bus

	mu      sync.Mutex
	uploads map[string]*attach.Set
}

// NewFormHandler creates the form handler over the shared session
// manager and upstream client.
func NewFormHandler(sessions *form.Manager, upstream *assetapi.Client, bus *notify.Bus) *FormHandler {
	return &FormHandler{
		sessions: sessions,
		upstream: upstream,
		bus:      bus,
		uploads:  make(map[string]*attach.Set),
	}
}

// Create fetches the asset record upstream and opens an edit session.
// POST /v1/assets/{assetID}/form
func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	assetID, err := strconv.Atoi(chi.URLParam(r, "assetID"))
	if err != nil || assetID <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return
	}

	rec, err := h.upstream.GetAsset(r.Context(), assetID)
	if err != nil {
		apiErrorToHTTP(w, err)
		return
	}
	if !category.Valid(category.Category(rec.AssetCategory)) {
		writeError(w, http.StatusUnprocessableEntity, "UNKNOWN_CATEGORY",
			fmt.Sprintf("asset category %q has no rule table", rec.AssetCategory))
		return
	}

	state := form.Load(rec)
	sess := h.sessions.Create(state)
	h.mu.Lock()
	h.uploads[sess.ID] = attach.NewSet()
	h.mu.Unlock()

	h.publish(sess.ID, notify.Event{Type: notify.EventSessionOpened, AssetID: assetID})
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"asset_id":   assetID,
		"category":   state.Category,
		"state":      state,
	})
}

// Get returns the current form state.
// GET /v1/forms/{sessionID}
func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	_ = sess.With(func(s *types.FormState) error {
		writeJSON(w, http.StatusOK, s)
		return nil
	})
}

// ApplyField applies one field change with live guards.
// POST /v1/forms/{sessionID}/fields
func (h *FormHandler) ApplyField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var change form.FieldChange
	if err := decodeJSON(r, &change); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if change.Field == "" {
		writeError(w, http.StatusBadRequest, "EMPTY_FIELD", "field name is required")
		return
	}

	var result form.ChangeResult
	var assetID int
	err := sess.With(func(s *types.FormState) error {
		assetID = s.AssetID
		var applyErr error
		result, applyErr = form.Apply(s, change)
		return applyErr
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "UNKNOWN_FIELD", err.Error())
		return
	}

	h.publish(sess.ID, notify.Event{Type: notify.EventFieldChanged, AssetID: assetID, Field: change.Field})
	if result.Warning != nil {
		h.publish(sess.ID, notify.Event{
			Type: notify.EventGuardWarning, AssetID: assetID,
			Field: result.Warning.Field, Message: result.Warning.Message,
		})
	}
	writeJSON(w, http.StatusOK, result)
}

// AddCustomField adds one user-defined field to a section.
// POST /v1/forms/{sessionID}/custom-fields
func (h *FormHandler) AddCustomField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Group string `json:"group"`
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if req.Group == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "group and name are required")
		return
	}

	var field types.CustomField
	err := sess.With(func(s *types.FormState) error {
		var addErr error
		field, addErr = form.AddCustomField(s, req.Group, req.Name, req.Value)
		return addErr
	})
	if err != nil {
		writeError(w, http.StatusConflict, "DUPLICATE_FIELD", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, field)
}

// RemoveCustomField removes one user-defined field; on submit the diff
// emits its tombstone.
// DELETE /v1/forms/{sessionID}/custom-fields
func (h *FormHandler) RemoveCustomField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	group := r.URL.Query().Get("group")
	name := r.URL.Query().Get("name")
	if group == "" || name == "" {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "group and name query parameters are required")
		return
	}
	err := sess.With(func(s *types.FormState) error {
		return form.RemoveCustomField(s, group, name)
	})
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMeasures replaces both meter-measure lists wholesale.
// POST /v1/forms/{sessionID}/measures
func (h *FormHandler) SetMeasures(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Consumption    []types.MeasureField `json:"consumption"`
		NonConsumption []types.MeasureField `json:"non_consumption"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	_ = sess.With(func(s *types.FormState) error {
		form.SetMeasures(s, req.Consumption, req.NonConsumption)
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

// Validate runs the category rule sequence and returns the messages
// (empty array when valid).
// POST /v1/forms/{sessionID}/validate
func (h *FormHandler) Validate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var errs []string
	var assetID int
	_ = sess.With(func(s *types.FormState) error {
		assetID = s.AssetID
		errs = validate.Validate(category.Category(s.Category), s)
		return nil
	})
	if len(errs) > 0 {
		h.publish(sess.ID, notify.Event{Type: notify.EventValidationFailed, AssetID: assetID, Message: errs[0]})
	}
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"errors": errs})
}

// Submit validates, diffs, assembles, and PUTs the update upstream.
// Non-empty buckets force multipart; otherwise the payload goes as
// JSON. The session closes on success.
// POST /v1/forms/{sessionID}/submit
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var validationErrs []string
	var assetID int
	err := sess.With(func(s *types.FormState) error {
		assetID = s.AssetID
		if errs := validate.Validate(category.Category(s.Category), s); len(errs) > 0 {
			validationErrs = errs
			return nil
		}

		changes := reconcile.BuildChangedAttributes(s.CustomFields, s.ITCustomFields, s.Extra, s.Snapshot)
		body := payload.Build(s, changes)

		set := h.uploadSet(sess.ID)
		if set != nil && set.HasFiles() {
			files, err := attach.CategoryAttachments(category.Category(s.Category), set)
			if err != nil {
				return err
			}
			enc, contentType, err := payload.EncodeMultipart(body, files)
			if err != nil {
				return err
			}
			return h.upstream.UpdateAssetMultipart(r.Context(), s.AssetID, enc, contentType)
		}
		return h.upstream.UpdateAssetJSON(r.Context(), s.AssetID, body)
	})

	if len(validationErrs) > 0 {
		h.publish(sess.ID, notify.Event{Type: notify.EventValidationFailed, AssetID: assetID, Message: validationErrs[0]})
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]string{"errors": validationErrs})
		return
	}
	if err != nil {
		h.publish(sess.ID, notify.Event{Type: notify.EventSubmitFailed, AssetID: assetID, Message: err.Error()})
		apiErrorToHTTP(w, err)
		return
	}

	h.publish(sess.ID, notify.Event{Type: notify.EventSubmitted, AssetID: assetID})
	h.closeSession(sess.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "updated",
		"asset_id": assetID,
	})
}

// Close discards an edit session without submitting.
// DELETE /v1/forms/{sessionID}
func (h *FormHandler) Close(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var assetID int
	_ = sess.With(func(s *types.FormState) error {
		assetID = s.AssetID
		return nil
	})
	h.publish(sess.ID, notify.Event{Type: notify.EventSessionClosed, AssetID: assetID})
	h.closeSession(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *FormHandler) session(w http.ResponseWriter, r *http.Request) (*form.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	sess := h.sessions.Get(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "unknown or expired session")
		return nil, false
	}
	return sess, true
}

func (h *FormHandler) uploadSet(sessionID string) *attach.Set {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.uploads[sessionID]
}

func (h *FormHandler) closeSession(sessionID string) {
	h.sessions.Remove(sessionID)
	h.mu.Lock()
	delete(h.uploads, sessionID)
	h.mu.Unlock()
}

func (h *FormHandler) publish(sessionID string, evt notify.Event) {
	if h.bus == nil {
		return
	}
	if id, err := uuid.Parse(sessionID); err == nil {
		evt.SessionID = id
	}
	h.bus.Publish(evt)
}
