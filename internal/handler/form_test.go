package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helloakshay27/hi-society-assets/internal/assetapi"
	"github.com/helloakshay27/hi-society-assets/internal/category"
	"github.com/helloakshay27/hi-society-assets/internal/form"
	"github.com/helloakshay27/hi-society-assets/internal/prefs"
)

func init() {
	if err := category.Init(); err != nil {
		panic(err)
	}
}

// upstreamStub fakes the asset backend: one Vehicle record, capture of
// the PUT body and content type.
type upstreamStub struct {
	srv *httptest.Server

	putBody        []byte
	putContentType string
	putCalls       int
}

func newUpstreamStub(t *testing.T) *upstreamStub {
	t.Helper()
	stub := &upstreamStub{}
	stub.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/pms/assets/42.json":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{
				"id": 42,
				"asset_category": "Vehicle",
				"core_fields": {
					"asset_name": "Forklift A",
					"site_id": "7",
					"warranty_expiry": "2026-01-01"
				},
				"extra_fields_attributes": [
					{"id": 7, "field_name": "registration_number", "field_value": "MH12AB1234",
					 "group_name": "vehicle_details", "field_description": "section_field"},
					{"id": 8, "field_name": "fuel_type", "field_value": "diesel",
					 "group_name": "vehicle_details", "field_description": "section_field"}
				]
			}`)
		case r.Method == http.MethodPut && r.URL.Path == "/pms/assets/42.json":
			stub.putCalls++
			stub.putContentType = r.Header.Get("Content-Type")
			stub.putBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(stub.srv.Close)
	return stub
}

func newTestRouter(t *testing.T) (*chi.Mux, *upstreamStub) {
	t.Helper()
	stub := newUpstreamStub(t)
	fh := NewFormHandler(
		form.NewManager(time.Hour, time.Hour),
		assetapi.New(stub.srv.URL, "tok"),
		nil,
	)
	ph := NewPrefsHandler(prefs.NewMemoryStore())

	r := chi.NewRouter()
	r.Post("/v1/assets/{assetID}/form", fh.Create)
	r.Get("/v1/forms/{sessionID}", fh.Get)
	r.Post("/v1/forms/{sessionID}/fields", fh.ApplyField)
	r.Post("/v1/forms/{sessionID}/custom-fields", fh.AddCustomField)
	r.Delete("/v1/forms/{sessionID}/custom-fields", fh.RemoveCustomField)
	r.Post("/v1/forms/{sessionID}/measures", fh.SetMeasures)
	r.Post("/v1/forms/{sessionID}/attachments/{bucket}", fh.QueueAttachment)
	r.Get("/v1/forms/{sessionID}/attachments/{bucket}", fh.ListAttachments)
	r.Delete("/v1/forms/{sessionID}/attachments/{bucket}/{fileID}", fh.RemoveAttachment)
	r.Post("/v1/forms/{sessionID}/validate", fh.Validate)
	r.Post("/v1/forms/{sessionID}/submit", fh.Submit)
	r.Delete("/v1/forms/{sessionID}", fh.Close)
	r.Get("/v1/prefs", ph.All)
	r.Put("/v1/prefs/{key}", ph.Set)
	return r, stub
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func openSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/v1/assets/42/form", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		SessionID string `json:"session_id"`
		Category  string `json:"category"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Vehicle", resp.Category)
	return resp.SessionID
}

func TestCreateAndGetForm(t *testing.T) {
	router, _ := newTestRouter(t)
	sid := openSession(t, router)

	rec := doJSON(t, router, http.MethodGet, "/v1/forms/"+sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		AssetID int               `json:"asset_id"`
		Core    map[string]string `json:"core"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 42, state.AssetID)
	assert.Equal(t, "Forklift A", state.Core["asset_name"])
}

func TestUnknownSessionIs404(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/v1/forms/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplyFieldGuardWarning(t *testing.T) {
	router, _ := newTestRouter(t)
	sid := openSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/fields",
		form.FieldChange{Field: "purchased_on_date", Value: "2024-06-01"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Warranty expiry before the purchase date: rejected, cleared,
	// warned.
	rec = doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/fields",
		form.FieldChange{Field: "warranty_expiry", Value: "2024-01-01"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result form.ChangeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Applied)
	require.NotNil(t, result.Warning)
	assert.Equal(t, "warranty_expiry", result.Warning.Cleared)
}

func TestValidateReportsFirstFailure(t *testing.T) {
	router, _ := newTestRouter(t)
	sid := openSession(t, router)

	// Loaded record is complete; valid.
	rec := doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Errors)

	// Blank the asset name: exactly one message.
	doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/fields",
		form.FieldChange{Field: "asset_name", Value: ""})
	rec = doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/validate", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "Asset Name")
}

func TestSubmitJSONWhenNoFiles(t *testing.T) {
	router, stub := newTestRouter(t)
	sid := openSession(t, router)

	doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/fields",
		form.FieldChange{Group: "vehicle_details", Field: "fuel_type", Value: "petrol"})

	rec := doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Equal(t, 1, stub.putCalls)
	assert.Equal(t, "application/json", stub.putContentType)

	var sent struct {
		PmsAsset struct {
			Name  string `json:"name"`
			Extra []struct {
				ID         int    `json:"id"`
				FieldName  string `json:"field_name"`
				FieldValue string `json:"field_value"`
			} `json:"extra_fields_attributes"`
		} `json:"pms_asset"`
	}
	require.NoError(t, json.Unmarshal(stub.putBody, &sent))
	assert.Equal(t, "Forklift A", sent.PmsAsset.Name)
	require.Len(t, sent.PmsAsset.Extra, 1, "only the edited field diffs")
	assert.Equal(t, "fuel_type", sent.PmsAsset.Extra[0].FieldName)
	assert.Equal(t, "petrol", sent.PmsAsset.Extra[0].FieldValue)
	assert.Equal(t, 8, sent.PmsAsset.Extra[0].ID)

	// Session closes on success.
	rec = doJSON(t, router, http.MethodGet, "/v1/forms/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitValidationFailure(t *testing.T) {
	router, stub := newTestRouter(t)
	sid := openSession(t, router)

	doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/fields",
		form.FieldChange{Field: "asset_name", Value: ""})
	rec := doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, stub.putCalls, "invalid form must not reach upstream")

	// Session survives a failed submit.
	rec = doJSON(t, router, http.MethodGet, "/v1/forms/"+sid, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func queueFile(t *testing.T, router http.Handler, sid, bucket, name, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/forms/"+sid+"/attachments/"+bucket, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitMultipartWhenFilesQueued(t *testing.T) {
	router, stub := newTestRouter(t)
	sid := openSession(t, router)

	rec := queueFile(t, router, sid, "asset_manuals", "manual.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Equal(t, 1, stub.putCalls)
	assert.True(t, strings.HasPrefix(stub.putContentType, "multipart/form-data"),
		"content type = %s", stub.putContentType)
	assert.Contains(t, string(stub.putBody), `name="pms_asset[asset_manuals][]"`)
	assert.Contains(t, string(stub.putBody), "manual.pdf")
}

func TestAttachmentQueueListRemove(t *testing.T) {
	router, _ := newTestRouter(t)
	sid := openSession(t, router)

	rec := queueFile(t, router, sid, "asset_image", "photo.bin", "application/octet-stream", []byte{1, 2, 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Bucket string `json:"bucket"`
		Files  []struct {
			ID string `json:"id"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "vehicleAssetImage", created.Bucket)
	require.Len(t, created.Files, 1)

	rec = doJSON(t, router, http.MethodGet, "/v1/forms/"+sid+"/attachments/asset_image", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Files []struct {
			Name string `json:"name"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Files, 1)
	assert.Equal(t, "photo.bin", listed.Files[0].Name)

	rec = doJSON(t, router, http.MethodDelete,
		"/v1/forms/"+sid+"/attachments/asset_image/"+created.Files[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/forms/"+sid+"/attachments/asset_image", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed.Files)

	rec = queueFile(t, router, sid, "bogus_bucket", "x", "text/plain", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomFieldLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	sid := openSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/custom-fields",
		map[string]string{"group": "vehicle_details", "name": "tyre_count", "value": "6"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate add conflicts.
	rec = doJSON(t, router, http.MethodPost, "/v1/forms/"+sid+"/custom-fields",
		map[string]string{"group": "vehicle_details", "name": "tyre_count", "value": "8"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodDelete,
		"/v1/forms/"+sid+"/custom-fields?group=vehicle_details&name=tyre_count", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodDelete,
		"/v1/forms/"+sid+"/custom-fields?group=vehicle_details&name=tyre_count", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrefsRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/v1/prefs/currency", map[string]string{"value": "INR"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/prefs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, "INR", all["currency"])

	rec = doJSON(t, router, http.MethodPut, "/v1/prefs/bogus", map[string]string{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseDiscardsSession(t *testing.T) {
	router, stub := newTestRouter(t)
	sid := openSession(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/v1/forms/"+sid, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, stub.putCalls)

	rec = doJSON(t, router, http.MethodGet, "/v1/forms/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
