package assetapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pms/assets/42.json", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": 42,
			"asset_category": "Vehicle",
			"core_fields": {"asset_name": "Forklift A"},
			"extra_fields_attributes": [
				{"id": 7, "field_name": "color", "field_value": "red",
				 "group_name": "vehicle_details", "field_description": "section_field"}
			]
		}`)
	}))
	defer srv.Close()

	rec, err := New(srv.URL, "tok").GetAsset(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, rec.ID)
	assert.Equal(t, "Vehicle", rec.AssetCategory)
	assert.Equal(t, "Forklift A", rec.Core["asset_name"])
	require.Len(t, rec.ExtraFieldsAttributes, 1)
	assert.Equal(t, "color", rec.ExtraFieldsAttributes[0].FieldName)
}

func TestUpdateAssetJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/pms/assets/42.json", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	payload := map[string]any{"pms_asset": map[string]any{"name": "Forklift A"}}
	require.NoError(t, New(srv.URL, "tok").UpdateAssetJSON(context.Background(), 42, payload))
	assert.Equal(t, "Forklift A", got["pms_asset"].(map[string]any)["name"])
}

func TestUpdateAssetStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name: "payload too large", status: http.StatusRequestEntityTooLarge,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrPayloadTooLarge)
			},
		},
		{
			name: "unprocessable with message", status: http.StatusUnprocessableEntity,
			body: `{"message": "Name can't be blank"}`,
			check: func(t *testing.T, err error) {
				var ue *UnprocessableError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, "Name can't be blank", ue.Message)
			},
		},
		{
			name: "unprocessable errors array", status: http.StatusUnprocessableEntity,
			body: `{"errors": ["Name can't be blank", "Cost invalid"]}`,
			check: func(t *testing.T, err error) {
				var ue *UnprocessableError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, "Name can't be blank; Cost invalid", ue.Message)
			},
		},
		{
			name: "server error falls through", status: http.StatusBadGateway, body: "upstream down",
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusBadGateway, se.Code)
				assert.Equal(t, "upstream down", se.Body)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()
			err := New(srv.URL, "tok").UpdateAssetJSON(context.Background(), 1, map[string]any{})
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestUpdateAssetNoRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL, "tok").UpdateAssetJSON(context.Background(), 1, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "submission must go out exactly once")
}

func TestUpdateAssetTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(srv.URL, "tok")
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	err := c.UpdateAssetJSON(ctx, 1, map[string]any{})
	assert.ErrorIs(t, err, ErrSubmitTimeout)
}

func TestLookupShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pms/suppliers/get_suppliers.json":
			io.WriteString(w, `[{"id": 1, "name": "Acme"}]`)
		case "/pms/assets/get_asset_group_sub_group.json":
			assert.Equal(t, "12", r.URL.Query().Get("group_id"))
			io.WriteString(w, `{"asset_groups": [{"id": 5, "name": "Pumps"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := New(srv.URL, "tok")

	opts, err := c.Lookup(context.Background(), LookupSuppliers, "")
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "Acme", opts[0].Name)

	opts, err = c.Lookup(context.Background(), LookupSubgroups, "12")
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "Pumps", opts[0].Name)

	_, err = c.Lookup(context.Background(), LookupKind("bogus"), "")
	require.Error(t, err)
}

func TestLocationCascadeGating(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pms/buildings.json":
			assert.Equal(t, "7", r.URL.Query().Get("site_id"))
			io.WriteString(w, `[{"id": 30, "name": "Tower B"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := New(srv.URL, "tok")

	opts, err := c.Buildings(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, opts, 1)

	// Every step requires its parent id.
	_, err = c.Buildings(context.Background(), "")
	require.Error(t, err)
	_, err = c.Rooms(context.Background(), " ")
	require.Error(t, err)
}

func TestDownloadAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/attachfiles/91", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("show_file"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	data, ct, err := New(srv.URL, "tok").DownloadAttachment(context.Background(), 91)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ct)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestGetAssetUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok").GetAsset(context.Background(), 9999)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}
