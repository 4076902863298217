package assetapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/helloakshay27/hi-society-assets/internal/types"
)

// LookupKind names one independent option list the form needs.
type LookupKind string

const (
	LookupGroups          LookupKind = "groups"
	LookupSubgroups       LookupKind = "subgroups"
	LookupSuppliers       LookupKind = "suppliers"
	LookupDepartments     LookupKind = "departments"
	LookupEscalationUsers LookupKind = "escalation_users"
	LookupMeterUnits      LookupKind = "meter_units"
	LookupParentMeters    LookupKind = "parent_meters"
	LookupSimilarAssets   LookupKind = "similar_assets"
)

// lookupPaths maps each kind to its upstream endpoint. Subgroups and
// parent meters take a filter parameter, appended by Lookup.
var lookupPaths = map[LookupKind]string{
	LookupGroups:          "/pms/assets/get_asset_group_sub_group.json",
	LookupSubgroups:       "/pms/assets/get_asset_group_sub_group.json",
	LookupSuppliers:       "/pms/suppliers/get_suppliers.json",
	LookupDepartments:     "/pms/departments.json",
	LookupEscalationUsers: "/pms/users/get_escalate_to_users.json",
	LookupMeterUnits:      "/pms/meter_types.json",
	LookupParentMeters:    "/pms/assets/get_parent_asset.json",
	LookupSimilarAssets:   "/pms/assets/get_assets.json",
}

// ValidLookup reports whether kind is a known option list.
func ValidLookup(kind LookupKind) bool {
	_, ok := lookupPaths[kind]
	return ok
}

// Lookup fetches one option list. filter is the parent id for
// subgroups (group_id) and parent meters (site_id); other kinds ignore
// it. Lookups are independent of each other and of the form session.
func (c *Client) Lookup(ctx context.Context, kind LookupKind, filter string) ([]types.Option, error) {
	path, ok := lookupPaths[kind]
	if !ok {
		return nil, fmt.Errorf("unknown lookup kind %q", kind)
	}
	q := url.Values{}
	switch kind {
	case LookupSubgroups:
		q.Set("group_id", filter)
	case LookupParentMeters:
		q.Set("site_id", filter)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.options(ctx, path)
}

// Location cascade. Each level is gated on its parent id, so steps run
// strictly one after another as the user drills down.

// Sites is the cascade root.
func (c *Client) Sites(ctx context.Context) ([]types.Option, error) {
	return c.options(ctx, "/pms/sites.json")
}

// Buildings lists buildings under a site.
func (c *Client) Buildings(ctx context.Context, siteID string) ([]types.Option, error) {
	return c.cascade(ctx, "/pms/buildings.json", "site_id", siteID)
}

// Wings lists wings under a building.
func (c *Client) Wings(ctx context.Context, buildingID string) ([]types.Option, error) {
	return c.cascade(ctx, "/pms/wings.json", "building_id", buildingID)
}

// Areas lists areas under a wing.
func (c *Client) Areas(ctx context.Context, wingID string) ([]types.Option, error) {
	return c.cascade(ctx, "/pms/areas.json", "wing_id", wingID)
}

// Floors lists floors under an area.
func (c *Client) Floors(ctx context.Context, areaID string) ([]types.Option, error) {
	return c.cascade(ctx, "/pms/floors.json", "area_id", areaID)
}

// Rooms lists rooms under a floor.
func (c *Client) Rooms(ctx context.Context, floorID string) ([]types.Option, error) {
	return c.cascade(ctx, "/pms/rooms.json", "floor_id", floorID)
}

func (c *Client) cascade(ctx context.Context, path, param, parentID string) ([]types.Option, error) {
	if strings.TrimSpace(parentID) == "" {
		return nil, fmt.Errorf("%s is required", param)
	}
	q := url.Values{param: {parentID}}
	return c.options(ctx, path+"?"+q.Encode())
}

// options fetches and decodes one option list. The backend is
// inconsistent about wrapping: some endpoints return a bare array,
// others a single-key object around it.
func (c *Client) options(ctx context.Context, path string) ([]types.Option, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, readStatusError(resp)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode lookup %s: %w", path, err)
	}
	return decodeOptions(raw)
}

func decodeOptions(raw json.RawMessage) ([]types.Option, error) {
	var opts []types.Option
	if err := json.Unmarshal(raw, &opts); err == nil {
		return opts, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected lookup shape: %w", err)
	}
	for _, v := range wrapped {
		if err := json.Unmarshal(v, &opts); err == nil && opts != nil {
			return opts, nil
		}
	}
	return nil, nil
}
