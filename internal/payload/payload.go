// Package payload assembles the composite update submission: core
// fields, nested AMC/loan/move-to objects, the diffed attribute array,
// the full meter-measure lists, and the queued attachments. The same
// payload either serializes as JSON or flattens into multipart form
// fields depending on whether files are queued.
package payload

import (
	"github.com/helloakshay27/hi-society-assets/internal/types"
	"github.com/helloakshay27/hi-society-assets/internal/validate"
)

// DepreciationModeGroup is the depreciation_applicable_for value that
// pulls the group/subgroup ids into the submission.
const DepreciationModeGroup = "group"

// Build merges the form state into the nested pms_asset object the
// backend expects. changes is the diff builder output; measures are
// always sent in full.
func Build(s *types.FormState, changes []types.AttributeChange) map[string]any {
	asset := map[string]any{
		"name":                s.CoreValue(validate.FieldAssetName),
		"asset_number":        s.CoreValue("asset_number"),
		"equipment_id":        s.CoreValue("equipment_id"),
		"model_number":        s.CoreValue("model_number"),
		"serial_number":       s.CoreValue("serial_number"),
		"consumer_number":     s.CoreValue("consumer_number"),
		"manufacturer":        s.CoreValue("manufacturer"),
		"status":              s.CoreValue("status"),
		"critical":            s.CoreBool("critical"),
		"capacity":            s.CoreValue("capacity"),
		"unit":                s.CoreValue("unit"),
		"location_type":       s.CoreValue("location_type"),
		"asset_category":      s.Category,
		"purchase_cost":       s.CoreValue(validate.FieldPurchaseCost),
		"purchased_on":        s.CoreValue(validate.FieldPurchasedOn),
		"commisioning_date":   s.CoreValue(validate.FieldCommissioningDate), // backend spelling
		"warranty_start_date": s.CoreValue("warranty_start_date"),
		"warranty_expiry":     s.CoreValue(validate.FieldWarrantyExpiry),
		"warranty_status":     s.CoreValue("warranty_status"),
		"useful_life":         s.CoreValue(validate.FieldUsefulLife),
		"salvage_value":       s.CoreValue(validate.FieldSalvageValue),
		"depreciation_rate":   s.CoreValue(validate.FieldDepreciationRate),
		"depreciation_method": s.CoreValue("depreciation_method"),
		"pms_site_id":         s.CoreValue("site_id"),
		"pms_building_id":     s.CoreValue("building_id"),
		"pms_wing_id":         s.CoreValue("wing_id"),
		"pms_area_id":         s.CoreValue("area_id"),
		"pms_floor_id":        s.CoreValue("floor_id"),
		"pms_room_id":         s.CoreValue("room_id"),
		"is_meter":            s.CoreBool(validate.FieldMeterApplicable),
		"meter_applicable":    s.CoreBool(validate.FieldMeterApplicable),
		"meter_type":          s.CoreValue(validate.FieldMeterType),
		"asset_loaned":        s.CoreBool(validate.FieldAssetLoaned),
	}

	// Group ids ride along only in group-wise depreciation mode.
	if s.CoreValue("depreciation_applicable_for") == DepreciationModeGroup {
		asset["pms_asset_group_id"] = s.CoreValue("group_id")
		asset["pms_asset_sub_group_id"] = s.CoreValue("subgroup_id")
	}

	if s.CoreBool(validate.FieldMeterApplicable) && s.CoreValue(validate.FieldMeterType) == validate.MeterTypeSub {
		asset["parent_meter_id"] = s.CoreValue(validate.FieldParentMeterID)
	}

	if s.CoreBool(validate.FieldAssetLoaned) {
		asset["asset_loan_detail"] = map[string]any{
			"vendor_id":           s.CoreValue(validate.FieldLoanVendorID),
			"agreement_from_date": s.CoreValue(validate.FieldAgreementStartDate),
			"agreement_to_date":   s.CoreValue(validate.FieldAgreementEndDate),
		}
	}

	if hasAmc(s) {
		asset["amc_detail"] = map[string]any{
			"supplier_id":       s.CoreValue("amc_supplier_id"),
			"amc_cost":          s.CoreValue(validate.FieldAmcCost),
			"amc_start_date":    s.CoreValue(validate.FieldAmcStartDate),
			"amc_end_date":      s.CoreValue(validate.FieldAmcEndDate),
			"amc_first_service": s.CoreValue(validate.FieldAmcFirstService),
		}
	}

	if s.CoreValue("move_to_site_id") != "" || s.CoreValue("move_to_building_id") != "" {
		asset["asset_move_to"] = map[string]any{
			"site_id":     s.CoreValue("move_to_site_id"),
			"building_id": s.CoreValue("move_to_building_id"),
		}
	}

	if len(changes) > 0 {
		asset["extra_fields_attributes"] = changeMaps(changes)
	}
	asset["consumption_pms_asset_measures_attributes"] = measureMaps(s.ConsumptionMeasures, "Consumption")
	asset["non_consumption_pms_asset_measures_attributes"] = measureMaps(s.NonConsumptionMeasures, "Non Consumption")

	return map[string]any{"pms_asset": asset}
}

// hasAmc keys off the same four fields the all-or-nothing validation
// rule checks. The supplier id is optional inside the block and never
// triggers it on its own.
func hasAmc(s *types.FormState) bool {
	for _, f := range []string{
		validate.FieldAmcCost, validate.FieldAmcStartDate,
		validate.FieldAmcEndDate, validate.FieldAmcFirstService,
	} {
		if s.CoreValue(f) != "" {
			return true
		}
	}
	return false
}

func changeMaps(changes []types.AttributeChange) []map[string]any {
	out := make([]map[string]any, 0, len(changes))
	for _, c := range changes {
		m := map[string]any{
			"field_name":        c.FieldName,
			"field_value":       c.FieldValue,
			"group_name":        c.GroupName,
			"field_description": c.FieldDescription,
			"_destroy":          c.Destroy,
		}
		if c.ID != nil {
			m["id"] = *c.ID
		}
		out = append(out, m)
	}
	return out
}

// measureMaps renders the full measure list; measures are rebuilt
// wholesale server-side, so every record goes out with _destroy false.
func measureMaps(measures []types.MeasureField, tag string) []map[string]any {
	out := make([]map[string]any, 0, len(measures))
	for _, m := range measures {
		rec := map[string]any{
			"name":                   m.Name,
			"meter_unit_id":          m.UnitTypeID,
			"min_value":              m.Min,
			"max_value":              m.Max,
			"alert_below":            m.AlertBelow,
			"alert_above":            m.AlertAbove,
			"multiplier_factor":      m.MultiplierFactor,
			"active":                 true,
			"meter_tag":              tag,
			"check_previous_reading": m.CheckPreviousReading,
			"_destroy":               false,
		}
		if m.ID != 0 {
			rec["id"] = m.ID
		}
		out = append(out, rec)
	}
	return out
}
