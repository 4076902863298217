// Package form owns the live edit-form state: loading it from a fetched
// asset record, applying field changes through a single reducer entry
// point, and the per-connection session lifecycle. Cross-field date
// guards run on every change, not just at submit time.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/helloakshay27/hi-society-assets/internal/category"
	"github.com/helloakshay27/hi-society-assets/internal/types"
	"github.com/helloakshay27/hi-society-assets/internal/validate"
)

// ErrUnknownField rejects writes to core fields the form does not know.
var ErrUnknownField = errors.New("unknown form field")

// ErrDuplicateCustomField rejects adding a custom field whose name is
// already taken within its section.
var ErrDuplicateCustomField = errors.New("custom field already exists in section")

// FieldChange is one edit action. An empty Group targets the flat core
// record; otherwise the write goes to the extra-field map under the
// given section.
type FieldChange struct {
	Group     string          `json:"group,omitempty"`
	Field     string          `json:"field"`
	Value     string          `json:"value"`
	FieldType types.FieldType `json:"field_type,omitempty"`
}

// Warning describes a live guard violation. The dependent field named in
// Cleared has been reset; the offending write was either rejected (when
// it targeted the dependent field) or accepted (when it moved an anchor
// under an existing dependent value).
type Warning struct {
	Field   string `json:"field"`
	Cleared string `json:"cleared"`
	Message string `json:"message"`
}

// ChangeResult reports what Apply did with one change.
type ChangeResult struct {
	Applied bool     `json:"applied"`
	Warning *Warning `json:"warning,omitempty"`
}

// dateGuard pins dependent >= anchor. All four live checks share that
// relation: on violation the dependent field is cleared and a warning
// raised, uniformly across the pairs.
type dateGuard struct {
	anchor    string
	dependent string
	message   string
}

var dateGuards = []dateGuard{
	{validate.FieldPurchasedOn, validate.FieldWarrantyExpiry, "Warranty expiry cannot be before the purchase date"},
	{validate.FieldAgreementStartDate, validate.FieldAgreementEndDate, "Agreement end date cannot be before start"},
	{validate.FieldAmcStartDate, validate.FieldAmcEndDate, "AMC end date cannot be before start"},
	{validate.FieldCommissioningDate, validate.FieldAmcFirstService, "AMC first service date cannot precede the commissioning date"},
}

// knownCoreFields is the closed set of flat asset-record fields handled
// by the form; it mirrors the backend columns the submission writes.
var knownCoreFields = map[string]bool{}

func init() {
	for _, f := range []string{
		validate.FieldAssetName, "asset_number", "equipment_id",
		"model_number", "serial_number", "consumer_number",
		"manufacturer", "status", "critical", "capacity", "unit",
		"location_type",
		validate.FieldPurchaseCost, validate.FieldPurchasedOn,
		validate.FieldCommissioningDate, "warranty_start_date",
		validate.FieldWarrantyExpiry, "warranty_status",
		validate.FieldUsefulLife, validate.FieldSalvageValue,
		validate.FieldDepreciationRate, "depreciation_method",
		"depreciation_applicable_for", "group_id", "subgroup_id",
		"site_id", "building_id", "wing_id", "area_id", "floor_id", "room_id",
		validate.FieldAssetLoaned, validate.FieldLoanVendorID,
		validate.FieldAgreementStartDate, validate.FieldAgreementEndDate,
		validate.FieldMeterApplicable, validate.FieldMeterType,
		validate.FieldParentMeterID,
		"amc_supplier_id", validate.FieldAmcCost, validate.FieldAmcStartDate,
		validate.FieldAmcEndDate, validate.FieldAmcFirstService,
		"move_to_site_id", "move_to_building_id",
	} {
		knownCoreFields[f] = true
	}
}

// Load builds a fresh form state from a fetched asset record. The
// attributes array becomes both the immutable snapshot and the live
// extra-field map; custom attributes are additionally mirrored into the
// per-section custom-field lists.
func Load(rec *types.AssetRecord) *types.FormState {
	s := &types.FormState{
		AssetID:                rec.ID,
		Category:               rec.AssetCategory,
		Core:                   map[string]string{},
		Extra:                  map[types.FieldKey]types.ExtraFieldEntry{},
		Snapshot:               append([]types.SavedAttribute(nil), rec.ExtraFieldsAttributes...),
		CustomFields:           map[string][]types.CustomField{},
		ITCustomFields:         map[string][]types.CustomField{},
		ConsumptionMeasures:    append([]types.MeasureField(nil), rec.ConsumptionMeasures...),
		NonConsumptionMeasures: append([]types.MeasureField(nil), rec.NonConsumption...),
		ExistingAttachments:    append([]types.ExistingAttachment(nil), rec.Attachments...),
	}
	for k, v := range rec.Core {
		if knownCoreFields[k] {
			s.Core[k] = v
		}
	}

	for _, attr := range rec.ExtraFieldsAttributes {
		s.Extra[attr.Key()] = types.ExtraFieldEntry{
			Value:            attr.FieldValue,
			FieldType:        attr.FieldType,
			GroupType:        attr.GroupName,
			FieldDescription: attr.FieldDescription,
		}
		if attr.FieldDescription == types.CustomFieldDescription {
			s.CustomFields[attr.GroupName] = append(s.CustomFields[attr.GroupName], types.CustomField{
				ID:    attr.ID,
				Name:  attr.FieldName,
				Value: attr.FieldValue,
			})
		}
	}

	// IT custom fields arrive as bare name/value maps; seed them into the
	// snapshot too so an untouched form diffs to nothing. Skip keys the
	// attributes array already covered, those carry the backend id.
	snapKeys := map[types.FieldKey]bool{}
	for _, attr := range s.Snapshot {
		snapKeys[attr.Key()] = true
	}
	for group, fields := range rec.CustomFields {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value := fields[name]
			s.ITCustomFields[group] = append(s.ITCustomFields[group], types.CustomField{
				Name:  name,
				Value: value,
			})
			key := types.FieldKey{Group: group, Name: name}
			if _, ok := s.Extra[key]; !ok {
				s.Extra[key] = types.ExtraFieldEntry{
					Value:            value,
					FieldType:        types.FieldTypeCustom,
					GroupType:        group,
					FieldDescription: types.CustomFieldDescription,
				}
			}
			if !snapKeys[key] {
				s.Snapshot = append(s.Snapshot, types.SavedAttribute{
					FieldName:        name,
					FieldValue:       value,
					GroupName:        group,
					FieldType:        types.FieldTypeCustom,
					FieldDescription: types.CustomFieldDescription,
				})
			}
		}
	}

	if rec.LoanDetail != nil {
		s.Core[validate.FieldAssetLoaned] = "true"
		s.Core[validate.FieldLoanVendorID] = rec.LoanDetail.VendorID
		s.Core[validate.FieldAgreementStartDate] = rec.LoanDetail.AgreementFrom
		s.Core[validate.FieldAgreementEndDate] = rec.LoanDetail.AgreementTo
	}
	if len(rec.AssetAmcs) > 0 {
		amc := rec.AssetAmcs[0]
		s.Core["amc_supplier_id"] = amc.SupplierID
		s.Core[validate.FieldAmcCost] = amc.Cost
		s.Core[validate.FieldAmcStartDate] = amc.StartDate
		s.Core[validate.FieldAmcEndDate] = amc.EndDate
		s.Core[validate.FieldAmcFirstService] = amc.FirstService
	}
	return s
}

// Apply is the single mutation entry point for field edits. Writes to a
// guarded dependent field that would violate its date order are rejected
// and the field cleared; writes that move an anchor past an existing
// dependent value are accepted but clear the dependent. Either way a
// warning is returned instead of blocking the edit.
func Apply(s *types.FormState, change FieldChange) (ChangeResult, error) {
	if change.Group != "" {
		return applyExtra(s, change), nil
	}
	if !knownCoreFields[change.Field] {
		return ChangeResult{}, fmt.Errorf("%w: %q", ErrUnknownField, change.Field)
	}

	value := strings.TrimSpace(change.Value)

	// Dependent write: check against its anchor before accepting.
	for _, g := range dateGuards {
		if change.Field != g.dependent || value == "" {
			continue
		}
		newDate, newOK := types.ParseDate(value)
		anchorDate, anchorOK := s.CoreDate(g.anchor)
		if newOK && anchorOK && newDate.Before(anchorDate) {
			s.Core[g.dependent] = ""
			return ChangeResult{
				Applied: false,
				Warning: &Warning{Field: g.dependent, Cleared: g.dependent, Message: g.message},
			}, nil
		}
	}

	s.Core[change.Field] = value

	// Anchor write: an existing dependent value may now be stale.
	for _, g := range dateGuards {
		if change.Field != g.anchor {
			continue
		}
		depDate, depOK := s.CoreDate(g.dependent)
		anchorDate, anchorOK := s.CoreDate(g.anchor)
		if depOK && anchorOK && depDate.Before(anchorDate) {
			s.Core[g.dependent] = ""
			return ChangeResult{
				Applied: true,
				Warning: &Warning{Field: g.anchor, Cleared: g.dependent, Message: g.message},
			}, nil
		}
	}

	return ChangeResult{Applied: true}, nil
}

func applyExtra(s *types.FormState, change FieldChange) ChangeResult {
	key := types.FieldKey{Group: change.Group, Name: change.Field}
	entry, ok := s.Extra[key]
	if !ok {
		entry = types.ExtraFieldEntry{
			GroupType: change.Group,
			FieldType: change.FieldType,
		}
		if category.KnownGroup(category.Category(s.Category), change.Group) {
			entry.FieldDescription = "section_field"
		} else {
			entry.FieldDescription = types.CustomFieldDescription
		}
	}
	if change.FieldType != "" {
		entry.FieldType = change.FieldType
	}
	entry.Value = strings.TrimSpace(change.Value)
	s.Extra[key] = entry
	if entry.FieldDescription == types.CustomFieldDescription {
		syncCustomField(s, change.Group, change.Field, entry.Value)
	}
	return ChangeResult{Applied: true}
}

// syncCustomField propagates an extra-field edit into the custom-field
// lists the diff builder reads. A write to a custom key with no list
// entry yet gets one, otherwise the edit would never reach the diff.
func syncCustomField(s *types.FormState, group, name, value string) {
	for _, m := range []map[string][]types.CustomField{s.CustomFields, s.ITCustomFields} {
		for i, f := range m[group] {
			if f.Name == name {
				m[group][i].Value = value
				return
			}
		}
	}
	field := types.CustomField{Name: name, Value: value}
	if group == validate.ITGroupSystem || group == validate.ITGroupHardware {
		if s.ITCustomFields == nil {
			s.ITCustomFields = map[string][]types.CustomField{}
		}
		s.ITCustomFields[group] = append(s.ITCustomFields[group], field)
		return
	}
	if s.CustomFields == nil {
		s.CustomFields = map[string][]types.CustomField{}
	}
	s.CustomFields[group] = append(s.CustomFields[group], field)
}

// AddCustomField creates an ad hoc field in a section and mirrors it
// into the extra-field map for diffing.
func AddCustomField(s *types.FormState, group, name, value string) (types.CustomField, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.CustomField{}, errors.New("custom field name is required")
	}
	for _, f := range s.CustomFields[group] {
		if f.Name == name {
			return types.CustomField{}, fmt.Errorf("%w: %s/%s", ErrDuplicateCustomField, group, name)
		}
	}
	field := types.CustomField{Name: name, Value: strings.TrimSpace(value)}
	s.CustomFields[group] = append(s.CustomFields[group], field)
	s.Extra[types.FieldKey{Group: group, Name: name}] = types.ExtraFieldEntry{
		Value:            field.Value,
		FieldType:        types.FieldTypeCustom,
		GroupType:        group,
		FieldDescription: types.CustomFieldDescription,
	}
	return field, nil
}

// RemoveCustomField drops an ad hoc field from its section. If the field
// existed in the snapshot the diff builder will emit its tombstone.
func RemoveCustomField(s *types.FormState, group, name string) error {
	fields := s.CustomFields[group]
	for i, f := range fields {
		if f.Name == name {
			s.CustomFields[group] = append(fields[:i:i], fields[i+1:]...)
			delete(s.Extra, types.FieldKey{Group: group, Name: name})
			return nil
		}
	}
	return fmt.Errorf("custom field %s/%s not found", group, name)
}

// SetMeasures replaces both meter-channel lists wholesale. Measures are
// never diffed; the full arrays are sent on save.
func SetMeasures(s *types.FormState, consumption, nonConsumption []types.MeasureField) {
	s.ConsumptionMeasures = append([]types.MeasureField(nil), consumption...)
	s.NonConsumptionMeasures = append([]types.MeasureField(nil), nonConsumption...)
}
