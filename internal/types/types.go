// Package types provides the shared domain structs for the asset edit
// form: form state, extra-field entries, attribute change records, meter
// measures, and the upstream record shapes they are loaded from.
package types

import (
	"strings"
	"time"
)

// FieldKey identifies an extra field by its owning form section (group)
// and field name. It replaces the "group::field" string concatenation of
// the legacy client with a typed key; the text form is kept only at the
// JSON boundary.
type FieldKey struct {
	Group string
	Name  string
}

// String renders the canonical "group::name" form.
func (k FieldKey) String() string { return k.Group + "::" + k.Name }

// MarshalText lets FieldKey serve as a JSON map key.
func (k FieldKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the "group::name" form. A key without a separator
// is treated as a bare field name with an empty group.
func (k *FieldKey) UnmarshalText(text []byte) error {
	group, name, found := strings.Cut(string(text), "::")
	if !found {
		k.Group = ""
		k.Name = string(text)
		return nil
	}
	k.Group = group
	k.Name = name
	return nil
}

// FieldType classifies an extra field's value for formatting purposes.
type FieldType string

const (
	FieldTypeText   FieldType = "text"
	FieldTypeDate   FieldType = "date"
	FieldTypeNumber FieldType = "number"
	FieldTypeSelect FieldType = "select"
	FieldTypeCustom FieldType = "custom"
)

// CustomFieldDescription marks an attribute as user-created rather than
// part of a structured section. The backend uses the same marker.
const CustomFieldDescription = "custom_field"

// ExtraFieldEntry is one dynamically keyed attribute on the live form.
// Entries cover both structured "known" section fields and free-form
// custom attributes; the two are told apart by FieldDescription.
type ExtraFieldEntry struct {
	Value            string    `json:"value"`
	FieldType        FieldType `json:"field_type"`
	GroupType        string    `json:"group_type"`
	FieldDescription string    `json:"field_description"`
}

// SavedAttribute is one attribute as fetched from the backend. The slice
// of these taken at load time is the immutable diff baseline.
type SavedAttribute struct {
	ID               *int      `json:"id,omitempty"`
	FieldName        string    `json:"field_name"`
	FieldValue       string    `json:"field_value"`
	GroupName        string    `json:"group_name"`
	FieldDescription string    `json:"field_description"`
	FieldType        FieldType `json:"field_type,omitempty"`
}

// Key returns the snapshot attribute's diff key.
func (a SavedAttribute) Key() FieldKey {
	return FieldKey{Group: a.GroupName, Name: a.FieldName}
}

// AttributeChange is one upsert or tombstone in the submitted
// extra_fields_attributes array. An absent ID means insert; a present ID
// with Destroy set means delete.
type AttributeChange struct {
	ID               *int   `json:"id,omitempty"`
	FieldName        string `json:"field_name"`
	FieldValue       string `json:"field_value"`
	GroupName        string `json:"group_name"`
	FieldDescription string `json:"field_description"`
	Destroy          bool   `json:"_destroy"`
}

// CustomField is a user-added ad hoc field in one form section. ID is
// the backend attribute id when the field was previously saved.
type CustomField struct {
	ID    *int   `json:"id,omitempty"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MeasureField is one consumption or non-consumption meter channel.
// Measure lists are rebuilt wholesale on save; there is no per-item diff.
type MeasureField struct {
	ID                   int    `json:"id,omitempty"`
	Name                 string `json:"name"`
	UnitTypeID           string `json:"unit_type_id"`
	Min                  string `json:"min"`
	Max                  string `json:"max"`
	AlertBelow           string `json:"alert_below"`
	AlertAbove           string `json:"alert_above"`
	MultiplierFactor     string `json:"multiplier_factor"`
	CheckPreviousReading bool   `json:"check_previous_reading"`
}

// ExistingAttachment is already-persisted file metadata fetched from the
// backend. Read-only except for explicit download.
type ExistingAttachment struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	URL      string `json:"url,omitempty"`
	Category string `json:"category,omitempty"`
}

// FormState is the whole evolving edit-form value for one session. It is
// only ever mutated through form.Apply and the custom-field/measure
// operations, never field-by-field from handlers.
type FormState struct {
	AssetID  int    `json:"asset_id"`
	Category string `json:"category"`

	// Core holds the flat scalar asset record keyed by form field name
	// (asset_name, purchase_cost, site_id, ...). Values are strings as
	// they arrive from the form; typed reads happen in validate/payload.
	Core map[string]string `json:"core"`

	// Extra is the live extra-field map. Populated from Snapshot at load
	// time, one entry per saved attribute.
	Extra map[FieldKey]ExtraFieldEntry `json:"extra"`

	// Snapshot is the attributes array as fetched. Never mutated after
	// load; used purely as the diff baseline.
	Snapshot []SavedAttribute `json:"snapshot"`

	// CustomFields holds user-added fields grouped by section key.
	CustomFields map[string][]CustomField `json:"custom_fields"`

	// ITCustomFields holds the IT-asset nested field groups
	// (system_details, hardware_details).
	ITCustomFields map[string][]CustomField `json:"it_custom_fields"`

	ConsumptionMeasures    []MeasureField `json:"consumption_measures"`
	NonConsumptionMeasures []MeasureField `json:"non_consumption_measures"`

	ExistingAttachments []ExistingAttachment `json:"existing_attachments"`
}

// CoreValue returns the trimmed core field value.
func (s *FormState) CoreValue(field string) string {
	return strings.TrimSpace(s.Core[field])
}

// CoreBool reads a toggle field. Anything but "true"/"1"/"yes" is false.
func (s *FormState) CoreBool(field string) bool {
	switch strings.ToLower(s.CoreValue(field)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// CoreDate parses a core date field. Accepts the canonical YYYY-MM-DD
// form and RFC3339; returns ok=false for empty or unparseable values.
func (s *FormState) CoreDate(field string) (time.Time, bool) {
	return ParseDate(s.CoreValue(field))
}

// ParseDate accepts the two date encodings the backend emits.
func ParseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// CanonicalDate renders a parseable date as YYYY-MM-DD, or returns the
// input untouched when it cannot be parsed.
func CanonicalDate(v string) string {
	if t, ok := ParseDate(v); ok {
		return t.Format("2006-01-02")
	}
	return v
}

// AssetRecord is the upstream GET /pms/assets/{id}.json shape, reduced
// to the fields the form gateway consumes.
type AssetRecord struct {
	ID                    int                          `json:"id"`
	AssetCategory         string                       `json:"asset_category"`
	Core                  map[string]string            `json:"core_fields"`
	ExtraFieldsAttributes []SavedAttribute             `json:"extra_fields_attributes"`
	CustomFields          map[string]map[string]string `json:"custom_fields"`
	AssetAmcs             []AmcDetail                  `json:"asset_amcs"`
	LoanDetail            *LoanDetail                  `json:"asset_loan_detail"`
	ConsumptionMeasures   []MeasureField               `json:"consumption_pms_asset_measures"`
	NonConsumption        []MeasureField               `json:"non_consumption_pms_asset_measures"`
	Attachments           []ExistingAttachment         `json:"attachments"`
}

// AmcDetail is the nested maintenance-contract sub-record.
type AmcDetail struct {
	ID           *int   `json:"id,omitempty"`
	SupplierID   string `json:"supplier_id"`
	Cost         string `json:"amc_cost"`
	StartDate    string `json:"amc_start_date"`
	EndDate      string `json:"amc_end_date"`
	FirstService string `json:"amc_first_service"`
}

// LoanDetail is the nested asset-loan sub-record.
type LoanDetail struct {
	VendorID      string `json:"vendor_id"`
	AgreementFrom string `json:"agreement_from_date"`
	AgreementTo   string `json:"agreement_to_date"`
}

// Option is one entry of a lookup list (suppliers, groups, meters, ...).
type Option struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
