// Package validate implements the category-driven form validation. The
// rule order is fixed and the first violated rule short-circuits, so the
// result is either empty (valid) or a single human-readable message the
// caller can surface and scroll to. Validation is pure: no notification,
// no mutation, no panic.
package validate

import (
	"strconv"

	"github.com/helloakshay27/hi-society-assets/internal/category"
	"github.com/helloakshay27/hi-society-assets/internal/types"
)

// Core field names shared with form and payload.
const (
	FieldAssetName         = "asset_name"
	FieldPurchaseCost      = "purchase_cost"
	FieldPurchasedOn       = "purchased_on_date"
	FieldCommissioningDate = "commissioning_date"
	FieldWarrantyExpiry    = "warranty_expiry"

	FieldAssetLoaned        = "asset_loaned"
	FieldLoanVendorID       = "loaned_vendor_id"
	FieldAgreementStartDate = "agreement_start_date"
	FieldAgreementEndDate   = "agreement_end_date"

	FieldUsefulLife       = "useful_life"
	FieldSalvageValue     = "salvage_value"
	FieldDepreciationRate = "depreciation_rate"

	FieldMeterApplicable = "meter_applicable"
	FieldMeterType       = "meter_type"
	FieldParentMeterID   = "parent_meter_id"

	FieldAmcCost         = "amc_cost"
	FieldAmcStartDate    = "amc_start_date"
	FieldAmcEndDate      = "amc_end_date"
	FieldAmcFirstService = "amc_first_service_date"
)

// MeterTypeSub is the meter_type value that requires a parent meter.
const MeterTypeSub = "SubMeter"

// ITGroupSystem and ITGroupHardware are the two nested IT-asset groups.
const (
	ITGroupSystem   = "system_details"
	ITGroupHardware = "hardware_details"
)

// itRequiredFields are the six nested fields IT Equipment demands.
var itRequiredFields = []struct {
	Group string
	Key   string
	Label string
}{
	{ITGroupSystem, "os", "Operating System"},
	{ITGroupSystem, "memory", "Memory"},
	{ITGroupSystem, "processor", "Processor"},
	{ITGroupHardware, "model", "Model"},
	{ITGroupHardware, "serial_number", "Serial Number"},
	{ITGroupHardware, "capacity", "Capacity"},
}

// amcFields is the all-or-nothing maintenance-contract field set.
var amcFields = []struct {
	Key   string
	Label string
}{
	{FieldAmcCost, "AMC Cost"},
	{FieldAmcStartDate, "AMC Start Date"},
	{FieldAmcEndDate, "AMC End Date"},
	{FieldAmcFirstService, "AMC First Service Date"},
}

// Validate runs the full rule sequence for the given category against
// the form state. Empty result means valid; otherwise the slice holds
// exactly the first violated rule's message.
func Validate(cat category.Category, s *types.FormState) []string {
	if msg := run(cat, s); msg != "" {
		return []string{msg}
	}
	return nil
}

func run(cat category.Category, s *types.FormState) string {
	// 1. Category must be selected and known.
	rules, ok := category.Lookup(cat)
	if cat == "" || !ok {
		return "Category is required"
	}

	// 2. Base fields.
	for _, f := range rules.Base {
		if s.CoreValue(f.Key) == "" {
			return f.Label + " is required"
		}
	}

	// 3. Location fields.
	for _, f := range rules.Location {
		if s.CoreValue(f.Key) == "" {
			return f.Label + " is required"
		}
	}
	for _, f := range rules.Warranty {
		if s.CoreValue(f.Key) == "" {
			return f.Label + " is required"
		}
	}

	// 4. Category-specific fields live in the extra-field map, not the
	// core record.
	for _, f := range rules.Specific {
		entry, ok := s.Extra[types.FieldKey{Group: f.Group, Name: f.Key}]
		if !ok || entry.Value == "" {
			return f.Label + " is required"
		}
	}

	// 5. Loaned block.
	if category.LoanAllowed(cat) && s.CoreBool(FieldAssetLoaned) {
		if s.CoreValue(FieldLoanVendorID) == "" {
			return "Vendor is required when the asset is on loan"
		}
		if s.CoreValue(FieldAgreementStartDate) == "" {
			return "Agreement Start Date is required when the asset is on loan"
		}
		if s.CoreValue(FieldAgreementEndDate) == "" {
			return "Agreement End Date is required when the asset is on loan"
		}
	}

	// 6. Useful-life block, gated on a positive purchase cost.
	if cost, costOK := parseAmount(s.CoreValue(FieldPurchaseCost)); costOK && cost > 0 && category.DepreciationApplies(cat) {
		if s.CoreValue(FieldUsefulLife) == "" {
			return "Useful Life is required"
		}
		if s.CoreValue(FieldSalvageValue) == "" {
			return "Salvage Value is required"
		}
		if s.CoreValue(FieldDepreciationRate) == "" {
			return "Depreciation Rate is required"
		}
		if salvage, ok := parseAmount(s.CoreValue(FieldSalvageValue)); ok {
			// Strictly less: never equal, never greater.
			if salvage == cost {
				return "Salvage Value cannot be equal to Purchase Cost"
			}
			if salvage > cost {
				return "Salvage Value must be less than Purchase Cost"
			}
		}
	}

	// 7. IT Equipment nested fields.
	if cat == category.ITEquipment {
		for _, f := range itRequiredFields {
			if itFieldValue(s, f.Group, f.Key) == "" {
				return f.Label + " is required"
			}
		}
	}

	// 8. SubMeter parent selection.
	if s.CoreBool(FieldMeterApplicable) && s.CoreValue(FieldMeterType) == MeterTypeSub {
		if s.CoreValue(FieldParentMeterID) == "" {
			return "Parent Meter is required for Sub Meter"
		}
	}

	// 9. AMC block: any filled field makes all four required.
	anyAmc := false
	for _, f := range amcFields {
		if s.CoreValue(f.Key) != "" {
			anyAmc = true
			break
		}
	}
	if anyAmc {
		for _, f := range amcFields {
			if s.CoreValue(f.Key) == "" {
				return f.Label + " is required when AMC details are provided"
			}
		}
		first, firstOK := s.CoreDate(FieldAmcFirstService)
		comm, commOK := s.CoreDate(FieldCommissioningDate)
		if firstOK && commOK && first.Before(comm) {
			return "AMC first service date cannot precede the commissioning date"
		}
	}

	return ""
}

func itFieldValue(s *types.FormState, group, key string) string {
	for _, f := range s.ITCustomFields[group] {
		if f.Name == key {
			return f.Value
		}
	}
	return ""
}

func parseAmount(v string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
