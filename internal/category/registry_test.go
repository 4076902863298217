package category

import "testing"

func init() {
	if err := Init(); err != nil {
		panic(err)
	}
}

func TestInit_TableComplete(t *testing.T) {
	want := []Category{
		Building, FurnitureFixtures, ITEquipment, Land,
		LeaseholdImprovement, MachineryEquipment, Meter,
		ToolsInstruments, Vehicle,
	}
	got := All()
	if len(got) != len(want) {
		t.Fatalf("All() = %d categories, want %d", len(got), len(want))
	}
	for i, c := range want {
		if got[i] != c {
			t.Errorf("All()[%d] = %q, want %q", i, got[i], c)
		}
	}
}

func TestLookup_KnownCategory(t *testing.T) {
	r, ok := Lookup(ITEquipment)
	if !ok {
		t.Fatal("expected rules for IT Equipment")
	}
	if len(r.Base) == 0 || r.Base[0].Key != "asset_name" {
		t.Errorf("base fields = %v, want asset_name first", r.Base)
	}
	if len(r.Location) != 4 {
		t.Errorf("IT Equipment location fields = %d, want 4", len(r.Location))
	}
}

func TestLookup_UnknownCategory(t *testing.T) {
	if _, ok := Lookup("Spaceship"); ok {
		t.Error("expected no rules for unknown category")
	}
}

func TestLookup_LandNeedsNoSite(t *testing.T) {
	r, ok := Lookup(Land)
	if !ok {
		t.Fatal("expected rules for Land")
	}
	if len(r.Location) != 0 {
		t.Errorf("Land location fields = %v, want none", r.Location)
	}
}

func TestLoanAllowed(t *testing.T) {
	if !LoanAllowed(Vehicle) {
		t.Error("Vehicle should allow the loan block")
	}
	if LoanAllowed(Land) {
		t.Error("Land should not allow the loan block")
	}
}

func TestDepreciationApplies_ExcludesLeasehold(t *testing.T) {
	if DepreciationApplies(LeaseholdImprovement) {
		t.Error("Leasehold Improvement must stay outside the useful-life list")
	}
	if DepreciationApplies(Land) {
		t.Error("Land must stay outside the useful-life list")
	}
	if !DepreciationApplies(Vehicle) {
		t.Error("Vehicle belongs to the useful-life list")
	}
}

func TestKnownGroup(t *testing.T) {
	if !KnownGroup(Land, "land_details") {
		t.Error("land_details is a known Land group")
	}
	if KnownGroup(Land, "vehicle_details") {
		t.Error("vehicle_details is not a Land group")
	}
}

func TestAttachmentKey(t *testing.T) {
	cases := map[Category]string{
		FurnitureFixtures:    "furniturefixtures",
		ITEquipment:          "itequipment",
		MachineryEquipment:   "machineryequipment",
		Land:                 "land",
		LeaseholdImprovement: "leaseholdimprovement",
	}
	for c, want := range cases {
		if got := AttachmentKey(c); got != want {
			t.Errorf("AttachmentKey(%q) = %q, want %q", c, got, want)
		}
	}
}
