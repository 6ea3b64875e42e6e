package linkmap

import (
	"reflect"
	"testing"
)

func set(items ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

func TestBuildIndex(t *testing.T) {
	tests := []struct {
		name     string
		mappings []Mapping
		lookups  map[string]map[string]struct{}
	}{
		{
			name:     "empty input yields empty index",
			mappings: nil,
			lookups: map[string]map[string]struct{}{
				"Engineering": set(),
				"":            set(),
			},
		},
		{
			name: "multiple targets per source",
			mappings: []Mapping{
				{SourceValue: "Engineering", TargetName: "GitHub"},
				{SourceValue: "Engineering", TargetName: "PagerDuty"},
				{SourceValue: "Sales", TargetName: "Salesforce"},
			},
			lookups: map[string]map[string]struct{}{
				"Engineering": set("GitHub", "PagerDuty"),
				"Sales":       set("Salesforce"),
				"Marketing":   set(),
			},
		},
		{
			name: "duplicate pairs collapse",
			mappings: []Mapping{
				{SourceValue: "Contractor", TargetName: "VPN"},
				{SourceValue: "Contractor", TargetName: "VPN"},
			},
			lookups: map[string]map[string]struct{}{
				"Contractor": set("VPN"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := BuildIndex(tt.mappings)
			for value, want := range tt.lookups {
				got := idx.Lookup(value)
				if !reflect.DeepEqual(got, want) {
					t.Errorf("Lookup(%q) = %v, want %v", value, got, want)
				}
			}
		})
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	idx := BuildIndex([]Mapping{{SourceValue: "Engineering", TargetName: "GitHub"}})

	got := idx.Lookup("Engineering")
	got["Injected"] = struct{}{}

	if _, ok := idx.Lookup("Engineering")["Injected"]; ok {
		t.Error("mutating a lookup result leaked into the index")
	}
}

func TestBuildIndexSet(t *testing.T) {
	byFamily := map[Family][]Mapping{
		DepartmentApps:   {{SourceValue: "Engineering", TargetName: "GitHub"}},
		EmployeeTypeApps: {{SourceValue: "Contractor", TargetName: "VPN"}},
	}

	is := BuildIndexSet(byFamily)

	if !reflect.DeepEqual(is.DepartmentApps.Lookup("Engineering"), set("GitHub")) {
		t.Error("department app index not built")
	}
	if !reflect.DeepEqual(is.EmployeeTypeApps.Lookup("Contractor"), set("VPN")) {
		t.Error("employee-type app index not built")
	}
	// Families absent from the input behave as empty indexes.
	if got := is.DepartmentGroups.Lookup("Engineering"); len(got) != 0 {
		t.Errorf("expected empty group lookup, got %v", got)
	}

	// The zero IndexSet degrades to empty lookups everywhere.
	var zero IndexSet
	if got := zero.DepartmentApps.Lookup("Engineering"); len(got) != 0 {
		t.Errorf("expected empty lookup from zero IndexSet, got %v", got)
	}
}
