package linkmap

// Family identifies one of the four independent mapping tables: which
// attribute the source value comes from, and whether the targets are apps
// or groups.
type Family string

const (
	DepartmentApps     Family = "department-apps"
	DepartmentGroups   Family = "department-groups"
	EmployeeTypeApps   Family = "employee-type-apps"
	EmployeeTypeGroups Family = "employee-type-groups"
)

// AllFamilies returns every mapping family.
func AllFamilies() []Family {
	return []Family{DepartmentApps, DepartmentGroups, EmployeeTypeApps, EmployeeTypeGroups}
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	switch f {
	case DepartmentApps, DepartmentGroups, EmployeeTypeApps, EmployeeTypeGroups:
		return true
	}
	return false
}

// Mapping associates one attribute value with one provisioning target.
// A single source value may map to many targets.
type Mapping struct {
	SourceValue string `json:"sourceValue"`
	TargetName  string `json:"targetName"`
}
