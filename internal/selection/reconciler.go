package selection

import (
	"github.com/jmcnally/provisor/internal/fieldcfg"
	"github.com/jmcnally/provisor/internal/linkmap"
)

// State holds the selection state of one in-progress user creation. The
// Selected sets are always derived: SelectedApps = ManualApps ∪ apps linked
// from the current department ∪ apps linked from the current employee type
// (and symmetrically for groups). They are recomputed on every change and
// never mutated directly.
type State struct {
	ManualApps   map[string]struct{}
	ManualGroups map[string]struct{}

	CurrentDepartment   string
	CurrentEmployeeType string

	SelectedApps   map[string]struct{}
	SelectedGroups map[string]struct{}
}

// NewState creates an empty selection state.
func NewState() *State {
	return &State{
		ManualApps:     make(map[string]struct{}),
		ManualGroups:   make(map[string]struct{}),
		SelectedApps:   make(map[string]struct{}),
		SelectedGroups: make(map[string]struct{}),
	}
}

// Reconciler recomputes the selected app/group sets from manual selections
// plus attribute-driven linkage. Linkage for an attribute only applies when
// the attribute's field config has the corresponding link flag enabled.
//
// Every operation is a synchronous, total function of its inputs: linkage is
// recomputed fresh from the current attribute values each time, never cached
// or patched incrementally.
type Reconciler struct {
	indexes linkmap.IndexSet

	departmentLinksApps     bool
	departmentLinksGroups   bool
	employeeTypeLinksApps   bool
	employeeTypeLinksGroups bool
}

// NewReconciler creates a reconciler for the given indexes and the link
// flags of the department and employee-type field configs. A nil config
// disables linkage for that attribute entirely.
func NewReconciler(indexes linkmap.IndexSet, department, employeeType *fieldcfg.SelectConfig) *Reconciler {
	r := &Reconciler{indexes: indexes}
	if department != nil {
		r.departmentLinksApps = department.LinkApps
		r.departmentLinksGroups = department.LinkGroups
	}
	if employeeType != nil {
		r.employeeTypeLinksApps = employeeType.LinkApps
		r.employeeTypeLinksGroups = employeeType.LinkGroups
	}
	return r
}

// SetDepartment records a new department value (empty string clears it) and
// recomputes the selected sets. Manual sets are not touched: only the linked
// contribution changes.
func (r *Reconciler) SetDepartment(s *State, value string) {
	s.CurrentDepartment = value
	r.recompute(s)
}

// SetEmployeeType records a new employee-type value (empty string clears it)
// and recomputes the selected sets.
func (r *Reconciler) SetEmployeeType(s *State, value string) {
	s.CurrentEmployeeType = value
	r.recompute(s)
}

// ToggleApp flips one app in the selected set, then redefines the manual set
// as everything selected that is not explained by current linkage. Entries
// present only because of the current attribute values are therefore dropped
// automatically when a later attribute change removes their link.
func (r *Reconciler) ToggleApp(s *State, name string) {
	linked := r.linkedApps(s)
	toggle(s.SelectedApps, name)
	s.ManualApps = subtract(s.SelectedApps, linked)
}

// ToggleGroup is the group counterpart of ToggleApp.
func (r *Reconciler) ToggleGroup(s *State, name string) {
	linked := r.linkedGroups(s)
	toggle(s.SelectedGroups, name)
	s.ManualGroups = subtract(s.SelectedGroups, linked)
}

// Recompute re-derives both selected sets from the manual sets and the
// current attribute values. It is idempotent.
func (r *Reconciler) Recompute(s *State) {
	r.recompute(s)
}

func (r *Reconciler) recompute(s *State) {
	s.SelectedApps = union(s.ManualApps, r.linkedApps(s))
	s.SelectedGroups = union(s.ManualGroups, r.linkedGroups(s))
}

func (r *Reconciler) linkedApps(s *State) map[string]struct{} {
	linked := make(map[string]struct{})
	if r.departmentLinksApps {
		mergeInto(linked, r.indexes.DepartmentApps.Lookup(s.CurrentDepartment))
	}
	if r.employeeTypeLinksApps {
		mergeInto(linked, r.indexes.EmployeeTypeApps.Lookup(s.CurrentEmployeeType))
	}
	return linked
}

func (r *Reconciler) linkedGroups(s *State) map[string]struct{} {
	linked := make(map[string]struct{})
	if r.departmentLinksGroups {
		mergeInto(linked, r.indexes.DepartmentGroups.Lookup(s.CurrentDepartment))
	}
	if r.employeeTypeLinksGroups {
		mergeInto(linked, r.indexes.EmployeeTypeGroups.Lookup(s.CurrentEmployeeType))
	}
	return linked
}

func toggle(set map[string]struct{}, item string) {
	if _, ok := set[item]; ok {
		delete(set, item)
	} else {
		set[item] = struct{}{}
	}
}

func union(sets ...map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range sets {
		mergeInto(out, s)
	}
	return out
}

func subtract(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for item := range a {
		if _, ok := b[item]; !ok {
			out[item] = struct{}{}
		}
	}
	return out
}

func mergeInto(dst, src map[string]struct{}) {
	for item := range src {
		dst[item] = struct{}{}
	}
}
