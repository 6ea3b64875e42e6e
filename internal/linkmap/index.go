package linkmap

// Index is a lookup table from attribute value to the set of target names
// mapped from it. It is a pure function of the flat mapping list it was
// built from; an empty list yields an empty index.
type Index map[string]map[string]struct{}

// BuildIndex groups a flat mapping list by source value. Duplicate
// (source, target) pairs collapse into one entry.
func BuildIndex(mappings []Mapping) Index {
	idx := make(Index, len(mappings))
	for _, m := range mappings {
		targets, ok := idx[m.SourceValue]
		if !ok {
			targets = make(map[string]struct{})
			idx[m.SourceValue] = targets
		}
		targets[m.TargetName] = struct{}{}
	}
	return idx
}

// Lookup returns the set of targets mapped from value. A value with no
// mappings returns an empty set, never an error. The returned map is a copy;
// callers may mutate it freely.
func (idx Index) Lookup(value string) map[string]struct{} {
	out := make(map[string]struct{})
	if value == "" {
		return out
	}
	for target := range idx[value] {
		out[target] = struct{}{}
	}
	return out
}

// IndexSet bundles the four indexes the selection engine consumes. The zero
// value behaves as four empty indexes, which is also the degraded state when
// mapping lists fail to load.
type IndexSet struct {
	DepartmentApps     Index
	DepartmentGroups   Index
	EmployeeTypeApps   Index
	EmployeeTypeGroups Index
}

// BuildIndexSet builds all four indexes from their flat mapping lists.
func BuildIndexSet(byFamily map[Family][]Mapping) IndexSet {
	return IndexSet{
		DepartmentApps:     BuildIndex(byFamily[DepartmentApps]),
		DepartmentGroups:   BuildIndex(byFamily[DepartmentGroups]),
		EmployeeTypeApps:   BuildIndex(byFamily[EmployeeTypeApps]),
		EmployeeTypeGroups: BuildIndex(byFamily[EmployeeTypeGroups]),
	}
}
