package schema

import "strings"

// ---------------------------------------------------------------------
// Entity Ordering
// ---------------------------------------------------------------------

// Order arranges tables so that every parent table exists before its children:
// root entities first, derived entities next (each after its base), owned entities last.
// The relative order inside each group is kept.
func Order(tables []*TargetTable) []*TargetTable {
	var roots, derived, owned []*TargetTable
	for _, t := range tables {
		switch {
		case t.BaseEntity != "":
			derived = append(derived, t)
		case t.Owned:
			owned = append(owned, t)
		default:
			roots = append(roots, t)
		}
	}

	sorted := make([]*TargetTable, 0, len(tables))
	sorted = append(sorted, roots...)
	sorted = append(sorted, sortByBase(derived, roots)...)
	sorted = append(sorted, owned...)
	return sorted
}

// sortByBase places each derived entity after its base. A base that is not part of the
// derived set counts as already processed.
func sortByBase(derived, roots []*TargetTable) []*TargetTable {
	processed := make(map[string]bool)
	for _, t := range roots {
		processed[strings.ToLower(t.Entity)] = true
	}
	pending := make(map[string]bool)
	for _, t := range derived {
		pending[strings.ToLower(t.Entity)] = true
	}

	var sorted []*TargetTable
	done := make(map[*TargetTable]bool)
	for len(sorted) < len(derived) {
		added := false
		for _, t := range derived {
			if done[t] {
				continue
			}
			base := strings.ToLower(t.BaseEntity)
			if processed[base] || !pending[base] {
				sorted = append(sorted, t)
				done[t] = true
				processed[strings.ToLower(t.Entity)] = true
				added = true
			}
		}

		// A cycle in base types cannot be satisfied; keep declaration order for the rest.
		if !added {
			for _, t := range derived {
				if !done[t] {
					sorted = append(sorted, t)
					done[t] = true
				}
			}
		}
	}
	return sorted
}
