package analyzer

import (
	"cmp"
	"slices"
)

// Reconcile compares the variables used in code/workflows with the declared ones.
// It has no side effects and returns the same Result for the same inputs,
// regardless of input order.
//
//	missing  = used \ declared
//	orphaned = declared \ used
//	defined  = used ∩ declared
//
// Names are compared byte for byte, so API_KEY and api_key are different variables.
func Reconcile(occurrences []Occurrence, declarations []Declaration) Result {
	result := Result{
		Missing:  []MissingVar{},
		Orphaned: []Declaration{},
		Defined:  []string{},
	}

	used := make(map[string][]Occurrence)
	for _, occ := range occurrences {
		used[occ.Name] = append(used[occ.Name], occ)
	}

	// First declaration of a name wins for reporting
	declared := make(map[string]Declaration)
	for _, decl := range declarations {
		if _, exists := declared[decl.Name]; !exists {
			declared[decl.Name] = decl
		}
	}

	for name, occs := range used {
		if _, ok := declared[name]; ok {
			result.Defined = append(result.Defined, name)
			continue
		}
		sorted := slices.Clone(occs)
		SortOccurrences(sorted)
		result.Missing = append(result.Missing, MissingVar{Name: name, Occurrences: sorted})
	}

	for name, decl := range declared {
		if _, ok := used[name]; !ok {
			result.Orphaned = append(result.Orphaned, decl)
		}
	}

	slices.Sort(result.Defined)
	slices.SortFunc(result.Missing, func(a, b MissingVar) int {
		return cmp.Compare(a.Name, b.Name)
	})
	slices.SortFunc(result.Orphaned, func(a, b Declaration) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return result
}

// SortOccurrences orders occurrences in place by (file, line), then by name
// and kind so that ties are still deterministic
func SortOccurrences(occs []Occurrence) {
	slices.SortFunc(occs, func(a, b Occurrence) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Kind, b.Kind),
		)
	})
}

// ApplyIgnores returns a copy of r without the names silenced by ignores.
//
// A missing variable whose every occurrence sits in an ignored folder is
// dropped and counted in IgnoredFromFolders. Occurrences from ignored
// folders are also removed from the call sites of the remaining missing
// variables.
func (r Result) ApplyIgnores(ignores Ignores) Result {
	ignoreMissing := toSet(ignores.Missing)
	ignoreOrphaned := toSet(ignores.Orphaned)

	out := Result{
		Missing:            []MissingVar{},
		Orphaned:           []Declaration{},
		Defined:            slices.Clone(r.Defined),
		IgnoredMissing:     r.IgnoredMissing,
		IgnoredOrphaned:    r.IgnoredOrphaned,
		IgnoredFromFolders: r.IgnoredFromFolders,
	}
	if out.Defined == nil {
		out.Defined = []string{}
	}

	for _, missing := range r.Missing {
		var visible []Occurrence
		for _, occ := range missing.Occurrences {
			if !occ.InIgnoredPath {
				visible = append(visible, occ)
			}
		}
		if len(visible) == 0 && len(missing.Occurrences) > 0 {
			out.IgnoredFromFolders++
			continue
		}
		if ignoreMissing[missing.Name] {
			out.IgnoredMissing++
			continue
		}
		out.Missing = append(out.Missing, MissingVar{Name: missing.Name, Occurrences: visible})
	}

	for _, decl := range r.Orphaned {
		if ignoreOrphaned[decl.Name] {
			out.IgnoredOrphaned++
			continue
		}
		out.Orphaned = append(out.Orphaned, decl)
	}

	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
