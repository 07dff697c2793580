package model

// Insight is a saved visualization: buckets, filters and sorts stored in the
// catalog under Ref.
type Insight struct {
	Ref     Ref
	Title   string
	Buckets []Bucket
	Filters []Filter
	Sorts   []SortItem
}

// MergeFilters combines an insight's filters with extra filters. Extra
// filters follow the insight's own, except that an extra date filter
// replaces every insight date filter on the same data set.
func MergeFilters(insightFilters, extra []Filter) []Filter {
	merged := make([]Filter, 0, len(insightFilters)+len(extra))
	for _, f := range insightFilters {
		if ds, ok := isDateFilter(f); ok && overridesDataSet(extra, ds) {
			continue
		}
		merged = append(merged, f)
	}
	return append(merged, extra...)
}

func overridesDataSet(extra []Filter, dataSet Ref) bool {
	for _, f := range extra {
		if ds, ok := isDateFilter(f); ok && refEqual(ds, dataSet) {
			return true
		}
	}
	return false
}

// Preparation is the two-stage input of an execution: either a reference to
// a saved insight still to be loaded, or a resolved definition. Only a
// Resolved preparation has a fingerprint.
type Preparation interface {
	preparation()
}

// Unresolved names a saved insight plus filters to merge into its own.
type Unresolved struct {
	Workspace    string
	Ref          Ref
	ExtraFilters []Filter
}

func (Unresolved) preparation() {}

// Resolved holds a complete definition.
type Resolved struct {
	Definition *Definition
}

func (Resolved) preparation() {}

// Resolve turns an Unresolved preparation into a Resolved one using the
// loaded insight.
func (u Unresolved) Resolve(insight *Insight) (Resolved, error) {
	def, err := NewDefForInsight(u.Workspace, insight, u.ExtraFilters...)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Definition: def}, nil
}
