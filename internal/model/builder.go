package model

// The builder functions derive a new Definition from an existing one. The
// input is never modified; on error no Definition is returned.

// WithDimensions replaces the dimensions. Each spec is either a Dimension,
// used as given, or a DimensionGenerator, invoked on def and contributing
// all the dimensions it returns. With no specs the default dimensions are
// restored.
func WithDimensions(def *Definition, specs ...DimensionSpec) (*Definition, error) {
	out := def.clone()
	if len(specs) == 0 {
		out.dimensions = DefaultDimensions(def)
		return finish(out)
	}
	dims := make([]Dimension, 0, len(specs))
	for i, spec := range specs {
		switch s := spec.(type) {
		case Dimension:
			dims = append(dims, s)
		case DimensionGenerator:
			if s == nil {
				return nil, defErr("dimensions", "nil generator at position %d", i)
			}
			dims = append(dims, s(def.clone())...)
		default:
			return nil, defErr("dimensions", "missing dimension at position %d", i)
		}
	}
	out.dimensions = cloneDimensions(dims)
	return finish(out)
}

// WithSorting replaces the sort items. With no items the definition is
// left unsorted.
func WithSorting(def *Definition, items ...SortItem) (*Definition, error) {
	out := def.clone()
	out.sortBy = cloneSorts(items)
	return finish(out)
}

// WithPostProcessing replaces the post-processing. A nil or zero value
// clears it.
func WithPostProcessing(def *Definition, pp *PostProcessing) (*Definition, error) {
	out := def.clone()
	out.postProcessing = nil
	if pp != nil && !pp.IsZero() {
		c := *pp
		out.postProcessing = &c
	}
	return finish(out)
}

// WithFilters appends filters after the existing ones.
func WithFilters(def *Definition, filters ...Filter) (*Definition, error) {
	out := def.clone()
	out.filters = append(out.filters, cloneFilters(filters)...)
	return finish(out)
}

func finish(def *Definition) (*Definition, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	return def, nil
}
