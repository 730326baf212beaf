package feature

// Labels holds the raw labels of one data point and their transformed form.
// Both slices are aligned index for index.
type Labels struct {
	Original    []Value
	Transformed []Value
}

// NewLabels parses raw label fields and applies dict to build the
// transformed side. Fields missing from dict are carried over unchanged.
func NewLabels(raw []string, dict map[string]Value) *Labels {
	l := &Labels{
		Original:    make([]Value, len(raw)),
		Transformed: make([]Value, len(raw)),
	}
	for i, field := range raw {
		orig := Parse(field)
		l.Original[i] = orig
		if mapped, ok := dict[field]; ok {
			l.Transformed[i] = mapped
		} else {
			l.Transformed[i] = orig
		}
	}
	return l
}

// Pick returns the original or the transformed side.
func (l *Labels) Pick(original bool) []Value {
	if l == nil {
		return nil
	}
	if original {
		return l.Original
	}
	return l.Transformed
}

// Width is the number of labels per data point.
func (l *Labels) Width() int {
	if l == nil {
		return 0
	}
	return len(l.Original)
}
