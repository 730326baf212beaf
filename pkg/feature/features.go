package feature

// Features is a mapping from feature name to Value that remembers the order
// in which names were first added. That order is the column order used when
// features are materialized into a matrix.
//
// A nil *Features stands for a record whose features were never extracted.
type Features struct {
	names  []string
	values map[string]Value
}

// NewFeatures returns an empty mapping.
func NewFeatures() *Features {
	return &Features{values: make(map[string]Value)}
}

// Singleton returns a mapping holding only name.
func Singleton(name string, v Value) *Features {
	f := NewFeatures()
	f.Set(name, v)
	return f
}

// Len returns the number of features; zero for a nil mapping.
func (f *Features) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

// Names returns the feature names in insertion order.
func (f *Features) Names() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Has reports whether name is present.
func (f *Features) Has(name string) bool {
	if f == nil {
		return false
	}
	_, ok := f.values[name]
	return ok
}

// Get returns the value stored under name.
func (f *Features) Get(name string) (Value, bool) {
	if f == nil {
		return Value{}, false
	}
	v, ok := f.values[name]
	return v, ok
}

// Set stores v under name. A name that already exists keeps its position.
func (f *Features) Set(name string, v Value) {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = v
}

// Values returns the values in insertion order.
func (f *Features) Values() []Value {
	if f == nil {
		return nil
	}
	out := make([]Value, 0, len(f.names))
	for _, name := range f.names {
		out = append(out, f.values[name])
	}
	return out
}

// Select returns the values whose names are in names, in mapping order.
// An empty names selects everything.
func (f *Features) Select(names []string) []Value {
	if len(names) == 0 {
		return f.Values()
	}
	if f == nil {
		return nil
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	out := make([]Value, 0, len(names))
	for _, name := range f.names {
		if _, ok := wanted[name]; ok {
			out = append(out, f.values[name])
		}
	}
	return out
}

// SelectNames is Select for the names themselves.
func (f *Features) SelectNames(names []string) []string {
	if len(names) == 0 {
		return f.Names()
	}
	if f == nil {
		return nil
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	out := make([]string, 0, len(names))
	for _, name := range f.names {
		if _, ok := wanted[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Clone returns a deep copy. Cloning nil yields nil.
func (f *Features) Clone() *Features {
	if f == nil {
		return nil
	}
	c := &Features{
		names:  make([]string, len(f.names)),
		values: make(map[string]Value, len(f.values)),
	}
	copy(c.names, f.names)
	for k, v := range f.values {
		if v.Kind == KindVector {
			v = Vector(v.Vec)
		}
		c.values[k] = v
	}
	return c
}

// Equal compares names, order and values.
func (f *Features) Equal(o *Features) bool {
	if f.Len() != o.Len() {
		return false
	}
	if f == nil || o == nil {
		return f == nil && o == nil
	}
	for i, name := range f.names {
		if o.names[i] != name {
			return false
		}
		if !f.values[name].Equal(o.values[name]) {
			return false
		}
	}
	return true
}
