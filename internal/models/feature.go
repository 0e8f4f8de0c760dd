package models

// ColumnSet is an ordered list of feature column names with a position index
type ColumnSet struct {
	names     []string
	positions map[string]int
}

// NewColumnSet indexes names. When a name repeats, the first position wins.
func NewColumnSet(names []string) *ColumnSet {
	cs := &ColumnSet{
		names:     make([]string, len(names)),
		positions: make(map[string]int, len(names)),
	}
	copy(cs.names, names)
	for i, name := range names {
		if _, exists := cs.positions[name]; !exists {
			cs.positions[name] = i
		}
	}
	return cs
}

// Names returns a copy of the column names in order
func (cs *ColumnSet) Names() []string {
	names := make([]string, len(cs.names))
	copy(names, cs.names)
	return names
}

func (cs *ColumnSet) Len() int {
	return len(cs.names)
}

// Position returns the slot index of name
func (cs *ColumnSet) Position(name string) (int, bool) {
	pos, ok := cs.positions[name]
	return pos, ok
}

func (cs *ColumnSet) Has(name string) bool {
	_, ok := cs.positions[name]
	return ok
}

// FeatureVector is a fixed-order numeric record aligned with a ColumnSet
type FeatureVector struct {
	Columns *ColumnSet
	Values  []float64
}

// FeatureValue is one named slot of a FeatureVector
type FeatureValue struct {
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

// NewFeatureVector allocates a zero-filled vector with one slot per column
func NewFeatureVector(columns *ColumnSet) FeatureVector {
	return FeatureVector{
		Columns: columns,
		Values:  make([]float64, columns.Len()),
	}
}

// Set writes value into the named slot. It returns false if the column does not exist.
func (v FeatureVector) Set(name string, value float64) bool {
	pos, ok := v.Columns.Position(name)
	if !ok {
		return false
	}
	v.Values[pos] = value
	return true
}

// Get reads the named slot
func (v FeatureVector) Get(name string) (float64, bool) {
	pos, ok := v.Columns.Position(name)
	if !ok {
		return 0, false
	}
	return v.Values[pos], true
}

// Pairs returns the vector as ordered column/value pairs
func (v FeatureVector) Pairs() []FeatureValue {
	pairs := make([]FeatureValue, len(v.Values))
	for i, value := range v.Values {
		pairs[i] = FeatureValue{Column: v.Columns.names[i], Value: value}
	}
	return pairs
}
