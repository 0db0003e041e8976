package schema

// FieldType is the storage type of a player field.
type FieldType int

const (
	Text FieldType = iota
	Integer
	Real
)

func (t FieldType) String() string {
	switch t {
	case Text:
		return "TEXT"
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	default:
		return "UNKNOWN"
	}
}

// Field describes one stored attribute of a player kind.
type Field struct {
	Name string
	Type FieldType
	// Key fields together form the natural key. They are unique as a group
	// and never change after creation.
	Key bool
	// CaseInsensitive compares the field without regard to ASCII case.
	CaseInsensitive bool
	// Tracked fields take part in the notable-change test. When a kind marks
	// no field as tracked, every mutable field is compared.
	Tracked bool
}

// Values holds field values by name. Text fields are strings, Integer fields
// int64 and Real fields float64 once normalized.
type Values map[string]any

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Text returns the named text value, or "" if absent.
func (v Values) Text(name string) string {
	s, _ := v[name].(string)
	return s
}

// Float returns the named numeric value as a float64.
func (v Values) Float(name string) float64 {
	switch n := v[name].(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// Int returns the named numeric value as an int64.
func (v Values) Int(name string) int64 {
	switch n := v[name].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
