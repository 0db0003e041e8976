package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mauv0809/rankwatch/internal/errs"
	"golang.org/x/text/unicode/norm"
)

// IDField is the surrogate identifier column every kind gets implicitly.
const IDField = "id"

var identifier = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Descriptor declares the stored fields of one player kind. It is built once
// at startup and is read-only afterwards.
type Descriptor struct {
	kind   string
	fields []Field
	index  map[string]int
}

// New validates the field list and returns a descriptor for kind.
func New(kind string, fields ...Field) (*Descriptor, error) {
	if !identifier.MatchString(kind) {
		return nil, fmt.Errorf("invalid kind name %q", kind)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("kind %s declares no fields", kind)
	}

	d := &Descriptor{
		kind:   kind,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	hasKey := false
	for i, f := range fields {
		if !identifier.MatchString(f.Name) || f.Name == IDField {
			return nil, fmt.Errorf("kind %s: invalid field name %q", kind, f.Name)
		}
		if _, dup := d.index[f.Name]; dup {
			return nil, fmt.Errorf("kind %s: duplicate field %q", kind, f.Name)
		}
		if f.Type < Text || f.Type > Real {
			return nil, fmt.Errorf("kind %s: field %s has unknown type %d", kind, f.Name, f.Type)
		}
		if f.Key && f.Tracked {
			return nil, fmt.Errorf("kind %s: key field %s cannot be tracked", kind, f.Name)
		}
		hasKey = hasKey || f.Key
		d.fields[i] = f
		d.index[f.Name] = i
	}
	if !hasKey {
		return nil, fmt.Errorf("kind %s declares no key field", kind)
	}
	return d, nil
}

// MustNew is New for package-level kind declarations.
func MustNew(kind string, fields ...Field) *Descriptor {
	d, err := New(kind, fields...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Descriptor) Kind() string { return d.kind }

// Fields returns every declared field in declaration order.
func (d *Descriptor) Fields() []Field {
	return append([]Field(nil), d.fields...)
}

func (d *Descriptor) KeyFields() []Field {
	return d.filter(func(f Field) bool { return f.Key })
}

func (d *Descriptor) MutableFields() []Field {
	return d.filter(func(f Field) bool { return !f.Key })
}

// TrackedFields returns the fields compared by Changed.
func (d *Descriptor) TrackedFields() []Field {
	tracked := d.filter(func(f Field) bool { return f.Tracked })
	if len(tracked) == 0 {
		return d.MutableFields()
	}
	return tracked
}

func (d *Descriptor) Field(name string) (Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

func (d *Descriptor) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

func (d *Descriptor) filter(keep func(Field) bool) []Field {
	var out []Field
	for _, f := range d.fields {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Require checks that values carries exactly the declared fields and that
// no key field is nil.
func (d *Descriptor) Require(values Values) error {
	for _, f := range d.fields {
		v, ok := values[f.Name]
		if !ok {
			return errs.Newf(errs.ErrIntegrityViolation, "%s: missing field %s", d.kind, f.Name)
		}
		if f.Key && v == nil {
			return errs.Newf(errs.ErrIntegrityViolation, "%s: key field %s is nil", d.kind, f.Name)
		}
	}
	for name := range values {
		if !d.Has(name) {
			return errs.Newf(errs.ErrIntegrityViolation, "%s: unknown field %s", d.kind, name)
		}
	}
	return nil
}

// Key projects the natural key out of values.
func (d *Descriptor) Key(values Values) Values {
	key := make(Values)
	for _, f := range d.KeyFields() {
		if v, ok := values[f.Name]; ok {
			key[f.Name] = v
		}
	}
	return key
}

// Normalize coerces values to the Go type of each field. Unknown names are
// rejected; the surrogate id is accepted as an integer.
func (d *Descriptor) Normalize(values Values) (Values, error) {
	out := make(Values, len(values))
	for name, raw := range values {
		if name == IDField {
			v, err := toInt(raw)
			if err != nil {
				return nil, errs.Wrapf(err, errs.ErrIntegrityViolation, "%s.%s", d.kind, name)
			}
			out[name] = v
			continue
		}
		f, ok := d.Field(name)
		if !ok {
			return nil, errs.Newf(errs.ErrIntegrityViolation, "%s: unknown field %s", d.kind, name)
		}
		v, err := coerce(f, raw)
		if err != nil {
			return nil, errs.Wrapf(err, errs.ErrIntegrityViolation, "%s.%s", d.kind, name)
		}
		out[name] = v
	}
	return out, nil
}

// Changed lists the tracked fields whose fresh value differs from the stored
// one. Fields missing from fresh are treated as unchanged. Comparison is
// exact; there is no tolerance band for numbers.
func (d *Descriptor) Changed(old, fresh Values) []string {
	var changed []string
	for _, f := range d.TrackedFields() {
		nv, ok := fresh[f.Name]
		if !ok {
			continue
		}
		if !equal(f, old[f.Name], nv) {
			changed = append(changed, f.Name)
		}
	}
	return changed
}

func equal(f Field, a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ca, errA := coerce(f, a)
	cb, errB := coerce(f, b)
	if errA != nil || errB != nil {
		return false
	}
	if f.Type == Text && f.CaseInsensitive {
		return strings.EqualFold(ca.(string), cb.(string))
	}
	return ca == cb
}

func coerce(f Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch f.Type {
	case Text:
		switch v := raw.(type) {
		case string:
			return norm.NFC.String(v), nil
		case []byte:
			return norm.NFC.String(string(v)), nil
		case fmt.Stringer:
			return norm.NFC.String(v.String()), nil
		}
	case Integer:
		return toInt(raw)
	case Real:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		case []byte:
			return strconv.ParseFloat(string(v), 64)
		case string:
			return strconv.ParseFloat(v, 64)
		}
	}
	return nil, fmt.Errorf("cannot store %T as %s", raw, f.Type)
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("non-integral value %v", v)
		}
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, fmt.Errorf("cannot store %T as INTEGER", raw)
}
