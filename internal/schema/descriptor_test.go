package schema_test

import (
	"testing"

	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratingKind(t *testing.T) *schema.Descriptor {
	t.Helper()
	d, err := schema.New("raider",
		schema.Field{Name: "region", Type: schema.Text, Key: true, CaseInsensitive: true},
		schema.Field{Name: "name", Type: schema.Text, Key: true, CaseInsensitive: true},
		schema.Field{Name: "rating", Type: schema.Real, Tracked: true},
		schema.Field{Name: "spec", Type: schema.Text},
	)
	require.NoError(t, err)
	return d
}

func TestNew_RejectsBadDescriptors(t *testing.T) {
	testCases := []struct {
		name   string
		kind   string
		fields []schema.Field
	}{
		{"bad kind", "Raider-IO", []schema.Field{{Name: "name", Key: true}}},
		{"no fields", "raider", nil},
		{"reserved id", "raider", []schema.Field{{Name: "id", Key: true}}},
		{"injection attempt", "raider", []schema.Field{{Name: "name; DROP TABLE x", Key: true}}},
		{"duplicate", "raider", []schema.Field{{Name: "name", Key: true}, {Name: "name"}}},
		{"no key", "raider", []schema.Field{{Name: "rating", Type: schema.Real}}},
		{"tracked key", "raider", []schema.Field{{Name: "name", Key: true, Tracked: true}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schema.New(tc.kind, tc.fields...)
			assert.Error(t, err)
		})
	}
}

func TestFieldViews(t *testing.T) {
	d := ratingKind(t)

	assert.Equal(t, "raider", d.Kind())
	assert.Len(t, d.Fields(), 4)
	assert.Len(t, d.KeyFields(), 2)
	assert.Len(t, d.MutableFields(), 2)
	require.Len(t, d.TrackedFields(), 1)
	assert.Equal(t, "rating", d.TrackedFields()[0].Name)

	// Callers cannot mutate the descriptor through the returned slice.
	fields := d.Fields()
	fields[0].Name = "changed"
	f, ok := d.Field("region")
	require.True(t, ok)
	assert.True(t, f.Key)
}

func TestTrackedFields_DefaultsToAllMutable(t *testing.T) {
	d := schema.MustNew("siege",
		schema.Field{Name: "uid", Type: schema.Text, Key: true},
		schema.Field{Name: "rank_points", Type: schema.Integer},
		schema.Field{Name: "rank_name", Type: schema.Text},
	)
	assert.Len(t, d.TrackedFields(), 2)
}

func TestRequire(t *testing.T) {
	d := ratingKind(t)

	err := d.Require(schema.Values{"region": "eu", "name": "Thrall", "rating": 1500.0})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrIntegrityViolation))

	err = d.Require(schema.Values{"region": "eu", "name": "Thrall", "rating": 1500.0, "spec": "Frost", "extra": 1})
	require.Error(t, err)

	err = d.Require(schema.Values{"region": "eu", "name": nil, "rating": 1500.0, "spec": "Frost"})
	require.Error(t, err, "nil key value")
	assert.True(t, errs.Is(err, errs.ErrIntegrityViolation))

	assert.NoError(t, d.Require(schema.Values{"region": "eu", "name": "Thrall", "rating": 1500.0, "spec": "Frost"}))
	assert.NoError(t, d.Require(schema.Values{"region": "eu", "name": "Thrall", "rating": nil, "spec": nil}), "mutable fields may be nil")
}

func TestNormalize(t *testing.T) {
	d := ratingKind(t)

	values, err := d.Normalize(schema.Values{
		"id":     int(4),
		"name":   []byte("Café"),
		"rating": int64(1500),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), values["id"])
	assert.Equal(t, "Café", values["name"], "text is NFC normalized")
	assert.Equal(t, 1500.0, values["rating"])

	_, err = d.Normalize(schema.Values{"level": 3})
	assert.True(t, errs.Is(err, errs.ErrIntegrityViolation))

	_, err = d.Normalize(schema.Values{"rating": struct{}{}})
	assert.True(t, errs.Is(err, errs.ErrIntegrityViolation))
}

func TestChanged(t *testing.T) {
	d := ratingKind(t)
	old := schema.Values{"region": "eu", "name": "Thrall", "rating": 1500.0, "spec": "Frost"}

	t.Run("equal rating is not a change", func(t *testing.T) {
		assert.Empty(t, d.Changed(old, schema.Values{"rating": 1500.0, "spec": "Fire"}))
	})

	t.Run("any difference counts", func(t *testing.T) {
		assert.Equal(t, []string{"rating"}, d.Changed(old, schema.Values{"rating": 1532.4}))
		assert.Equal(t, []string{"rating"}, d.Changed(old, schema.Values{"rating": 1500.0000001}))
	})

	t.Run("integer and float forms compare equal", func(t *testing.T) {
		assert.Empty(t, d.Changed(old, schema.Values{"rating": int64(1500)}))
	})

	t.Run("missing fresh value is unchanged", func(t *testing.T) {
		assert.Empty(t, d.Changed(old, schema.Values{}))
	})

	t.Run("null to value is a change", func(t *testing.T) {
		assert.Equal(t, []string{"rating"}, d.Changed(schema.Values{"rating": nil}, schema.Values{"rating": 10.0}))
	})
}

func TestKey(t *testing.T) {
	d := ratingKind(t)
	key := d.Key(schema.Values{"region": "eu", "name": "Thrall", "rating": 1.0})
	assert.Equal(t, schema.Values{"region": "eu", "name": "Thrall"}, key)
}

func TestValues_Accessors(t *testing.T) {
	v := schema.Values{"name": "Thrall", "rating": int64(1500), "class": nil}

	assert.Equal(t, "Thrall", v.Text("name"))
	assert.Equal(t, "", v.Text("class"))
	assert.Equal(t, "", v.Text("rating"))
	assert.Equal(t, "", v.Text("missing"))
	assert.Equal(t, 1500.0, v.Float("rating"))
}
