package model

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/schema"
)

func testRegistry(t testing.TB) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(
		schema.Def{
			Name:  "Cake",
			Table: "cake",
			Columns: []schema.Column{
				{Name: "id", Type: schema.TypeInt},
				{Name: "name", Type: schema.TypeString},
				{Name: "bakery_id", Type: schema.TypeInt, Nullable: true},
			},
			Relations: []schema.RelationDef{
				{Kind: schema.BelongsTo, To: "Bakery"},
				{Kind: schema.HasMany, To: "Baker", Through: &schema.ThroughDef{Entity: "CakeBaker"}},
			},
		},
		schema.Def{
			Name:  "Bakery",
			Table: "bakery",
			Columns: []schema.Column{
				{Name: "id", Type: schema.TypeInt},
				{Name: "name", Type: schema.TypeString},
			},
		},
		schema.Def{
			Name:  "Baker",
			Table: "baker",
			Columns: []schema.Column{
				{Name: "id", Type: schema.TypeInt},
				{Name: "name", Type: schema.TypeString},
			},
		},
		schema.Def{
			Name:  "CakeBaker",
			Table: "cakes_bakers",
			Columns: []schema.Column{
				{Name: "cake_id", Type: schema.TypeInt},
				{Name: "baker_id", Type: schema.TypeInt},
			},
			PrimaryKey: []string{"cake_id", "baker_id"},
		},
	)
	require.NoError(t, err)
	return reg
}

func TestConvert(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		col  schema.Column
		in   any
		want any
	}{
		{"int/int64", schema.Column{Type: schema.TypeInt}, int64(7), int64(7)},
		{"int/bytes", schema.Column{Type: schema.TypeInt}, []byte("42"), int64(42)},
		{"int/int32", schema.Column{Type: schema.TypeInt}, int32(3), int64(3)},
		{"float/string", schema.Column{Type: schema.TypeFloat}, "1.5", 1.5},
		{"string/bytes", schema.Column{Type: schema.TypeString}, []byte("cheese"), "cheese"},
		{"bool/int", schema.Column{Type: schema.TypeBool}, int64(1), true},
		{"time/time", schema.Column{Type: schema.TypeTime}, ts, ts},
		{"time/string", schema.Column{Type: schema.TypeTime}, "2024-05-01T10:00:00Z", ts},
		{"bytes/string", schema.Column{Type: schema.TypeBytes}, "ab", []byte("ab")},
		{"uuid/string", schema.Column{Type: schema.TypeUUID}, id.String(), id},
		{"uuid/raw", schema.Column{Type: schema.TypeUUID}, id[:], id},
		{"decimal/string", schema.Column{Type: schema.TypeDecimal}, "10.25", decimal.RequireFromString("10.25")},
		{"decimal/int", schema.Column{Type: schema.TypeDecimal}, int64(3), decimal.NewFromInt(3)},
		{"json/bytes", schema.Column{Type: schema.TypeJSON}, []byte(`{"a":1}`), json.RawMessage(`{"a":1}`)},
		{"json/map", schema.Column{Type: schema.TypeJSON}, map[string]int{"a": 1}, json.RawMessage(`{"a":1}`)},
		{"nullable/nil", schema.Column{Type: schema.TypeInt, Nullable: true}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.col, tt.in)
			require.NoError(t, err)
			if d, ok := tt.want.(decimal.Decimal); ok {
				assert.True(t, d.Equal(got.(decimal.Decimal)))
				return
			}
			if ts, ok := tt.want.(time.Time); ok {
				assert.True(t, ts.Equal(got.(time.Time)))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("errors", func(t *testing.T) {
		_, err := Convert(schema.Column{Type: schema.TypeInt}, nil)
		assert.ErrorIs(t, err, ErrNull)
		_, err = Convert(schema.Column{Type: schema.TypeInt}, "abc")
		assert.Error(t, err)
		_, err = Convert(schema.Column{Type: schema.TypeJSON}, "{")
		assert.Error(t, err)
		_, err = Convert(schema.Column{Type: schema.TypeUUID}, 12)
		assert.Error(t, err)
	})
}

func TestExtract(t *testing.T) {
	cake := testRegistry(t).MustLookup("Cake")

	m, err := Extract(cake, []any{int64(1), []byte("cheese"), nil})
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Get("id"))
	assert.Equal(t, "cheese", m.Get("name"))
	assert.Nil(t, m.Get("bakery_id"))
	_, ok := m.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []any{int64(1)}, m.PrimaryKey())
	assert.Equal(t, "Cake(id=1, name=cheese, bakery_id=<nil>)", m.String())

	_, err = Extract(cake, []any{nil, "cheese", nil})
	require.Error(t, err)
	var terr *relkit.TypeExtractionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "Cake", terr.Entity)
	assert.Equal(t, "id", terr.Column)

	_, err = Extract(cake, []any{int64(1)})
	assert.Error(t, err)

	_, err = New(cake, map[string]any{"flavor": "x"})
	assert.True(t, relkit.IsValidationError(err))
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, KeyOf(int64(1), "a"), KeyOf(int64(1), "a"))
	assert.NotEqual(t, KeyOf(int64(1)), KeyOf("1"))
	assert.NotEqual(t, KeyOf(int64(1), int64(2)), KeyOf(int64(12)))
	assert.Equal(t, KeyOf([]byte{1, 2}), KeyOf([]byte{1, 2}))

	t1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, KeyOf(t1), KeyOf(t1.In(time.FixedZone("X", 3600))))

	cake := testRegistry(t).MustLookup("Cake")
	m := MustNew(cake, map[string]any{"id": 5, "name": "x"})
	assert.Equal(t, KeyOf(int64(5)), m.PK())
	assert.Equal(t, KeyOf(int64(5), "x"), m.Key([]string{"id", "name"}))
}

func TestHasOne(t *testing.T) {
	var h HasOne[string]
	assert.True(t, h.IsUnloaded())
	_, ok := h.Get()
	assert.False(t, ok)

	h.Set("bakery")
	assert.True(t, h.IsLoaded())
	assert.Equal(t, Loaded, h.State())
	assert.Panics(t, func() { h.Set("again") })
	assert.Panics(t, func() { h.SetNotFound() })

	v, ok := h.Take()
	assert.True(t, ok)
	assert.Equal(t, "bakery", v)
	assert.True(t, h.IsUnloaded())

	h.SetNotFound()
	assert.True(t, h.IsNotFound())
	assert.Equal(t, "NotFound", h.State().String())
	_, ok = h.Take()
	assert.False(t, ok)
	assert.True(t, h.IsUnloaded())
}

func TestHasOneEncoding(t *testing.T) {
	var unloaded, notFound, loaded HasOne[int]
	notFound.SetNotFound()
	loaded.Set(7)
	for _, h := range []*HasOne[int]{&unloaded, &notFound} {
		b, err := json.Marshal(h)
		require.NoError(t, err)
		assert.JSONEq(t, "null", string(b))
		b, err = msgpack.Marshal(h)
		require.NoError(t, err)
		var v any
		require.NoError(t, msgpack.Unmarshal(b, &v))
		assert.Nil(t, v)
	}
	b, err := json.Marshal(&loaded)
	require.NoError(t, err)
	assert.JSONEq(t, "7", string(b))
	assert.False(t, unloaded.IsNotFound())
	assert.True(t, notFound.IsNotFound())
}

func TestHasMany(t *testing.T) {
	baker := testRegistry(t).MustLookup("Baker")
	b1 := MustNew(baker, map[string]any{"id": 1, "name": "Alice"})
	b2 := MustNew(baker, map[string]any{"id": 2, "name": "Bob"})
	other := MustNew(baker, map[string]any{"id": 1, "name": "renamed"})

	var h HasMany[*Model]
	assert.False(t, h.Loaded())
	b, err := json.Marshal(&h)
	require.NoError(t, err)
	assert.JSONEq(t, "null", string(b))

	h.Set([]*Model{b1})
	assert.True(t, h.Loaded())
	assert.Equal(t, 1, h.Len())
	assert.True(t, h.Find(other))
	assert.False(t, h.Find(b2))
	assert.Panics(t, func() { h.Set(nil) })

	items := h.Take()
	assert.Len(t, items, 1)
	assert.False(t, h.Loaded())

	h.Set(nil)
	b, err = json.Marshal(&h)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(b))
}

func TestModelExEncoding(t *testing.T) {
	reg := testRegistry(t)
	cake := MustNew(reg.MustLookup("Cake"), map[string]any{"id": 1, "name": "cheese", "bakery_id": 3})
	bakery := MustNew(reg.MustLookup("Bakery"), map[string]any{"id": 3, "name": "LakeSide"})
	baker := MustNew(reg.MustLookup("Baker"), map[string]any{"id": 9, "name": "Alice"})

	ex := NewModelEx(cake)
	_, err := ex.Related("bakery")
	assert.True(t, relkit.IsNotLoaded(err))
	_, err = ex.RelatedAll("bakers")
	assert.True(t, relkit.IsNotLoaded(err))
	assert.Panics(t, func() { ex.One("bakers") })
	assert.Panics(t, func() { ex.Many("flavors") })

	b, err := json.Marshal(ex)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"cheese","bakery_id":3,"bakery":null,"bakers":null}`, string(b))

	ex.One("bakery").Set(bakery)
	ex.Many("bakers").Set([]*Model{baker})
	got, err := ex.Related("bakery")
	require.NoError(t, err)
	assert.Equal(t, bakery, got)

	b, err = json.Marshal(ex)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":1,"name":"cheese","bakery_id":3,
		"bakery":{"id":3,"name":"LakeSide"},
		"bakers":[{"id":9,"name":"Alice"}]
	}`, string(b))

	b, err = msgpack.Marshal(ex)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(b, &decoded))
	assert.Equal(t, "cheese", decoded["name"])
	assert.Equal(t, "LakeSide", decoded["bakery"].(map[string]any)["name"])
	assert.Len(t, decoded["bakers"], 1)
}
