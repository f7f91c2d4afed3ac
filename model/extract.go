package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/schema"
)

// ErrNull is the cause of a TypeExtractionError raised for a NULL value
// in a column that is not nullable.
var ErrNull = errors.New("unexpected NULL")

// Convert normalizes a raw driver value to the Go type of the column's
// semantic type. NULL converts to nil for nullable columns.
func Convert(c schema.Column, v any) (any, error) {
	if v == nil {
		if c.Nullable {
			return nil, nil
		}
		return nil, ErrNull
	}
	// Text protocols (MySQL, lib/pq) return most values as bytes.
	if b, ok := v.([]byte); ok && c.Type != schema.TypeBytes && c.Type != schema.TypeJSON && c.Type != schema.TypeUUID {
		v = string(b)
	}
	switch c.Type {
	case schema.TypeInt:
		return cast.ToInt64E(v)
	case schema.TypeFloat:
		return cast.ToFloat64E(v)
	case schema.TypeString:
		return cast.ToStringE(v)
	case schema.TypeBool:
		return cast.ToBoolE(v)
	case schema.TypeTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		return cast.ToTimeE(v)
	case schema.TypeBytes:
		switch v := v.(type) {
		case []byte:
			return append([]byte(nil), v...), nil
		case string:
			return []byte(v), nil
		}
		return nil, fmt.Errorf("unable to cast %#v of type %T to []byte", v, v)
	case schema.TypeUUID:
		return toUUID(v)
	case schema.TypeDecimal:
		return toDecimal(v)
	case schema.TypeJSON:
		return toJSON(v)
	}
	return nil, fmt.Errorf("unknown column type %s", c.Type)
}

func toUUID(v any) (uuid.UUID, error) {
	switch v := v.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		return uuid.Parse(v)
	}
	return uuid.Nil, fmt.Errorf("unable to cast %#v of type %T to uuid", v, v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch v := v.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to cast %#v of type %T to decimal", v, v)
	}
	return decimal.NewFromInt(i), nil
}

func toJSON(v any) (json.RawMessage, error) {
	var b []byte
	switch v := v.(type) {
	case json.RawMessage:
		b = v
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		b, err := json.Marshal(v)
		return json.RawMessage(b), err
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("invalid JSON value %q", b)
	}
	return append(json.RawMessage(nil), b...), nil
}

// Extract builds a Model from raw driver values given in the entity's
// declared column order.
func Extract(e *schema.Entity, raw []any) (*Model, error) {
	if len(raw) != len(e.Columns) {
		return nil, fmt.Errorf("model: %s expects %d values, got %d", e.Name, len(e.Columns), len(raw))
	}
	values := make([]any, len(raw))
	for i, c := range e.Columns {
		v, err := Convert(c, raw[i])
		if err != nil {
			return nil, relkit.NewTypeExtractionError(e.Name, c.Name, raw[i], err)
		}
		values[i] = v
	}
	return &Model{entity: e, values: values}, nil
}

// New builds a Model from column values keyed by name. Missing columns
// are NULL.
func New(e *schema.Entity, values map[string]any) (*Model, error) {
	raw := make([]any, len(e.Columns))
	for name, v := range values {
		i := e.ColumnIndex(name)
		if i < 0 {
			return nil, relkit.NewValidationError(name, fmt.Errorf("unknown column of %s", e.Name))
		}
		raw[i] = v
	}
	return Extract(e, raw)
}

// MustNew is like New but panics on error.
func MustNew(e *schema.Entity, values map[string]any) *Model {
	m, err := New(e, values)
	if err != nil {
		panic(err)
	}
	return m
}
