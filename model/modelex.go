package model

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/relkit/relkit"
)

// ModelEx is a Model plus one slot per declared relation of its entity.
// All slots are unloaded when the ModelEx is created.
type ModelEx struct {
	*Model
	one  map[string]*HasOne[*Model]
	many map[string]*HasMany[*Model]
}

// NewModelEx wraps m with empty relation slots.
func NewModelEx(m *Model) *ModelEx {
	ex := &ModelEx{
		Model: m,
		one:   make(map[string]*HasOne[*Model]),
		many:  make(map[string]*HasMany[*Model]),
	}
	for _, r := range m.entity.Relations {
		if r.Kind.ToOne() {
			ex.one[r.Name] = &HasOne[*Model]{}
		} else {
			ex.many[r.Name] = &HasMany[*Model]{}
		}
	}
	return ex
}

// One returns the slot of the named to-one relation. It panics if the
// entity declares no such relation.
func (m *ModelEx) One(name string) *HasOne[*Model] {
	h, ok := m.one[name]
	if !ok {
		panic(&relkit.RelationError{From: m.entity.Name, To: name})
	}
	return h
}

// Many returns the slot of the named to-many relation. It panics if the
// entity declares no such relation.
func (m *ModelEx) Many(name string) *HasMany[*Model] {
	h, ok := m.many[name]
	if !ok {
		panic(&relkit.RelationError{From: m.entity.Name, To: name})
	}
	return h
}

// Related returns the model of a to-one relation. It returns nil when
// the relation was loaded and absent, and a NotLoadedError when it was
// never loaded.
func (m *ModelEx) Related(name string) (*Model, error) {
	h := m.One(name)
	if h.IsUnloaded() {
		return nil, relkit.NewNotLoadedError(name)
	}
	v, _ := h.Get()
	return v, nil
}

// RelatedAll returns the models of a to-many relation, or a
// NotLoadedError when it was never loaded.
func (m *ModelEx) RelatedAll(name string) ([]*Model, error) {
	h := m.Many(name)
	if !h.Loaded() {
		return nil, relkit.NewNotLoadedError(name)
	}
	return h.Items(), nil
}

// MarshalJSON encodes the columns followed by the relation slots.
func (m *ModelEx) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	if err := m.Model.writeJSONFields(&b); err != nil {
		return nil, err
	}
	for _, r := range m.entity.Relations {
		var slot any = m.many[r.Name]
		if r.Kind.ToOne() {
			slot = m.one[r.Name]
		}
		if err := writeJSONField(&b, r.Name, slot); err != nil {
			return nil, err
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (m *ModelEx) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(m.entity.Columns) + len(m.entity.Relations)); err != nil {
		return err
	}
	if err := m.Model.encodeMsgpackFields(enc); err != nil {
		return err
	}
	for _, r := range m.entity.Relations {
		if err := enc.EncodeString(r.Name); err != nil {
			return err
		}
		var err error
		if r.Kind.ToOne() {
			err = m.one[r.Name].EncodeMsgpack(enc)
		} else {
			err = m.many[r.Name].EncodeMsgpack(enc)
		}
		if err != nil {
			return fmt.Errorf("model: encode %s.%s: %w", m.entity.Name, r.Name, err)
		}
	}
	return nil
}

// MarshalJSON encodes the columns as an object in declared order.
func (m *Model) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	if err := m.writeJSONFields(&b); err != nil {
		return nil, err
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (m *Model) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(m.entity.Columns)); err != nil {
		return err
	}
	return m.encodeMsgpackFields(enc)
}

func (m *Model) writeJSONFields(b *bytes.Buffer) error {
	for i, c := range m.entity.Columns {
		if err := writeJSONField(b, c.Name, m.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) encodeMsgpackFields(enc *msgpack.Encoder) error {
	for i, c := range m.entity.Columns {
		if err := enc.EncodeString(c.Name); err != nil {
			return err
		}
		if err := enc.Encode(m.values[i]); err != nil {
			return fmt.Errorf("model: encode %s.%s: %w", m.entity.Name, c.Name, err)
		}
	}
	return nil
}

func writeJSONField(b *bytes.Buffer, name string, v any) error {
	if b.Len() > 1 {
		b.WriteByte(',')
	}
	k, err := json.Marshal(name)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("model: encode %s: %w", name, err)
	}
	b.Write(k)
	b.WriteByte(':')
	b.Write(val)
	return nil
}

// Ensure the encoders are wired.
var (
	_ msgpack.CustomEncoder = (*Model)(nil)
	_ msgpack.CustomEncoder = (*ModelEx)(nil)
	_ json.Marshaler        = (*ModelEx)(nil)
)
