package model

import (
	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// LoadState is the resolution state of a HasOne slot.
type LoadState uint8

// Load states.
const (
	Unloaded LoadState = iota // never attempted
	NotFound                  // attempted, no related row
	Loaded                    // attempted, related row present
)

// String returns the state name.
func (s LoadState) String() string {
	switch s {
	case NotFound:
		return "NotFound"
	case Loaded:
		return "Loaded"
	}
	return "Unloaded"
}

// HasOne is the resolved state of a to-one relation on a fetched model.
// A slot moves from Unloaded to NotFound or Loaded exactly once per fetch.
type HasOne[M any] struct {
	state LoadState
	value M
}

// State returns the slot state.
func (h *HasOne[M]) State() LoadState { return h.state }

// IsUnloaded reports whether the relation was never loaded.
func (h *HasOne[M]) IsUnloaded() bool { return h.state == Unloaded }

// IsNotFound reports whether the relation was loaded and is absent.
func (h *HasOne[M]) IsNotFound() bool { return h.state == NotFound }

// IsLoaded reports whether the relation was loaded and is present.
func (h *HasOne[M]) IsLoaded() bool { return h.state == Loaded }

// Get returns the related model if the slot is Loaded.
func (h *HasOne[M]) Get() (M, bool) {
	return h.value, h.state == Loaded
}

// Set resolves the slot to Loaded(m). It panics if the slot was already
// resolved.
func (h *HasOne[M]) Set(m M) {
	h.mustBeUnloaded()
	h.state, h.value = Loaded, m
}

// SetNotFound resolves the slot to NotFound. It panics if the slot was
// already resolved.
func (h *HasOne[M]) SetNotFound() {
	h.mustBeUnloaded()
	h.state = NotFound
}

// Take returns the related model, if any, and resets the slot to Unloaded.
func (h *HasOne[M]) Take() (M, bool) {
	v, ok := h.Get()
	var zero M
	h.state, h.value = Unloaded, zero
	return v, ok
}

func (h *HasOne[M]) mustBeUnloaded() {
	if h.state != Unloaded {
		panic("model: has-one slot resolved twice (state " + h.state.String() + ")")
	}
}

// MarshalJSON encodes a Loaded slot as its model and both absent states
// as null.
func (h HasOne[M]) MarshalJSON() ([]byte, error) {
	if h.state != Loaded {
		return []byte("null"), nil
	}
	return json.Marshal(h.value)
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (h *HasOne[M]) EncodeMsgpack(enc *msgpack.Encoder) error {
	if h.state != Loaded {
		return enc.EncodeNil()
	}
	return enc.Encode(h.value)
}

// Keyed is implemented by models with a primary key.
type Keyed interface {
	PK() Key
}

// HasMany is the resolved state of a to-many relation on a fetched model.
// Items keep the order of the batched query.
type HasMany[M Keyed] struct {
	loaded bool
	items  []M
}

// Loaded reports whether the relation was loaded.
func (h *HasMany[M]) Loaded() bool { return h.loaded }

// Set resolves the slot with the given items. It panics if the slot was
// already loaded.
func (h *HasMany[M]) Set(items []M) {
	if h.loaded {
		panic("model: has-many slot resolved twice")
	}
	h.loaded, h.items = true, items
}

// Items returns the related models.
func (h *HasMany[M]) Items() []M { return h.items }

// Len returns the number of related models.
func (h *HasMany[M]) Len() int { return len(h.items) }

// Find reports whether a model with the same primary key as m is present.
func (h *HasMany[M]) Find(m M) bool {
	pk := m.PK()
	for _, it := range h.items {
		if it.PK() == pk {
			return true
		}
	}
	return false
}

// Take returns the related models and resets the slot to unloaded.
func (h *HasMany[M]) Take() []M {
	items := h.items
	h.loaded, h.items = false, nil
	return items
}

// MarshalJSON encodes a loaded slot as an array and an unloaded slot as null.
func (h HasMany[M]) MarshalJSON() ([]byte, error) {
	if !h.loaded {
		return []byte("null"), nil
	}
	if h.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.items)
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (h *HasMany[M]) EncodeMsgpack(enc *msgpack.Encoder) error {
	if !h.loaded {
		return enc.EncodeNil()
	}
	if err := enc.EncodeArrayLen(len(h.items)); err != nil {
		return err
	}
	for _, it := range h.items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}
