package model

import (
	"errors"
	"fmt"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/schema"
)

// ActiveState is the dirty-tracking state of a column value.
type ActiveState uint8

// Active value states.
const (
	StateNotSet    ActiveState = iota // no value, column is skipped on write
	StateUnchanged                    // value read from the database
	StateSet                          // value assigned by the caller
)

// ActiveValue is a column value with its dirty-tracking state.
type ActiveValue struct {
	state ActiveState
	value any
}

// NotSetValue returns an ActiveValue without a value.
func NotSetValue() ActiveValue { return ActiveValue{} }

// Unchanged returns an ActiveValue holding a value read from the database.
func Unchanged(v any) ActiveValue { return ActiveValue{state: StateUnchanged, value: v} }

// SetValue returns an ActiveValue holding a value assigned by the caller.
func SetValue(v any) ActiveValue { return ActiveValue{state: StateSet, value: v} }

// State returns the value state.
func (v ActiveValue) State() ActiveState { return v.state }

// IsSet reports whether the value was assigned by the caller.
func (v ActiveValue) IsSet() bool { return v.state == StateSet }

// IsNotSet reports whether the value is absent.
func (v ActiveValue) IsNotSet() bool { return v.state == StateNotSet }

// Value returns the value and whether one is present.
func (v ActiveValue) Value() (any, bool) { return v.value, v.state != StateNotSet }

// ActiveModel is a mutable, dirty-tracking wrapper used to build writes.
// Relation-bearing entities also get one mutation slot per relation.
type ActiveModel struct {
	entity *schema.Entity
	values []ActiveValue
	one    map[string]*HasOneModel[*ActiveModel]
	many   map[string]*HasManyModel[*ActiveModel]
}

// NewActiveModel returns an ActiveModel with every column NotSet.
func NewActiveModel(e *schema.Entity) *ActiveModel {
	a := &ActiveModel{
		entity: e,
		values: make([]ActiveValue, len(e.Columns)),
		one:    make(map[string]*HasOneModel[*ActiveModel]),
		many:   make(map[string]*HasManyModel[*ActiveModel]),
	}
	for _, r := range e.Relations {
		if r.Kind.ToOne() {
			a.one[r.Name] = &HasOneModel[*ActiveModel]{}
		} else {
			a.many[r.Name] = &HasManyModel[*ActiveModel]{}
		}
	}
	return a
}

// Entity returns the entity descriptor.
func (a *ActiveModel) Entity() *schema.Entity { return a.entity }

// Set assigns a value to the named column. The value is normalized to
// the column type.
func (a *ActiveModel) Set(column string, v any) error {
	i := a.entity.ColumnIndex(column)
	if i < 0 {
		return relkit.NewValidationError(column, fmt.Errorf("unknown column of %s", a.entity.Name))
	}
	nv, err := Convert(a.entity.Columns[i], v)
	if err != nil {
		return relkit.NewValidationError(column, err)
	}
	a.values[i] = SetValue(nv)
	return nil
}

// MustSet is like Set but panics on error.
func (a *ActiveModel) MustSet(column string, v any) *ActiveModel {
	if err := a.Set(column, v); err != nil {
		panic(err)
	}
	return a
}

// Unset marks the named column as NotSet.
func (a *ActiveModel) Unset(column string) {
	if i := a.entity.ColumnIndex(column); i >= 0 {
		a.values[i] = NotSetValue()
	}
}

// Get returns the ActiveValue of the named column.
func (a *ActiveModel) Get(column string) ActiveValue {
	if i := a.entity.ColumnIndex(column); i >= 0 {
		return a.values[i]
	}
	return NotSetValue()
}

// SetColumns returns the names of the Set columns in declared order.
func (a *ActiveModel) SetColumns() []string {
	var cols []string
	for i, v := range a.values {
		if v.IsSet() {
			cols = append(cols, a.entity.Columns[i].Name)
		}
	}
	return cols
}

// PrimaryKey returns the primary-key values and whether all of them are
// present.
func (a *ActiveModel) PrimaryKey() ([]any, bool) {
	pk := make([]any, len(a.entity.PrimaryKey))
	for i, c := range a.entity.PrimaryKey {
		v, ok := a.Get(c).Value()
		if !ok {
			return nil, false
		}
		pk[i] = v
	}
	return pk, true
}

// IsChanged reports whether any column is Set or any relation slot
// carries a change. A nil model carries none.
func (a *ActiveModel) IsChanged() bool {
	if a == nil {
		return false
	}
	for _, v := range a.values {
		if v.IsSet() {
			return true
		}
	}
	for _, h := range a.one {
		if h.IsChanged() {
			return true
		}
	}
	for _, h := range a.many {
		if h.IsChanged() {
			return true
		}
	}
	return false
}

// Reset marks every Unchanged value as Set, so a following update writes
// all known columns.
func (a *ActiveModel) Reset() {
	for i, v := range a.values {
		if v.state == StateUnchanged {
			a.values[i].state = StateSet
		}
	}
}

// Persisted marks every Set value as Unchanged after a successful write.
// Values returned by the database, such as generated keys, are stored as
// Unchanged.
func (a *ActiveModel) Persisted(returned map[string]any) error {
	for i, v := range a.values {
		if v.state == StateSet {
			a.values[i].state = StateUnchanged
		}
	}
	for column, v := range returned {
		i := a.entity.ColumnIndex(column)
		if i < 0 {
			return relkit.NewValidationError(column, fmt.Errorf("unknown column of %s", a.entity.Name))
		}
		nv, err := Convert(a.entity.Columns[i], v)
		if err != nil {
			return relkit.NewValidationError(column, err)
		}
		a.values[i] = Unchanged(nv)
	}
	return nil
}

// IntoModel converts the ActiveModel into a Model. Every column must
// hold a value.
func (a *ActiveModel) IntoModel() (*Model, error) {
	values := make([]any, len(a.values))
	var errs []error
	for i, v := range a.values {
		val, ok := v.Value()
		if !ok {
			errs = append(errs, relkit.NewValidationError(a.entity.Columns[i].Name, errors.New("value not set")))
			continue
		}
		values[i] = val
	}
	if err := relkit.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	return &Model{entity: a.entity, values: values}, nil
}

// HasOne returns the mutation slot of the named to-one relation. It
// panics if the entity declares no such relation.
func (a *ActiveModel) HasOne(name string) *HasOneModel[*ActiveModel] {
	h, ok := a.one[name]
	if !ok {
		panic(&relkit.RelationError{From: a.entity.Name, To: name})
	}
	return h
}

// HasMany returns the mutation slot of the named to-many relation. It
// panics if the entity declares no such relation.
func (a *ActiveModel) HasMany(name string) *HasManyModel[*ActiveModel] {
	h, ok := a.many[name]
	if !ok {
		panic(&relkit.RelationError{From: a.entity.Name, To: name})
	}
	return h
}

// Changer is implemented by write-side models.
type Changer interface {
	IsChanged() bool
}

// HasOneModel is a pending to-one mutation: NotSet, or Set to a nested
// active model that is inserted or updated on save.
type HasOneModel[A Changer] struct {
	set   bool
	value A
}

// Set stores a nested active model.
func (h *HasOneModel[A]) Set(a A) { h.set, h.value = true, a }

// Unset clears the slot.
func (h *HasOneModel[A]) Unset() {
	var zero A
	h.set, h.value = false, zero
}

// IsSet reports whether the slot holds a model.
func (h *HasOneModel[A]) IsSet() bool { return h.set }

// Get returns the nested model, if set.
func (h *HasOneModel[A]) Get() (A, bool) { return h.value, h.set }

// IsChanged reports whether the slot holds a changed model.
func (h *HasOneModel[A]) IsChanged() bool { return h.set && h.value.IsChanged() }

// HasManyState is the intent of a pending to-many mutation.
type HasManyState uint8

// To-many mutation intents.
const (
	ManyNotSet  HasManyState = iota // no effect on save
	ManyReplace                     // rows not in the list are deleted
	ManyAppend                      // rows are added, never deleted
)

// String returns the intent name.
func (s HasManyState) String() string {
	switch s {
	case ManyReplace:
		return "Replace"
	case ManyAppend:
		return "Append"
	}
	return "NotSet"
}

// HasManyModel is a pending to-many mutation. Replace encodes deletion
// intent even with an empty list; Append never deletes.
type HasManyModel[A Changer] struct {
	state HasManyState
	items []A
}

// Replace returns a HasManyModel that replaces the related rows.
func Replace[A Changer](items ...A) HasManyModel[A] {
	return HasManyModel[A]{state: ManyReplace, items: items}
}

// Append returns a HasManyModel that adds related rows.
func Append[A Changer](items ...A) HasManyModel[A] {
	return HasManyModel[A]{state: ManyAppend, items: items}
}

// State returns the mutation intent.
func (h *HasManyModel[A]) State() HasManyState { return h.state }

// Items returns the nested models.
func (h *HasManyModel[A]) Items() []A { return h.items }

// Replace sets the intent to Replace with the given items.
func (h *HasManyModel[A]) Replace(items ...A) { h.state, h.items = ManyReplace, items }

// Append adds items. A NotSet slot becomes Append; a Replace slot stays
// Replace.
func (h *HasManyModel[A]) Append(items ...A) {
	if h.state == ManyNotSet {
		h.state = ManyAppend
	}
	h.items = append(h.items, items...)
}

// IsChanged reports whether saving the slot has an effect. Replace is
// always changed. Append is changed iff any nested model is changed.
func (h *HasManyModel[A]) IsChanged() bool {
	switch h.state {
	case ManyReplace:
		return true
	case ManyAppend:
		for _, it := range h.items {
			if it.IsChanged() {
				return true
			}
		}
	}
	return false
}

// EmptyHolder returns an empty slot with the same intent.
func (h *HasManyModel[A]) EmptyHolder() HasManyModel[A] {
	return HasManyModel[A]{state: h.state}
}
