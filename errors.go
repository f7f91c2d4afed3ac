package relkit

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested model does not exist.
	ErrNotFound = errors.New("relkit: model not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns zero or multiple results.
	ErrNotSingular = errors.New("relkit: model not singular")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = errors.New("relkit: cannot start a transaction within a transaction")

	// ErrRecordNotInserted is returned when an insert affected no rows.
	ErrRecordNotInserted = errors.New("relkit: record not inserted")

	// ErrRecordNotUpdated is returned when an update affected no rows.
	ErrRecordNotUpdated = errors.New("relkit: record not updated")
)

// NotFoundError represents an error when a model is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("relkit: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("relkit: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a query expects a singular result
// but receives zero or multiple results.
type NotSingularError struct {
	label string
	count int // Number of results returned (-1 if unknown)
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	if e.count >= 0 {
		return fmt.Sprintf("relkit: %s not singular (got %d results, expected 1)", e.label, e.count)
	}
	return fmt.Sprintf("relkit: %s not singular", e.label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Label returns the entity label.
func (e *NotSingularError) Label() string {
	return e.label
}

// Count returns the number of results, or -1 if unknown.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError for the given entity.
func NewNotSingularError(label string) *NotSingularError {
	return &NotSingularError{label: label, count: -1}
}

// NewNotSingularErrorWithCount returns a new NotSingularError with the result count.
func NewNotSingularErrorWithCount(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// NotLoadedError is returned when reading a relation slot that the loader
// never resolved.
type NotLoadedError struct {
	relation string
}

// Error returns the error string.
func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("relkit: relation %q was not loaded", e.relation)
}

// NewNotLoadedError returns a new NotLoadedError for the given relation name.
func NewNotLoadedError(relation string) *NotLoadedError {
	return &NotLoadedError{relation: relation}
}

// IsNotLoaded returns true if the error is a NotLoadedError.
func IsNotLoaded(err error) bool {
	if err == nil {
		return false
	}
	var e *NotLoadedError
	return errors.As(err, &e)
}

// ConnectionError is returned when a statement could not be executed
// against the database.
type ConnectionError struct {
	Op  string // Operation (e.g., "query", "exec", "begin")
	Err error  // Underlying driver error
}

// Error returns the error string.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("relkit: connection: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError returns a new ConnectionError.
func NewConnectionError(op string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Err: err}
}

// IsConnectionError returns true if the error is a ConnectionError.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConnectionError
	return errors.As(err, &e)
}

// TypeExtractionError is returned when a present, non-optional column
// value cannot be converted to the column's semantic type.
type TypeExtractionError struct {
	Entity string // Entity name
	Column string // Column name
	Value  any    // Raw value read from the row
	Err    error  // Conversion error
}

// Error returns the error string.
func (e *TypeExtractionError) Error() string {
	return fmt.Sprintf("relkit: extract %s.%s from %T(%v): %v", e.Entity, e.Column, e.Value, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *TypeExtractionError) Unwrap() error {
	return e.Err
}

// NewTypeExtractionError returns a new TypeExtractionError.
func NewTypeExtractionError(entity, column string, value any, err error) *TypeExtractionError {
	return &TypeExtractionError{Entity: entity, Column: column, Value: value, Err: err}
}

// IsTypeExtractionError returns true if the error is a TypeExtractionError.
func IsTypeExtractionError(err error) bool {
	if err == nil {
		return false
	}
	var e *TypeExtractionError
	return errors.As(err, &e)
}

// RelationArityError is the panic value raised when a primary-key tuple
// does not match the arity of the entity's primary key.
type RelationArityError struct {
	Entity string
	Want   int
	Got    int
}

// Error returns the error string.
func (e *RelationArityError) Error() string {
	return fmt.Sprintf("relkit: %s primary key has %d columns, got %d values", e.Entity, e.Want, e.Got)
}

// IsRelationArityError returns true if the error is a RelationArityError.
func IsRelationArityError(err error) bool {
	if err == nil {
		return false
	}
	var e *RelationArityError
	return errors.As(err, &e)
}

// RelationError is the panic value raised when a query is composed over
// a relation that is not declared in the registry.
type RelationError struct {
	From string // Owning entity
	To   string // Target entity or relation name
	Via  string // Optional through entity
}

// Error returns the error string.
func (e *RelationError) Error() string {
	if e.Via != "" {
		return fmt.Sprintf("relkit: no relation from %s to %s via %s", e.From, e.To, e.Via)
	}
	return fmt.Sprintf("relkit: no relation from %s to %s", e.From, e.To)
}

// IsRelationError returns true if the error is a RelationError.
func IsRelationError(err error) bool {
	if err == nil {
		return false
	}
	var e *RelationError
	return errors.As(err, &e)
}

// RecordNotInsertedError is returned when an insert of exactly one row
// affected none.
type RecordNotInsertedError struct {
	Entity string
}

// Error returns the error string.
func (e *RecordNotInsertedError) Error() string {
	return fmt.Sprintf("relkit: %s record not inserted", e.Entity)
}

// Is reports whether the target error matches ErrRecordNotInserted.
func (e *RecordNotInsertedError) Is(err error) bool {
	return err == ErrRecordNotInserted
}

// RecordNotUpdatedError is returned when an update of exactly one row
// affected none.
type RecordNotUpdatedError struct {
	Entity string
}

// Error returns the error string.
func (e *RecordNotUpdatedError) Error() string {
	return fmt.Sprintf("relkit: %s record not updated", e.Entity)
}

// Is reports whether the target error matches ErrRecordNotUpdated.
func (e *RecordNotUpdatedError) Is(err error) bool {
	return err == ErrRecordNotUpdated
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("relkit: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// ValidationError represents an invalid value assigned to a column.
type ValidationError struct {
	Name string // Column or entity name
	Err  error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("relkit: validator failed for column %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given column.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("relkit: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "relkit: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("relkit: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

// QueryError wraps a query error with additional context.
type QueryError struct {
	Entity string // Entity being queried
	Op     string // Operation (e.g., "select", "count", "load")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("relkit: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("relkit: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a write error with additional context.
type MutationError struct {
	Entity string // Entity being written
	Op     string // Operation (e.g., "insert", "update")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("relkit: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
