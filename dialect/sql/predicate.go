package sql

// Column is a typed column reference that provides type-safe predicate
// methods. The name may be qualified with a table alias.
//
// Usage:
//
//	var CakeName = sql.Column[string]("A.name")
//	sel.Where(CakeName.HasPrefix("choc"))
type Column[T any] string

// Name returns the column name.
func (c Column[T]) Name() string { return string(c) }

// EQ returns a predicate that checks if the column equals the given value.
func (c Column[T]) EQ(v T) Predicate { return EQ(string(c), v) }

// NEQ returns a predicate that checks if the column does not equal the given value.
func (c Column[T]) NEQ(v T) Predicate { return NEQ(string(c), v) }

// GT returns a predicate that checks if the column is greater than the given value.
func (c Column[T]) GT(v T) Predicate { return GT(string(c), v) }

// GTE returns a predicate that checks if the column is greater than or equal to the given value.
func (c Column[T]) GTE(v T) Predicate { return GTE(string(c), v) }

// LT returns a predicate that checks if the column is less than the given value.
func (c Column[T]) LT(v T) Predicate { return LT(string(c), v) }

// LTE returns a predicate that checks if the column is less than or equal to the given value.
func (c Column[T]) LTE(v T) Predicate { return LTE(string(c), v) }

// In returns a predicate that checks if the column value is in the given list.
func (c Column[T]) In(vs ...T) Predicate {
	args := make([]any, len(vs))
	for i := range vs {
		args[i] = vs[i]
	}
	return In(string(c), args...)
}

// NotIn returns a predicate that checks if the column value is not in the given list.
func (c Column[T]) NotIn(vs ...T) Predicate {
	if len(vs) == 0 {
		return Expr("1 = 1")
	}
	return Not(c.In(vs...))
}

// IsNull returns a predicate that checks if the column is NULL.
func (c Column[T]) IsNull() Predicate { return IsNull(string(c)) }

// NotNull returns a predicate that checks if the column is not NULL.
func (c Column[T]) NotNull() Predicate { return NotNull(string(c)) }

// HasPrefix returns a LIKE predicate matching values that start with prefix.
// It is meaningful for string columns only.
func (c Column[T]) HasPrefix(prefix string) Predicate { return Like(string(c), prefix+"%") }

// HasSuffix returns a LIKE predicate matching values that end with suffix.
func (c Column[T]) HasSuffix(suffix string) Predicate { return Like(string(c), "%"+suffix) }

// Contains returns a LIKE predicate matching values that contain sub.
func (c Column[T]) Contains(sub string) Predicate { return Like(string(c), "%"+sub+"%") }
