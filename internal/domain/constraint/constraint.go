// Package constraint defines named gate conditions evaluated before a command
// is allowed to run.
package constraint

import "context"

// Category names the kind of failure a constraint reports. It is descriptive
// metadata only; it never changes how the predicate is evaluated.
type Category string

// Known constraint categories.
const (
	InsufficientPermissions Category = "INSUFFICIENT_PERMISSIONS"
	DoesNotExist            Category = "DOES_NOT_EXIST"
	AlreadyExists           Category = "ALREADY_EXISTS"
	InvalidFormat           Category = "INVALID_FORMAT"
	OutOfRange              Category = "OUT_OF_RANGE"
	InvalidTarget           Category = "INVALID_TARGET"
	NotAParticipant         Category = "NOT_A_PARTICIPANT"
	MissingDefault          Category = "MISSING_DEFAULT"
)

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// Predicate reports whether value satisfies a condition. A false result is a
// violation; a non-nil error means the check itself could not be performed.
type Predicate[T any] func(ctx context.Context, value T) (bool, error)

// Constraint pairs a failure category with the predicate that detects it.
type Constraint[T any] struct {
	Category  Category
	Predicate Predicate[T]
}

// New builds a Constraint.
func New[T any](category Category, predicate Predicate[T]) Constraint[T] {
	return Constraint[T]{Category: category, Predicate: predicate}
}

// Check evaluates the predicate against value.
func (c Constraint[T]) Check(ctx context.Context, value T) (bool, error) {
	return c.Predicate(ctx, value)
}
