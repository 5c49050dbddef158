package validation

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/lllypuk/ladder/internal/domain/constraint"
	"github.com/lllypuk/ladder/internal/domain/request"
)

// Typed adapts a predicate over T to an untyped Constraint. A value of another
// type is reported as ErrValueType, which Validate surfaces as a defect.
func Typed[T any](category constraint.Category, predicate func(ctx context.Context, value T) (bool, error)) Constraint {
	return constraint.New(category, func(ctx context.Context, value any) (bool, error) {
		v, ok := value.(T)
		if !ok {
			var want T
			return false, fmt.Errorf("%w: want %T, got %T", ErrValueType, want, value)
		}
		return predicate(ctx, v)
	})
}

// Never is a constraint that always fails with category.
func Never(category constraint.Category) Constraint {
	return constraint.New(category, func(context.Context, any) (bool, error) { return false, nil })
}

// HasPermission requires the member field to hold permission.
func HasPermission(permission string) Constraint {
	return Typed(constraint.InsufficientPermissions, func(_ context.Context, m request.Member) (bool, error) {
		return m.Can(permission), nil
	})
}

// LengthBetween requires a string value of min..max runes.
func LengthBetween(minLen, maxLen int) Constraint {
	return Typed(constraint.InvalidFormat, func(_ context.Context, s string) (bool, error) {
		n := utf8.RuneCountInString(s)
		return n >= minLen && n <= maxLen, nil
	})
}

// IntBetween requires an integral value within min..max.
func IntBetween(minValue, maxValue int) Constraint {
	return constraint.New(constraint.OutOfRange, func(_ context.Context, value any) (bool, error) {
		n, ok := request.Option{Value: value}.Int()
		if !ok {
			return false, nil
		}
		return n >= minValue && n <= maxValue, nil
	})
}

// NotEqualTo rejects a value equal to other with InvalidTarget.
func NotEqualTo(other any) Constraint {
	return constraint.New(constraint.InvalidTarget, func(_ context.Context, value any) (bool, error) {
		return value != other, nil
	})
}

// NonEmpty requires a non-empty string value.
func NonEmpty(category constraint.Category) Constraint {
	return Typed(category, func(_ context.Context, s string) (bool, error) {
		return s != "", nil
	})
}
