// Package validation evaluates ordered constraint groups against a request view
// and stops at the first violation.
package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/lllypuk/ladder/internal/domain/constraint"
	"github.com/lllypuk/ladder/internal/domain/outcome"
	"github.com/lllypuk/ladder/internal/domain/request"
)

// Defect errors. These mean a check could not be performed, not that it failed.
var (
	ErrUnknownField = errors.New("unknown request field")
	ErrPredicate    = errors.New("constraint predicate error")
	ErrValueType    = errors.New("constraint value has unexpected type")
)

// Constraint is a constraint over an untyped request value.
type Constraint = constraint.Constraint[any]

// Error reports the first violated constraint.
type Error struct {
	Constraint constraint.Category
	Field      string
	Value      any
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Constraint)
}

// Outcome converts the error into the FAIL_VALIDATION outcome that replaces
// the solver's result.
func (e *Error) Outcome() outcome.FailValidation {
	return outcome.FailValidation{
		Constraint: e.Constraint,
		Field:      e.Field,
		Value:      e.Value,
		Context:    e.Field,
	}
}

// AsError extracts a validation Error from err.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// MetadataGroup binds constraints to a field of the request view.
type MetadataGroup struct {
	Field       string
	Constraints []Constraint
}

// OnField builds a MetadataGroup.
func OnField(field string, constraints ...Constraint) MetadataGroup {
	return MetadataGroup{Field: field, Constraints: constraints}
}

type groupKind int

const (
	groupOption groupKind = iota
	groupOmitted
	groupAlways
)

// OptionGroup binds constraints to one supplied option, to an omitted option
// (never evaluated), or to no option at all (always evaluated).
type OptionGroup struct {
	kind        groupKind
	option      request.Option
	field       string
	value       any
	constraints []Constraint
}

// OnOption builds a group for opt. A nil opt means the requester omitted the
// option and the group is skipped.
func OnOption(opt *request.Option, constraints ...Constraint) OptionGroup {
	if opt == nil {
		return OptionGroup{kind: groupOmitted, constraints: constraints}
	}
	return OptionGroup{kind: groupOption, option: *opt, field: opt.Name, constraints: constraints}
}

// Always builds a group evaluated regardless of the supplied options. field and
// value are what a violation reports.
func Always(field string, value any, constraints ...Constraint) OptionGroup {
	return OptionGroup{kind: groupAlways, field: field, value: value, constraints: constraints}
}

// Skipped reports whether the group belongs to an omitted option.
func (g OptionGroup) Skipped() bool {
	return g.kind == groupOmitted
}

// Validate runs metadata groups, then option groups, each in slice order and
// each group's constraints in order. The first violation is returned as *Error.
// A predicate error aborts validation and is returned wrapped in ErrPredicate.
func Validate(ctx context.Context, view request.View, metadata []MetadataGroup, options []OptionGroup) error {
	for _, group := range metadata {
		value, ok := view.Field(group.Field)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, group.Field)
		}
		if err := run(ctx, group.Field, value, group.Constraints); err != nil {
			return err
		}
	}

	for _, group := range options {
		switch group.kind {
		case groupOmitted:
			continue
		case groupAlways:
			if err := run(ctx, group.field, group.value, group.constraints); err != nil {
				return err
			}
		case groupOption:
			if err := run(ctx, group.field, group.option.Comparable(), group.constraints); err != nil {
				return err
			}
		}
	}

	return nil
}

func run(ctx context.Context, field string, value any, constraints []Constraint) error {
	for _, c := range constraints {
		ok, err := c.Check(ctx, value)
		if err != nil {
			return fmt.Errorf("%w: %s on %q: %w", ErrPredicate, c.Category, field, err)
		}
		if !ok {
			return &Error{Constraint: c.Category, Field: field, Value: value}
		}
	}
	return nil
}
