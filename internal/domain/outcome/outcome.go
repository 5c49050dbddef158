// Package outcome models the result of a business operation as a closed set of
// status-tagged bodies.
//
// Every body type in this package implements Outcome and reports exactly one
// generic Status. Commands add their own statuses by declaring a type that
// embeds Specific and implements Status; nothing else can satisfy Outcome, so a
// switch over the concrete type is the only way to read a body.
package outcome

import "github.com/lllypuk/ladder/internal/domain/constraint"

// Status discriminates outcome bodies.
type Status string

// Generic statuses shared by every command.
const (
	StatusSuccess         Status = "SUCCESS"
	StatusSuccessMono     Status = "SUCCESS_MONO"
	StatusSuccessDuo      Status = "SUCCESS_DUO"
	StatusSuccessNoChange Status = "SUCCESS_NO_CHANGE"
	StatusFail            Status = "FAIL"
	StatusFailUnknown     Status = "FAIL_UNKNOWN"
	StatusFailValidation  Status = "FAIL_VALIDATION"
	StatusFailDNEMono     Status = "FAIL_DNE_MONO"
	StatusFailDNEDuo      Status = "FAIL_DNE_DUO"
)

//nolint:gochecknoglobals // fixed set of generic statuses
var genericStatuses = []Status{
	StatusSuccess,
	StatusSuccessMono,
	StatusSuccessDuo,
	StatusSuccessNoChange,
	StatusFail,
	StatusFailUnknown,
	StatusFailValidation,
	StatusFailDNEMono,
	StatusFailDNEDuo,
}

// GenericStatuses returns every generic status in declaration order.
func GenericStatuses() []Status {
	out := make([]Status, len(genericStatuses))
	copy(out, genericStatuses)
	return out
}

// IsGeneric reports whether s belongs to the shared generic set.
func IsGeneric(s Status) bool {
	for _, g := range genericStatuses {
		if g == s {
			return true
		}
	}
	return false
}

// IsSuccess reports whether s is one of the generic success statuses.
func IsSuccess(s Status) bool {
	switch s {
	case StatusSuccess, StatusSuccessMono, StatusSuccessDuo, StatusSuccessNoChange:
		return true
	default:
		return false
	}
}

// Outcome is the value every solver returns.
type Outcome interface {
	Status() Status
	sealed()
}

type sealedBody struct{}

func (sealedBody) sealed() {}

// Specific is embedded by command-specific outcome bodies. The embedding type
// must implement Status and must not reuse a generic status.
type Specific struct{ sealedBody }

// Succeeded is SUCCESS: the operation completed and there is nothing to report.
type Succeeded struct{ sealedBody }

// Status implements Outcome.
func (Succeeded) Status() Status { return StatusSuccess }

// SuccessMono is SUCCESS_MONO: one affected value and what it denotes.
type SuccessMono[T any] struct {
	sealedBody

	Data    T
	Context string
}

// Status implements Outcome.
func (SuccessMono[T]) Status() Status { return StatusSuccessMono }

// Mono returns the type-erased body.
func (o SuccessMono[T]) Mono() Mono { return Mono{Data: o.Data, Context: o.Context} }

// SuccessDuo is SUCCESS_DUO: two affected values and what each denotes.
type SuccessDuo[T any] struct {
	sealedBody

	Data1    T
	Context1 string
	Data2    T
	Context2 string
}

// Status implements Outcome.
func (SuccessDuo[T]) Status() Status { return StatusSuccessDuo }

// Duo returns the type-erased body.
func (o SuccessDuo[T]) Duo() Duo {
	return Duo{Data1: o.Data1, Context1: o.Context1, Data2: o.Data2, Context2: o.Context2}
}

// SuccessNoChange is SUCCESS_NO_CHANGE: the request was valid but left the
// listed values as they were.
type SuccessNoChange[T1, T2 any] struct {
	sealedBody

	Data1    []T1
	Context1 string
	Data2    []T2
	Context2 string
}

// Status implements Outcome.
func (SuccessNoChange[T1, T2]) Status() Status { return StatusSuccessNoChange }

// Lists returns the type-erased body.
func (o SuccessNoChange[T1, T2]) Lists() Lists {
	l := Lists{
		Data1:    make([]any, 0, len(o.Data1)),
		Context1: o.Context1,
		Data2:    make([]any, 0, len(o.Data2)),
		Context2: o.Context2,
	}
	for _, v := range o.Data1 {
		l.Data1 = append(l.Data1, v)
	}
	for _, v := range o.Data2 {
		l.Data2 = append(l.Data2, v)
	}
	return l
}

// Failed is FAIL: the operation was refused for a reason the user can act on
// but that has no body.
type Failed struct{ sealedBody }

// Status implements Outcome.
func (Failed) Status() Status { return StatusFail }

// FailUnknown is FAIL_UNKNOWN: something unanticipated happened.
type FailUnknown struct{ sealedBody }

// Status implements Outcome.
func (FailUnknown) Status() Status { return StatusFailUnknown }

// FailValidation is FAIL_VALIDATION: a constraint rejected the request before
// the operation ran.
type FailValidation struct {
	sealedBody

	Constraint constraint.Category
	Field      string
	Value      any
	Context    string
}

// Status implements Outcome.
func (FailValidation) Status() Status { return StatusFailValidation }

// FailDNEMono is FAIL_DNE_MONO: a referenced value does not exist.
type FailDNEMono[T any] struct {
	sealedBody

	Data    T
	Context string
}

// Status implements Outcome.
func (FailDNEMono[T]) Status() Status { return StatusFailDNEMono }

// Mono returns the type-erased body.
func (o FailDNEMono[T]) Mono() Mono { return Mono{Data: o.Data, Context: o.Context} }

// FailDNEDuo is FAIL_DNE_DUO: a pair of referenced values does not exist
// together (for example a player within a tournament).
type FailDNEDuo[T any] struct {
	sealedBody

	Data1    T
	Context1 string
	Data2    T
	Context2 string
}

// Status implements Outcome.
func (FailDNEDuo[T]) Status() Status { return StatusFailDNEDuo }

// Duo returns the type-erased body.
func (o FailDNEDuo[T]) Duo() Duo {
	return Duo{Data1: o.Data1, Context1: o.Context1, Data2: o.Data2, Context2: o.Context2}
}
