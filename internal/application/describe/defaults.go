package describe

import (
	"fmt"
	"strings"

	"github.com/lllypuk/ladder/internal/domain/constraint"
	"github.com/lllypuk/ladder/internal/domain/outcome"
)

// Description renders one outcome.
type Description func(o outcome.Outcome) Presentation

// Table maps statuses to descriptions.
type Table map[outcome.Status]Description

//nolint:gochecknoglobals // read-only process-wide table, never mutated after init
var defaults = Table{
	outcome.StatusSuccess:         describeSuccess,
	outcome.StatusSuccessMono:     describeSuccessMono,
	outcome.StatusSuccessDuo:      describeSuccessDuo,
	outcome.StatusSuccessNoChange: describeSuccessNoChange,
	outcome.StatusFail:            describeFail,
	outcome.StatusFailUnknown:     func(outcome.Outcome) Presentation { return Unknown() },
	outcome.StatusFailValidation:  describeFailValidation,
	outcome.StatusFailDNEMono:     describeFailDNEMono,
	outcome.StatusFailDNEDuo:      describeFailDNEDuo,
}

// Default returns the process-wide description of a generic status.
func Default(status outcome.Status) (Description, bool) {
	d, ok := defaults[status]
	return d, ok
}

// Unknown is the description of last resort.
func Unknown() Presentation {
	return Presentation{
		Title:     "Something went wrong",
		Content:   "An unexpected error occurred while running this command. It has been logged.",
		Ephemeral: true,
	}
}

// Expired describes a navigation event on a response that can no longer be paged.
func Expired() Presentation {
	return Presentation{
		Title:     "Interaction expired",
		Content:   "This interaction has expired. Run the command again to get a fresh result.",
		Ephemeral: true,
	}
}

// NotOwner describes a navigation event from someone other than the requester.
func NotOwner() Presentation {
	return Presentation{
		Title:     "Not your interaction",
		Content:   "Only the member who ran this command can change its page.",
		Ephemeral: true,
	}
}

func describeSuccess(outcome.Outcome) Presentation {
	return Presentation{Content: "Done."}
}

func describeSuccessMono(o outcome.Outcome) Presentation {
	body, ok := o.(outcome.MonoBody)
	if !ok {
		return Unknown()
	}
	m := body.Mono()
	return Presentation{
		Title:   "Success",
		Content: fmt.Sprintf("Done: %s **%v**.", Humanize(m.Context), m.Data),
	}
}

func describeSuccessDuo(o outcome.Outcome) Presentation {
	body, ok := o.(outcome.DuoBody)
	if !ok {
		return Unknown()
	}
	d := body.Duo()
	return Presentation{
		Title:   "Success",
		Content: fmt.Sprintf("Done: %s **%v** in %s **%v**.", Humanize(d.Context1), d.Data1, Humanize(d.Context2), d.Data2),
		Fields: []Field{
			{Name: Humanize(d.Context1), Value: fmt.Sprint(d.Data1)},
			{Name: Humanize(d.Context2), Value: fmt.Sprint(d.Data2)},
		},
	}
}

func describeSuccessNoChange(o outcome.Outcome) Presentation {
	body, ok := o.(outcome.ListsBody)
	if !ok {
		return Unknown()
	}
	l := body.Lists()
	p := Presentation{
		Title:     "Nothing changed",
		Content:   "The request was valid but nothing needed to change.",
		Ephemeral: true,
	}
	if len(l.Data1) > 0 {
		p.Fields = append(p.Fields, Field{Name: Humanize(l.Context1), Value: joinValues(l.Data1)})
	}
	if len(l.Data2) > 0 {
		p.Fields = append(p.Fields, Field{Name: Humanize(l.Context2), Value: joinValues(l.Data2)})
	}
	return p
}

func describeFail(outcome.Outcome) Presentation {
	return Presentation{
		Title:     "Command failed",
		Content:   "The command could not be completed.",
		Ephemeral: true,
	}
}

func describeFailValidation(o outcome.Outcome) Presentation {
	fail, ok := o.(outcome.FailValidation)
	if !ok {
		return Unknown()
	}
	field := Humanize(fail.Field)

	var content string
	switch fail.Constraint {
	case constraint.InsufficientPermissions:
		content = "You do not have permission to do that."
	case constraint.DoesNotExist:
		content = fmt.Sprintf("The %s **%v** does not exist.", field, fail.Value)
	case constraint.AlreadyExists:
		content = fmt.Sprintf("The %s **%v** already exists.", field, fail.Value)
	case constraint.InvalidFormat:
		content = fmt.Sprintf("**%v** is not a valid %s.", fail.Value, field)
	case constraint.OutOfRange:
		content = fmt.Sprintf("**%v** is out of range for %s.", fail.Value, field)
	case constraint.InvalidTarget:
		content = fmt.Sprintf("**%v** cannot be used as %s.", fail.Value, field)
	case constraint.NotAParticipant:
		content = fmt.Sprintf("**%v** is not taking part in this %s.", fail.Value, field)
	case constraint.MissingDefault:
		content = fmt.Sprintf("No %s was given and none could be chosen automatically.", field)
	default:
		content = fmt.Sprintf("The %s failed validation (%s).", field, fail.Constraint)
	}

	return Presentation{Title: "Invalid request", Content: content, Ephemeral: true}
}

func describeFailDNEMono(o outcome.Outcome) Presentation {
	body, ok := o.(outcome.MonoBody)
	if !ok {
		return Unknown()
	}
	m := body.Mono()
	return Presentation{
		Title:     "Not found",
		Content:   fmt.Sprintf("The %s **%v** does not exist.", Humanize(m.Context), m.Data),
		Ephemeral: true,
	}
}

func describeFailDNEDuo(o outcome.Outcome) Presentation {
	body, ok := o.(outcome.DuoBody)
	if !ok {
		return Unknown()
	}
	d := body.Duo()
	return Presentation{
		Title: "Not found",
		Content: fmt.Sprintf("The %s **%v** does not exist in %s **%v**.",
			Humanize(d.Context1), d.Data1, Humanize(d.Context2), d.Data2),
		Ephemeral: true,
	}
}

func joinValues(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, ", ")
}
