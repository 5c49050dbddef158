package describe

import (
	"maps"

	"github.com/lllypuk/ladder/internal/domain/outcome"
)

// Describer renders outcomes of one command.
type Describer struct {
	specific Table
}

// New builds a Describer over a command-specific table. The table is copied;
// later changes to the argument have no effect.
func New(specific Table) *Describer {
	return &Describer{specific: maps.Clone(specific)}
}

// Describe renders o. Lookup order: the command's own table, the generic
// default for o's status, then Unknown. Paginated outcomes get page controls.
func (d *Describer) Describe(o outcome.Outcome) Presentation {
	p := d.lookup(o)
	if info, ok := outcome.PageInfoOf(o); ok {
		p.Controls = Controls(info)
	}
	return p
}

func (d *Describer) lookup(o outcome.Outcome) Presentation {
	if o == nil {
		return Unknown()
	}
	if desc, ok := d.specific[o.Status()]; ok && desc != nil {
		return desc(o)
	}
	if desc, ok := Default(o.Status()); ok {
		return desc(o)
	}
	return Unknown()
}
