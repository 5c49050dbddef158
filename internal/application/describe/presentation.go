// Package describe renders outcomes into presentations using a command-specific
// table, then the process-wide generic table, then an unconditional fallback.
package describe

import (
	"strings"
	"unicode"

	"github.com/lllypuk/ladder/internal/domain/outcome"
)

// Presentation is what a replyer delivers. Ephemeral presentations are only
// shown to the requester.
type Presentation struct {
	Title     string        `json:"title,omitempty"`
	Content   string        `json:"content"`
	Fields    []Field       `json:"fields,omitempty"`
	Ephemeral bool          `json:"ephemeral"`
	Controls  *PageControls `json:"controls,omitempty"`
}

// Field is a labelled line of a richer layout.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PageControls describes the navigation buttons attached to a paginated reply.
type PageControls struct {
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	First      bool `json:"first"`
	Previous   bool `json:"previous"`
	Next       bool `json:"next"`
	Last       bool `json:"last"`
}

// Controls builds the navigation controls for p. Buttons that would not move
// the page are disabled.
func Controls(p outcome.Pagination) *PageControls {
	return &PageControls{
		Page:       p.Page,
		TotalPages: p.TotalPages,
		First:      p.HasPrevious(),
		Previous:   p.HasPrevious(),
		Next:       p.HasNext(),
		Last:       p.HasNext(),
	}
}

// IsEmpty reports whether the presentation has nothing to show.
func (p Presentation) IsEmpty() bool {
	return p.Title == "" && p.Content == "" && len(p.Fields) == 0
}

// Humanize turns a context tag such as "challengeName" or "max-players" into
// "challenge name" / "max players".
func Humanize(context string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range context {
		switch {
		case r == '-' || r == '_':
			b.WriteRune(' ')
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteRune(' ')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return b.String()
}
