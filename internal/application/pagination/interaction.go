package pagination

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lllypuk/ladder/internal/application/command"
)

// Resolver solves a named command again from stored parameters at a page.
type Resolver interface {
	Resolve(ctx context.Context, name string, params json.RawMessage, page int) (command.Resolution, error)
}

// Interaction is a loaded cache entry bound to the resolver that can solve it
// again.
type Interaction struct {
	entry    Entry
	cache    *Cache
	resolver Resolver
}

// ResponseID returns the id of the delivered response.
func (i *Interaction) ResponseID() string { return i.entry.ResponseID }

// SenderID returns the id of the member who ran the command.
func (i *Interaction) SenderID() string { return i.entry.SenderID }

// Command returns the command name.
func (i *Interaction) Command() string { return i.entry.Command }

// TotalPages returns the page count recorded when the interaction was cached.
func (i *Interaction) TotalPages() int { return i.entry.TotalPages }

// Page returns the currently displayed page.
func (i *Interaction) Page() int { return i.entry.Page }

// SolverParams decodes the stored solver parameters into dst.
func (i *Interaction) SolverParams(dst any) error {
	if err := json.Unmarshal(i.entry.Params, dst); err != nil {
		return fmt.Errorf("decode parameters of %s: %w", i.entry.ResponseID, err)
	}
	return nil
}

// SetPage records page as the displayed page.
func (i *Interaction) SetPage(ctx context.Context, page int) error {
	if err := i.cache.SetPage(ctx, i.entry.ResponseID, page); err != nil {
		return err
	}
	i.entry.Page = page
	return nil
}

// SolveAgainAndDescribe re-runs the command at page with otherwise identical
// parameters. The stored page is not changed.
func (i *Interaction) SolveAgainAndDescribe(ctx context.Context, page int) (command.Resolution, error) {
	return i.resolver.Resolve(ctx, i.entry.Command, i.entry.Params, page)
}

// ParamsOf decodes the stored solver parameters as S.
func ParamsOf[S any](i *Interaction) (S, error) {
	var params S
	err := i.SolverParams(&params)
	return params, err
}
