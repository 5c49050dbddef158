package ladder

import (
	"context"
	"errors"

	"github.com/lllypuk/ladder/internal/application/validation"
	"github.com/lllypuk/ladder/internal/domain/constraint"
	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/ladder"
	"github.com/lllypuk/ladder/internal/domain/request"
)

// tournamentLookup resolves the tournament a request refers to while its
// constraints run. A request names a tournament or, when it does not, the
// workspace must have exactly one.
type tournamentLookup struct {
	repo        TournamentRepository
	workspaceID string
	found       *ladder.Tournament
}

func newTournamentLookup(repo TournamentRepository, workspaceID string) *tournamentLookup {
	return &tournamentLookup{repo: repo, workspaceID: workspaceID}
}

// group returns the ALWAYS group that requires the tournament to resolve.
func (l *tournamentLookup) group(req request.View) validation.OptionGroup {
	return validation.Always(OptTournament, optionString(req.Option(OptTournament)), l.named(), l.defaulted())
}

func (l *tournamentLookup) named() validation.Constraint {
	return validation.Typed(constraint.DoesNotExist, func(ctx context.Context, name string) (bool, error) {
		if name == "" {
			return true, nil
		}
		t, err := l.repo.FindByName(ctx, l.workspaceID, name)
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		l.found = t
		return true, nil
	})
}

func (l *tournamentLookup) defaulted() validation.Constraint {
	return validation.Typed(constraint.MissingDefault, func(ctx context.Context, name string) (bool, error) {
		if name != "" {
			return true, nil
		}
		all, err := l.repo.ListByWorkspace(ctx, l.workspaceID)
		if err != nil {
			return false, err
		}
		if len(all) != 1 {
			return false, nil
		}
		l.found = all[0]
		return true, nil
	})
}

// participant requires the member id to have joined the resolved tournament.
// It must run after group.
func (l *tournamentLookup) participant() validation.Constraint {
	return validation.Typed(constraint.NotAParticipant, func(_ context.Context, memberID string) (bool, error) {
		if l.found == nil {
			return false, errors.New("tournament not resolved")
		}
		return l.found.HasPlayer(memberID), nil
	})
}

func optionString(opt *request.Option) string {
	if opt == nil {
		return ""
	}
	return opt.String()
}

func optionID(opt *request.Option) string {
	if opt == nil {
		return ""
	}
	if id, ok := opt.Comparable().(string); ok {
		return id
	}
	return opt.String()
}
