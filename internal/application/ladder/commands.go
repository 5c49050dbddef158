// Package ladder implements the tournament ladder commands on top of the
// command pipeline.
package ladder

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lllypuk/ladder/internal/application/appcore"
	"github.com/lllypuk/ladder/internal/application/command"
	"github.com/lllypuk/ladder/internal/application/pagination"
	"github.com/lllypuk/ladder/internal/domain/outcome"
)

// Command names.
const (
	CreateTournament = "create-tournament"
	JoinTournament   = "join-tournament"
	SubmitChallenge  = "submit-challenge"
	ListChallenges   = "list-challenges"
)

// Option names.
const (
	OptName       = "name"
	OptMaxPlayers = "max-players"
	OptTournament = "tournament"
	OptOpponent   = "opponent"
	OptPage       = "page"
)

// PermManageTournaments allows creating tournaments.
const PermManageTournaments = "manage_tournaments"

// DefaultPageSize is the number of challenges on one page.
const DefaultPageSize = 5

const maxPageOption = 10_000

// Deps are the collaborators the ladder commands need.
type Deps struct {
	Tournaments TournamentRepository
	Challenges  ChallengeRepository
	Replyer     command.Replyer
	// Cache makes list-challenges navigable. Nil disables caching.
	Cache    *pagination.Cache
	PageSize int
	Logger   *slog.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Tournaments == nil:
		return errors.New("tournament repository is required")
	case d.Challenges == nil:
		return errors.New("challenge repository is required")
	case d.Replyer == nil:
		return errors.New("replyer is required")
	}
	return nil
}

// Handlers builds every ladder command.
func Handlers(deps Deps) ([]command.Handler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.PageSize <= 0 {
		deps.PageSize = DefaultPageSize
	}

	create, err := NewCreateTournament(deps)
	if err != nil {
		return nil, err
	}
	join, err := NewJoinTournament(deps)
	if err != nil {
		return nil, err
	}
	submit, err := NewSubmitChallenge(deps)
	if err != nil {
		return nil, err
	}
	list, err := NewListChallenges(deps)
	if err != nil {
		return nil, err
	}

	return []command.Handler{create, join, submit, list}, nil
}

// unexpected logs an infrastructure failure met by a solver and turns it
// into the generic unknown failure.
func unexpected(ctx context.Context, logger *slog.Logger, op string, err error) outcome.Outcome {
	logger.LogAttrs(ctx, slog.LevelError, "ladder operation failed",
		append(appcore.LogAttrs(ctx), slog.String("operation", op), slog.String("error", err.Error()))...)
	return outcome.FailUnknown{}
}

func loggerOf(deps Deps) *slog.Logger {
	if deps.Logger == nil {
		return slog.Default()
	}
	return deps.Logger
}
