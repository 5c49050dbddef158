package ladder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lllypuk/ladder/internal/application/command"
	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/application/validation"
	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/ladder"
	"github.com/lllypuk/ladder/internal/domain/outcome"
	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/domain/uuid"
)

// JoinTournamentParams are the solver parameters of join-tournament.
type JoinTournamentParams struct {
	TournamentID   uuid.UUID
	TournamentName string
	PlayerID       string
}

type joinTournament struct {
	tournaments TournamentRepository
	logger      *slog.Logger
}

// NewJoinTournament builds the join-tournament command.
func NewJoinTournament(deps Deps) (*command.Command[JoinTournamentParams], error) {
	h := &joinTournament{tournaments: deps.Tournaments, logger: loggerOf(deps)}

	return command.New(command.Definition[JoinTournamentParams]{
		Name:      JoinTournament,
		Validator: h.validate,
		Solver:    h.solve,
		Descriptions: describe.Table{
			StatusTournamentFull: func(o outcome.Outcome) describe.Presentation {
				full, _ := o.(TournamentFull)
				return describe.Presentation{
					Title:     "Tournament full",
					Content:   fmt.Sprintf("**%s** already has %d players.", full.Tournament, full.MaxPlayers),
					Ephemeral: true,
				}
			},
		},
		Replyer: deps.Replyer,
	}, command.WithLogger(loggerOf(deps)))
}

func (h *joinTournament) validate(ctx context.Context, req request.View) (JoinTournamentParams, error) {
	lookup := newTournamentLookup(h.tournaments, req.WorkspaceID)

	if err := validation.Validate(ctx, req, nil, []validation.OptionGroup{lookup.group(req)}); err != nil {
		return JoinTournamentParams{}, err
	}

	return JoinTournamentParams{
		TournamentID:   lookup.found.ID(),
		TournamentName: lookup.found.Name(),
		PlayerID:       req.Sender.ID,
	}, nil
}

// joinAttempts bounds the load-join-save cycle when concurrent joins race.
const joinAttempts = 5

func (h *joinTournament) solve(ctx context.Context, p JoinTournamentParams) outcome.Outcome {
	for range joinAttempts {
		o, err := h.tryJoin(ctx, p)
		if errors.Is(err, errs.ErrConcurrentModification) {
			h.logger.DebugContext(ctx, "join raced with another save, retrying",
				slog.String("tournament_id", p.TournamentID.String()),
				slog.String("player_id", p.PlayerID),
			)
			continue
		}
		if err != nil {
			return unexpected(ctx, h.logger, JoinTournament, err)
		}
		return o
	}

	h.logger.WarnContext(ctx, "join gave up after concurrent modifications",
		slog.String("tournament_id", p.TournamentID.String()),
		slog.Int("attempts", joinAttempts),
	)
	return outcome.Failed{}
}

func (h *joinTournament) tryJoin(ctx context.Context, p JoinTournamentParams) (outcome.Outcome, error) {
	t, err := h.tournaments.FindByID(ctx, p.TournamentID)
	if errors.Is(err, errs.ErrNotFound) {
		return outcome.FailDNEMono[string]{Data: p.TournamentName, Context: "tournamentName"}, nil
	}
	if err != nil {
		return nil, err
	}

	switch err = t.Join(p.PlayerID); {
	case errors.Is(err, ladder.ErrAlreadyJoined):
		return outcome.SuccessNoChange[string, string]{
			Data1:    []string{t.Name()},
			Context1: "alreadyJoined",
		}, nil
	case errors.Is(err, ladder.ErrTournamentFull):
		return TournamentFull{Tournament: t.Name(), MaxPlayers: t.MaxPlayers()}, nil
	case err != nil:
		return outcome.Failed{}, nil
	}

	if err = h.tournaments.Save(ctx, t); err != nil {
		return nil, err
	}

	return outcome.SuccessMono[string]{Data: t.Name(), Context: "tournamentName"}, nil
}
