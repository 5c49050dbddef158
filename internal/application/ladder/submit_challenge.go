package ladder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lllypuk/ladder/internal/application/command"
	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/application/validation"
	"github.com/lllypuk/ladder/internal/domain/constraint"
	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/ladder"
	"github.com/lllypuk/ladder/internal/domain/outcome"
	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/domain/uuid"
)

// SubmitChallengeParams are the solver parameters of submit-challenge.
type SubmitChallengeParams struct {
	TournamentID   uuid.UUID
	TournamentName string
	Name           string
	ChallengerID   string
	DefenderID     string
}

type submitChallenge struct {
	tournaments TournamentRepository
	challenges  ChallengeRepository
	logger      *slog.Logger
}

// NewSubmitChallenge builds the submit-challenge command.
func NewSubmitChallenge(deps Deps) (*command.Command[SubmitChallengeParams], error) {
	h := &submitChallenge{tournaments: deps.Tournaments, challenges: deps.Challenges, logger: loggerOf(deps)}

	return command.New(command.Definition[SubmitChallengeParams]{
		Name:      SubmitChallenge,
		Validator: h.validate,
		Solver:    h.solve,
		Descriptions: describe.Table{
			StatusChallengeDuplicate: func(o outcome.Outcome) describe.Presentation {
				dup, _ := o.(ChallengeDuplicate)
				return describe.Presentation{
					Title:     "Challenge exists",
					Content:   fmt.Sprintf("**%s** already has a challenge called **%s**.", dup.Tournament, dup.Challenge),
					Ephemeral: true,
				}
			},
		},
		Replyer: deps.Replyer,
	}, command.WithLogger(loggerOf(deps)))
}

func (h *submitChallenge) validate(ctx context.Context, req request.View) (SubmitChallengeParams, error) {
	lookup := newTournamentLookup(h.tournaments, req.WorkspaceID)
	name := optionString(req.Option(OptName))
	opponent := req.Option(OptOpponent)

	err := validation.Validate(ctx, req, nil, []validation.OptionGroup{
		lookup.group(req),
		validation.Always(request.FieldMember, req.Sender.ID, lookup.participant()),
		validation.Always(OptName, name, validation.LengthBetween(ladder.MinNameLength, ladder.MaxNameLength)),
		validation.Always(OptOpponent, optionID(opponent), validation.NonEmpty(constraint.InvalidTarget)),
		validation.OnOption(opponent, validation.NotEqualTo(req.Sender.ID)),
	})
	if err != nil {
		return SubmitChallengeParams{}, err
	}

	return SubmitChallengeParams{
		TournamentID:   lookup.found.ID(),
		TournamentName: lookup.found.Name(),
		Name:           name,
		ChallengerID:   req.Sender.ID,
		DefenderID:     optionID(opponent),
	}, nil
}

func (h *submitChallenge) solve(ctx context.Context, p SubmitChallengeParams) outcome.Outcome {
	t, err := h.tournaments.FindByID(ctx, p.TournamentID)
	if errors.Is(err, errs.ErrNotFound) {
		return outcome.FailDNEMono[string]{Data: p.TournamentName, Context: "tournamentName"}
	}
	if err != nil {
		return unexpected(ctx, h.logger, SubmitChallenge, err)
	}

	exists, err := h.challenges.ExistsByName(ctx, t.ID(), p.Name)
	if err != nil {
		return unexpected(ctx, h.logger, SubmitChallenge, err)
	}
	if exists {
		return ChallengeDuplicate{Challenge: p.Name, Tournament: t.Name()}
	}

	c, err := ladder.NewChallenge(t, p.Name, p.ChallengerID, p.DefenderID)
	switch {
	case errors.Is(err, ladder.ErrNotParticipant):
		missing := p.DefenderID
		if !t.HasPlayer(p.ChallengerID) {
			missing = p.ChallengerID
		}
		return outcome.FailDNEDuo[string]{Data1: missing, Context1: "player", Data2: t.Name(), Context2: "tournamentName"}
	case errors.Is(err, ladder.ErrSelfChallenge):
		return outcome.FailValidation{
			Constraint: constraint.InvalidTarget,
			Field:      OptOpponent,
			Value:      p.DefenderID,
			Context:    OptOpponent,
		}
	case err != nil:
		return outcome.Failed{}
	}

	if err = h.challenges.Save(ctx, c); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return ChallengeDuplicate{Challenge: p.Name, Tournament: t.Name()}
		}
		return unexpected(ctx, h.logger, SubmitChallenge, err)
	}

	return outcome.SuccessDuo[string]{
		Data1:    c.Name(),
		Context1: "challengeName",
		Data2:    t.Name(),
		Context2: "tournamentName",
	}
}
