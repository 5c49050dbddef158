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
)

// CreateTournamentParams are the solver parameters of create-tournament.
type CreateTournamentParams struct {
	WorkspaceID string
	OwnerID     string
	Name        string
	MaxPlayers  int
}

type createTournament struct {
	tournaments TournamentRepository
	logger      *slog.Logger
}

// NewCreateTournament builds the create-tournament command.
func NewCreateTournament(deps Deps) (*command.Command[CreateTournamentParams], error) {
	h := &createTournament{tournaments: deps.Tournaments, logger: loggerOf(deps)}

	return command.New(command.Definition[CreateTournamentParams]{
		Name:      CreateTournament,
		Validator: h.validate,
		Solver:    h.solve,
		Descriptions: describe.Table{
			outcome.StatusSuccessMono: func(o outcome.Outcome) describe.Presentation {
				created, _ := o.(outcome.SuccessMono[string])
				return describe.Presentation{
					Title:   "Tournament created",
					Content: fmt.Sprintf("Tournament **%s** is open. Use `/%s` to take part.", created.Data, JoinTournament),
				}
			},
		},
		Replyer: deps.Replyer,
	}, command.WithLogger(loggerOf(deps)))
}

func (h *createTournament) validate(ctx context.Context, req request.View) (CreateTournamentParams, error) {
	name := optionString(req.Option(OptName))

	err := validation.Validate(ctx, req,
		[]validation.MetadataGroup{
			validation.OnField(request.FieldMember, validation.HasPermission(PermManageTournaments)),
		},
		[]validation.OptionGroup{
			validation.Always(OptName, name,
				validation.LengthBetween(ladder.MinNameLength, ladder.MaxNameLength),
				h.nameAvailable(req.WorkspaceID),
			),
			validation.OnOption(req.Option(OptMaxPlayers), validation.IntBetween(ladder.MinPlayers, ladder.MaxPlayers)),
		},
	)
	if err != nil {
		return CreateTournamentParams{}, err
	}

	params := CreateTournamentParams{
		WorkspaceID: req.WorkspaceID,
		OwnerID:     req.Sender.ID,
		Name:        name,
		MaxPlayers:  ladder.DefaultMaxPlayers,
	}
	if opt := req.Option(OptMaxPlayers); opt != nil {
		params.MaxPlayers, _ = opt.Int()
	}
	return params, nil
}

func (h *createTournament) nameAvailable(workspaceID string) validation.Constraint {
	return validation.Typed(constraint.AlreadyExists, func(ctx context.Context, name string) (bool, error) {
		_, err := h.tournaments.FindByName(ctx, workspaceID, name)
		if errors.Is(err, errs.ErrNotFound) {
			return true, nil
		}
		return false, err
	})
}

func (h *createTournament) solve(ctx context.Context, p CreateTournamentParams) outcome.Outcome {
	t, err := ladder.NewTournament(p.WorkspaceID, p.Name, p.OwnerID, p.MaxPlayers)
	if err != nil {
		return outcome.Failed{}
	}

	if err = h.tournaments.Save(ctx, t); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return outcome.FailValidation{
				Constraint: constraint.AlreadyExists,
				Field:      OptName,
				Value:      p.Name,
				Context:    OptName,
			}
		}
		return unexpected(ctx, h.logger, CreateTournament, err)
	}

	return outcome.SuccessMono[string]{Data: t.Name(), Context: "tournamentName"}
}
