package ladder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lllypuk/ladder/internal/application/command"
	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/application/pagination"
	"github.com/lllypuk/ladder/internal/application/validation"
	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/outcome"
	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/domain/uuid"
)

// ListChallengesParams are the solver parameters of list-challenges. They are
// cached as JSON and solved again on navigation.
type ListChallengesParams struct {
	TournamentID   uuid.UUID `json:"tournament_id"`
	TournamentName string    `json:"tournament_name"`
	Page           int       `json:"page"`
	PageSize       int       `json:"page_size"`
}

type listChallenges struct {
	tournaments TournamentRepository
	challenges  ChallengeRepository
	pageSize    int
	logger      *slog.Logger
}

// NewListChallenges builds the list-challenges command.
func NewListChallenges(deps Deps) (*command.Command[ListChallengesParams], error) {
	h := &listChallenges{
		tournaments: deps.Tournaments,
		challenges:  deps.Challenges,
		pageSize:    deps.PageSize,
		logger:      loggerOf(deps),
	}
	if h.pageSize <= 0 {
		h.pageSize = DefaultPageSize
	}

	def := command.Definition[ListChallengesParams]{
		Name:      ListChallenges,
		Validator: h.validate,
		Solver:    h.solve,
		Descriptions: describe.Table{
			StatusChallengePage:       describeChallengePage,
			outcome.StatusFailDNEMono: describeNoChallenges,
		},
		Replyer: deps.Replyer,
		WithPage: func(p ListChallengesParams, page int) ListChallengesParams {
			p.Page = page
			return p
		},
	}
	if deps.Cache != nil {
		def.Cacher = pagination.Cacher[ListChallengesParams](deps.Cache, ListChallenges)
	}

	return command.New(def, command.WithLogger(loggerOf(deps)))
}

func (h *listChallenges) validate(ctx context.Context, req request.View) (ListChallengesParams, error) {
	lookup := newTournamentLookup(h.tournaments, req.WorkspaceID)
	pageOpt := req.Option(OptPage)

	err := validation.Validate(ctx, req, nil, []validation.OptionGroup{
		lookup.group(req),
		validation.OnOption(pageOpt, validation.IntBetween(1, maxPageOption)),
	})
	if err != nil {
		return ListChallengesParams{}, err
	}

	params := ListChallengesParams{
		TournamentID:   lookup.found.ID(),
		TournamentName: lookup.found.Name(),
		PageSize:       h.pageSize,
	}
	if pageOpt != nil {
		n, _ := pageOpt.Int()
		params.Page = n - 1
	}
	return params, nil
}

func (h *listChallenges) solve(ctx context.Context, p ListChallengesParams) outcome.Outcome {
	notFound := outcome.FailDNEMono[string]{Data: p.TournamentName, Context: "tournamentName"}

	t, err := h.tournaments.FindByID(ctx, p.TournamentID)
	if errors.Is(err, errs.ErrNotFound) {
		return notFound
	}
	if err != nil {
		return unexpected(ctx, h.logger, ListChallenges, err)
	}

	size := p.PageSize
	if size <= 0 {
		size = h.pageSize
	}

	total, err := h.challenges.CountByTournament(ctx, t.ID())
	if err != nil {
		return unexpected(ctx, h.logger, ListChallenges, err)
	}
	if total == 0 {
		return outcome.FailDNEMono[string]{Data: t.Name(), Context: "challengesIn"}
	}

	totalPages := outcome.TotalPages(total, size)
	page := min(max(p.Page, 0), totalPages-1)
	offset := page * size

	items, err := h.challenges.ListByTournament(ctx, t.ID(), offset, size)
	if err != nil {
		return unexpected(ctx, h.logger, ListChallenges, err)
	}

	summaries := make([]ChallengeSummary, 0, len(items))
	for _, c := range items {
		summaries = append(summaries, ChallengeSummary{
			Name:         c.Name(),
			ChallengerID: c.ChallengerID(),
			DefenderID:   c.DefenderID(),
			CreatedAt:    c.CreatedAt(),
		})
	}

	return ChallengePage{
		Pagination: outcome.Pagination{Page: page, TotalPages: totalPages},
		Tournament: t.Name(),
		Total:      total,
		Offset:     offset,
		Challenges: summaries,
	}
}

func describeChallengePage(o outcome.Outcome) describe.Presentation {
	page, ok := o.(ChallengePage)
	if !ok {
		return describe.Unknown()
	}

	var b strings.Builder
	for i, c := range page.Challenges {
		fmt.Fprintf(&b, "%d. **%s**: <@%s> vs <@%s>\n", page.Offset+i+1, c.Name, c.ChallengerID, c.DefenderID)
	}

	return describe.Presentation{
		Title:   fmt.Sprintf("Challenges in %s (page %d/%d)", page.Tournament, page.Page+1, page.TotalPages),
		Content: strings.TrimSuffix(b.String(), "\n"),
		Fields:  []describe.Field{{Name: "total", Value: fmt.Sprint(page.Total)}},
	}
}

func describeNoChallenges(o outcome.Outcome) describe.Presentation {
	body, ok := o.(outcome.MonoBody)
	if !ok {
		return describe.Unknown()
	}
	m := body.Mono()
	if m.Context != "challengesIn" {
		d, _ := describe.Default(outcome.StatusFailDNEMono)
		return d(o)
	}
	return describe.Presentation{
		Title:     "No challenges",
		Content:   fmt.Sprintf("**%v** has no challenges yet.", m.Data),
		Ephemeral: true,
	}
}
