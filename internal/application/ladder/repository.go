package ladder

import (
	"context"

	"github.com/lllypuk/ladder/internal/domain/ladder"
	"github.com/lllypuk/ladder/internal/domain/uuid"
)

// TournamentRepository persists tournaments.
// Interface is declared on the consumer side.
type TournamentRepository interface {
	// FindByID returns errs.ErrNotFound when there is no such tournament.
	FindByID(ctx context.Context, id uuid.UUID) (*ladder.Tournament, error)

	// FindByName looks a tournament up by its normalised name within a workspace.
	FindByName(ctx context.Context, workspaceID, name string) (*ladder.Tournament, error)

	// ListByWorkspace returns the workspace's tournaments, oldest first.
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*ladder.Tournament, error)

	// Save inserts or replaces t. A name clash with another tournament of the
	// same workspace returns errs.ErrAlreadyExists. Replacing a tournament
	// that was saved since t was loaded returns errs.ErrConcurrentModification.
	Save(ctx context.Context, t *ladder.Tournament) error
}

// ChallengeRepository persists challenges.
type ChallengeRepository interface {
	// ExistsByName reports whether the tournament already has a challenge with name.
	ExistsByName(ctx context.Context, tournamentID uuid.UUID, name string) (bool, error)

	// CountByTournament returns how many challenges the tournament has.
	CountByTournament(ctx context.Context, tournamentID uuid.UUID) (int, error)

	// ListByTournament returns one window of challenges, oldest first.
	ListByTournament(ctx context.Context, tournamentID uuid.UUID, offset, limit int) ([]*ladder.Challenge, error)

	// Save inserts c. A duplicate name within the tournament returns
	// errs.ErrAlreadyExists.
	Save(ctx context.Context, c *ladder.Challenge) error
}
