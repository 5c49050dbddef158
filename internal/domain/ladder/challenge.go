package ladder

import (
	"strings"
	"time"

	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/uuid"
)

// Challenge is a named match request between two players of a tournament.
type Challenge struct {
	id           uuid.UUID
	tournamentID uuid.UUID
	name         string
	challengerID string
	defenderID   string
	createdAt    time.Time
}

// NewChallenge creates a challenge from challengerID to defenderID. Both must
// have joined t.
func NewChallenge(t *Tournament, name, challengerID, defenderID string) (*Challenge, error) {
	if t == nil || challengerID == "" || defenderID == "" {
		return nil, errs.ErrInvalidInput
	}
	if !ValidName(name) {
		return nil, errs.ErrInvalidInput
	}
	if challengerID == defenderID {
		return nil, ErrSelfChallenge
	}
	if !t.HasPlayer(challengerID) || !t.HasPlayer(defenderID) {
		return nil, ErrNotParticipant
	}

	return &Challenge{
		id:           uuid.NewUUID(),
		tournamentID: t.ID(),
		name:         strings.TrimSpace(name),
		challengerID: challengerID,
		defenderID:   defenderID,
		createdAt:    time.Now().UTC(),
	}, nil
}

// ReconstructChallenge rebuilds a challenge from storage without checks.
func ReconstructChallenge(
	id, tournamentID uuid.UUID,
	name, challengerID, defenderID string,
	createdAt time.Time,
) *Challenge {
	return &Challenge{
		id:           id,
		tournamentID: tournamentID,
		name:         name,
		challengerID: challengerID,
		defenderID:   defenderID,
		createdAt:    createdAt,
	}
}

func (c *Challenge) ID() uuid.UUID           { return c.id }
func (c *Challenge) TournamentID() uuid.UUID { return c.tournamentID }
func (c *Challenge) Name() string            { return c.name }
func (c *Challenge) NameKey() string         { return NameKey(c.name) }
func (c *Challenge) ChallengerID() string    { return c.challengerID }
func (c *Challenge) DefenderID() string      { return c.defenderID }
func (c *Challenge) CreatedAt() time.Time    { return c.createdAt }
