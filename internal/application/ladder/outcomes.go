package ladder

import (
	"time"

	"github.com/lllypuk/ladder/internal/domain/outcome"
)

// Command-specific statuses.
const (
	StatusTournamentFull     outcome.Status = "TOURNAMENT_FULL"
	StatusChallengeDuplicate outcome.Status = "CHALLENGE_DUPLICATE"
	StatusChallengePage      outcome.Status = "CHALLENGE_PAGE"
)

// TournamentFull is returned by join-tournament when the player cap is reached.
type TournamentFull struct {
	outcome.Specific

	Tournament string
	MaxPlayers int
}

// Status implements outcome.Outcome.
func (TournamentFull) Status() outcome.Status { return StatusTournamentFull }

// ChallengeDuplicate is returned by submit-challenge when the name is taken.
type ChallengeDuplicate struct {
	outcome.Specific

	Challenge  string
	Tournament string
}

// Status implements outcome.Outcome.
func (ChallengeDuplicate) Status() outcome.Status { return StatusChallengeDuplicate }

// ChallengeSummary is one line of a challenge page.
type ChallengeSummary struct {
	Name         string
	ChallengerID string
	DefenderID   string
	CreatedAt    time.Time
}

// ChallengePage is one page of list-challenges.
type ChallengePage struct {
	outcome.Specific
	outcome.Pagination

	Tournament string
	Total      int
	Offset     int
	Challenges []ChallengeSummary
}

// Status implements outcome.Outcome.
func (ChallengePage) Status() outcome.Status { return StatusChallengePage }
