// Package ladder holds the tournament ladder domain: tournaments that members
// join and challenges between their players.
package ladder

import (
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/uuid"
)

// Domain errors.
var (
	ErrTournamentFull = errors.New("tournament is full")
	ErrAlreadyJoined  = errors.New("player already joined the tournament")
	ErrSelfChallenge  = errors.New("a player cannot challenge themselves")
	ErrNotParticipant = errors.New("player is not a participant")
)

// Tournament limits.
const (
	MinNameLength     = 3
	MaxNameLength     = 64
	MinPlayers        = 2
	MaxPlayers        = 128
	DefaultMaxPlayers = 16
)

// NameKey normalises a name for uniqueness checks and lookups.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidName reports whether name has an acceptable length.
func ValidName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= MinNameLength && n <= MaxNameLength
}

// Tournament is a ladder that members of one workspace join.
type Tournament struct {
	id          uuid.UUID
	workspaceID string
	name        string
	ownerID     string
	maxPlayers  int
	players     []string
	createdAt   time.Time

	// version counts successful saves; 0 means never stored.
	version int
}

// NewTournament creates a tournament owned by ownerID.
func NewTournament(workspaceID, name, ownerID string, maxPlayers int) (*Tournament, error) {
	if workspaceID == "" || ownerID == "" {
		return nil, errs.ErrInvalidInput
	}
	if !ValidName(name) {
		return nil, errs.ErrInvalidInput
	}
	if maxPlayers == 0 {
		maxPlayers = DefaultMaxPlayers
	}
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		return nil, errs.ErrInvalidInput
	}

	return &Tournament{
		id:          uuid.NewUUID(),
		workspaceID: workspaceID,
		name:        strings.TrimSpace(name),
		ownerID:     ownerID,
		maxPlayers:  maxPlayers,
		players:     make([]string, 0),
		createdAt:   time.Now().UTC(),
	}, nil
}

// ReconstructTournament rebuilds a tournament from storage without checks.
func ReconstructTournament(
	id uuid.UUID,
	workspaceID, name, ownerID string,
	maxPlayers int,
	players []string,
	createdAt time.Time,
	version int,
) *Tournament {
	if players == nil {
		players = make([]string, 0)
	}
	return &Tournament{
		id:          id,
		workspaceID: workspaceID,
		name:        name,
		ownerID:     ownerID,
		maxPlayers:  maxPlayers,
		players:     players,
		createdAt:   createdAt,
		version:     version,
	}
}

// Join adds playerID to the tournament.
func (t *Tournament) Join(playerID string) error {
	if playerID == "" {
		return errs.ErrInvalidInput
	}
	if t.HasPlayer(playerID) {
		return ErrAlreadyJoined
	}
	if t.IsFull() {
		return ErrTournamentFull
	}
	t.players = append(t.players, playerID)
	return nil
}

// HasPlayer reports whether playerID has joined.
func (t *Tournament) HasPlayer(playerID string) bool {
	return slices.Contains(t.players, playerID)
}

// IsFull reports whether no more players can join.
func (t *Tournament) IsFull() bool {
	return len(t.players) >= t.maxPlayers
}

// ID returns the tournament id.
func (t *Tournament) ID() uuid.UUID { return t.id }

// WorkspaceID returns the owning workspace.
func (t *Tournament) WorkspaceID() string { return t.workspaceID }

// Name returns the display name.
func (t *Tournament) Name() string { return t.name }

// NameKey returns the normalised name.
func (t *Tournament) NameKey() string { return NameKey(t.name) }

// OwnerID returns the member who created the tournament.
func (t *Tournament) OwnerID() string { return t.ownerID }

// MaxPlayers returns the player cap.
func (t *Tournament) MaxPlayers() int { return t.maxPlayers }

// Players returns a copy of the joined player ids in join order.
func (t *Tournament) Players() []string { return slices.Clone(t.players) }

// CreatedAt returns the creation time.
func (t *Tournament) CreatedAt() time.Time { return t.createdAt }

// Version returns the stored version the tournament was loaded at.
func (t *Tournament) Version() int { return t.version }

// MarkSaved records a successful save. Repositories call it after a write
// conditioned on the previous version.
func (t *Tournament) MarkSaved() { t.version++ }
