// Package memory provides in-process repositories used in mock mode and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/ladder"
	"github.com/lllypuk/ladder/internal/domain/uuid"
)

// TournamentRepository stores tournaments in a map.
type TournamentRepository struct {
	mu          sync.RWMutex
	tournaments map[uuid.UUID]*ladder.Tournament
	order       []uuid.UUID
}

// NewTournamentRepository creates an empty repository.
func NewTournamentRepository() *TournamentRepository {
	return &TournamentRepository{tournaments: make(map[uuid.UUID]*ladder.Tournament)}
}

// FindByID returns a copy of the tournament.
func (r *TournamentRepository) FindByID(_ context.Context, id uuid.UUID) (*ladder.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tournaments[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneTournament(t), nil
}

// FindByName looks a tournament up by normalised name.
func (r *TournamentRepository) FindByName(_ context.Context, workspaceID, name string) (*ladder.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := ladder.NameKey(name)
	for _, id := range r.order {
		t := r.tournaments[id]
		if t.WorkspaceID() == workspaceID && t.NameKey() == key {
			return cloneTournament(t), nil
		}
	}
	return nil, errs.ErrNotFound
}

// ListByWorkspace returns the workspace's tournaments in creation order.
func (r *TournamentRepository) ListByWorkspace(_ context.Context, workspaceID string) ([]*ladder.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ladder.Tournament, 0)
	for _, id := range r.order {
		if t := r.tournaments[id]; t.WorkspaceID() == workspaceID {
			result = append(result, cloneTournament(t))
		}
	}
	return result, nil
}

// Save inserts a new tournament or replaces the stored one if it is still at
// the version t was loaded at. A stale t yields errs.ErrConcurrentModification.
func (r *TournamentRepository) Save(_ context.Context, t *ladder.Tournament) error {
	if t == nil {
		return errs.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		other := r.tournaments[id]
		if id != t.ID() && other.WorkspaceID() == t.WorkspaceID() && other.NameKey() == t.NameKey() {
			return errs.ErrAlreadyExists
		}
	}

	stored, exists := r.tournaments[t.ID()]
	switch {
	case !exists && t.Version() != 0:
		return errs.ErrNotFound
	case exists && stored.Version() != t.Version():
		return errs.ErrConcurrentModification
	case !exists:
		r.order = append(r.order, t.ID())
	}

	t.MarkSaved()
	r.tournaments[t.ID()] = cloneTournament(t)
	return nil
}

// ChallengeRepository stores challenges per tournament.
type ChallengeRepository struct {
	mu         sync.RWMutex
	challenges map[uuid.UUID][]*ladder.Challenge
}

// NewChallengeRepository creates an empty repository.
func NewChallengeRepository() *ChallengeRepository {
	return &ChallengeRepository{challenges: make(map[uuid.UUID][]*ladder.Challenge)}
}

// ExistsByName reports whether a challenge with name exists in the tournament.
func (r *ChallengeRepository) ExistsByName(_ context.Context, tournamentID uuid.UUID, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.existsLocked(tournamentID, ladder.NameKey(name)), nil
}

// CountByTournament returns the number of challenges.
func (r *ChallengeRepository) CountByTournament(_ context.Context, tournamentID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.challenges[tournamentID]), nil
}

// ListByTournament returns challenges[offset:offset+limit] in insertion order.
func (r *ChallengeRepository) ListByTournament(
	_ context.Context,
	tournamentID uuid.UUID,
	offset, limit int,
) ([]*ladder.Challenge, error) {
	if offset < 0 || limit <= 0 {
		return nil, errs.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.challenges[tournamentID]
	if offset >= len(all) {
		return []*ladder.Challenge{}, nil
	}
	end := min(offset+limit, len(all))
	return slices.Clone(all[offset:end]), nil
}

// Save inserts c.
func (r *ChallengeRepository) Save(_ context.Context, c *ladder.Challenge) error {
	if c == nil {
		return errs.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.existsLocked(c.TournamentID(), c.NameKey()) {
		return errs.ErrAlreadyExists
	}
	r.challenges[c.TournamentID()] = append(r.challenges[c.TournamentID()], c)
	return nil
}

func (r *ChallengeRepository) existsLocked(tournamentID uuid.UUID, key string) bool {
	return slices.ContainsFunc(r.challenges[tournamentID], func(c *ladder.Challenge) bool {
		return c.NameKey() == key
	})
}

func cloneTournament(t *ladder.Tournament) *ladder.Tournament {
	return ladder.ReconstructTournament(
		t.ID(), t.WorkspaceID(), t.Name(), t.OwnerID(), t.MaxPlayers(), t.Players(), t.CreatedAt(), t.Version(),
	)
}
