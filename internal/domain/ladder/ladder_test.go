package ladder_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/ladder"
)

func TestNewTournament(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		maxPlayers int
		wantErr    error
		wantMax    int
	}{
		{"valid", "Spring Cup", 8, nil, 8},
		{"default cap", "Spring Cup", 0, nil, ladder.DefaultMaxPlayers},
		{"name too short", "ab", 8, errs.ErrInvalidInput, 0},
		{"name too long", strings.Repeat("x", 65), 8, errs.ErrInvalidInput, 0},
		{"cap too small", "Spring Cup", 1, errs.ErrInvalidInput, 0},
		{"cap too large", "Spring Cup", 129, errs.ErrInvalidInput, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour, err := ladder.NewTournament("ws-1", tt.title, "owner", tt.maxPlayers)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMax, tour.MaxPlayers())
			assert.Equal(t, "spring cup", tour.NameKey())
			assert.False(t, tour.ID().IsZero())
		})
	}
}

func TestTournament_Join(t *testing.T) {
	tour, err := ladder.NewTournament("ws-1", "Duel", "owner", 2)
	require.NoError(t, err)

	require.NoError(t, tour.Join("a"))
	require.ErrorIs(t, tour.Join("a"), ladder.ErrAlreadyJoined)
	require.NoError(t, tour.Join("b"))
	require.ErrorIs(t, tour.Join("c"), ladder.ErrTournamentFull)

	assert.Equal(t, []string{"a", "b"}, tour.Players())
	assert.True(t, tour.IsFull())

	players := tour.Players()
	players[0] = "mutated"
	assert.True(t, tour.HasPlayer("a"))
}

func TestTournament_Version(t *testing.T) {
	tour, err := ladder.NewTournament("ws-1", "Duel", "owner", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, tour.Version())

	tour.MarkSaved()
	tour.MarkSaved()
	assert.Equal(t, 2, tour.Version())

	loaded := ladder.ReconstructTournament(tour.ID(), "ws-1", "Duel", "owner", 2, nil, tour.CreatedAt(), 7)
	assert.Equal(t, 7, loaded.Version())
}

func TestNewChallenge(t *testing.T) {
	tour, err := ladder.NewTournament("ws-1", "Duel", "owner", 4)
	require.NoError(t, err)
	require.NoError(t, tour.Join("a"))
	require.NoError(t, tour.Join("b"))

	c, err := ladder.NewChallenge(tour, " Round One ", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "Round One", c.Name())
	assert.Equal(t, tour.ID(), c.TournamentID())

	_, err = ladder.NewChallenge(tour, "Round Two", "a", "a")
	require.ErrorIs(t, err, ladder.ErrSelfChallenge)

	_, err = ladder.NewChallenge(tour, "Round Two", "a", "z")
	require.ErrorIs(t, err, ladder.ErrNotParticipant)

	_, err = ladder.NewChallenge(tour, "x", "a", "b")
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}
