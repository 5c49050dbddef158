package ladder_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/application/command"
	"github.com/lllypuk/ladder/internal/application/describe"
	appladder "github.com/lllypuk/ladder/internal/application/ladder"
	"github.com/lllypuk/ladder/internal/application/pagination"
	"github.com/lllypuk/ladder/internal/domain/ladder"
	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/infrastructure/cache"
	"github.com/lllypuk/ladder/internal/infrastructure/repository/memory"
)

const workspaceID = "ws-1"

// board is a minimal reply transport for tests.
type board struct {
	mu      sync.Mutex
	replies map[string]describe.Presentation
	next    int
}

func newBoard() *board {
	return &board{replies: make(map[string]describe.Presentation)}
}

func (b *board) Send(_ context.Context, _ request.View, p describe.Presentation) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := fmt.Sprintf("reply-%d", b.next)
	b.replies[id] = p
	return id, nil
}

func (b *board) Edit(_ context.Context, id string, p describe.Presentation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[id] = p
	return nil
}

func (b *board) get(id string) describe.Presentation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.replies[id]
}

type testEnv struct {
	tournaments *memory.TournamentRepository
	challenges  *memory.ChallengeRepository
	board       *board
	registry    *command.Registry
	navigation  *pagination.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		tournaments: memory.NewTournamentRepository(),
		challenges:  memory.NewChallengeRepository(),
		board:       newBoard(),
	}
	c := pagination.NewCache(cache.NewMemoryStore())

	handlers, err := appladder.Handlers(appladder.Deps{
		Tournaments: env.tournaments,
		Challenges:  env.challenges,
		Replyer:     env.board.Send,
		Cache:       c,
		PageSize:    5,
	})
	require.NoError(t, err)

	env.registry, err = command.NewRegistry(handlers...)
	require.NoError(t, err)

	env.navigation = pagination.NewService(c, env.registry, env.board)
	return env
}

func (e *testEnv) run(t *testing.T, name string, sender request.Member, opts ...request.Option) command.Result {
	t.Helper()
	res, err := e.registry.Execute(context.Background(), request.View{
		Command:     name,
		Sender:      sender,
		WorkspaceID: workspaceID,
		Options:     opts,
	})
	require.NoError(t, err)
	return res
}

// seedTournament stores a tournament with the given players.
func (e *testEnv) seedTournament(t *testing.T, name string, maxPlayers int, players ...string) *ladder.Tournament {
	t.Helper()
	tour, err := ladder.NewTournament(workspaceID, name, "owner", maxPlayers)
	require.NoError(t, err)
	for _, p := range players {
		require.NoError(t, tour.Join(p))
	}
	require.NoError(t, e.tournaments.Save(context.Background(), tour))
	return tour
}

func (e *testEnv) seedChallenges(t *testing.T, tour *ladder.Tournament, n int) {
	t.Helper()
	for i := range n {
		c, err := ladder.NewChallenge(tour, fmt.Sprintf("Match %02d", i+1), tour.Players()[0], tour.Players()[1])
		require.NoError(t, err)
		require.NoError(t, e.challenges.Save(context.Background(), c))
	}
}

func member(id string, permissions ...string) request.Member {
	return request.Member{ID: id, Username: id, Permissions: permissions}
}

func str(name, value string) request.Option {
	return request.Option{Name: name, Kind: request.KindString, Value: value}
}

func integer(name string, value float64) request.Option {
	return request.Option{Name: name, Kind: request.KindInteger, Value: value}
}

func user(name, id string) request.Option {
	return request.Option{Name: name, Kind: request.KindUser, Value: map[string]any{"id": id, "name": id}}
}
