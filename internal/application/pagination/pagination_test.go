package pagination_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/application/command"
	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/application/pagination"
	"github.com/lllypuk/ladder/internal/domain/outcome"
	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/infrastructure/cache"
)

const listCommand = "list-things"

type listParams struct {
	Filter string `json:"filter"`
	Page   int    `json:"page"`
}

type thingPage struct {
	outcome.Specific
	outcome.Pagination

	Filter string
}

func (thingPage) Status() outcome.Status { return "THING_PAGE" }

type recordingEditor struct {
	mu    sync.Mutex
	edits map[string][]describe.Presentation
	err   error
}

func newRecordingEditor() *recordingEditor {
	return &recordingEditor{edits: make(map[string][]describe.Presentation)}
}

func (e *recordingEditor) Edit(_ context.Context, id string, p describe.Presentation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.edits[id] = append(e.edits[id], p)
	return nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type fixture struct {
	clock    *clock
	cache    *pagination.Cache
	service  *pagination.Service
	registry *command.Registry
	editor   *recordingEditor
	solved   []listParams
	// total is the page count the solver reports.
	total int
}

func newFixture(t *testing.T, totalPages int, opts ...pagination.Option) *fixture {
	t.Helper()

	f := &fixture{
		clock:  &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		editor: newRecordingEditor(),
		total:  totalPages,
	}
	store := cache.NewMemoryStore(cache.WithClock(f.clock.Now))
	f.cache = pagination.NewCache(store, pagination.WithClock(f.clock.Now), pagination.WithTTL(14*time.Minute))

	replies := 0
	cmd, err := command.New(command.Definition[listParams]{
		Name: listCommand,
		Validator: func(_ context.Context, req request.View) (listParams, error) {
			return listParams{Filter: req.WorkspaceID}, nil
		},
		Solver: func(_ context.Context, p listParams) outcome.Outcome {
			f.solved = append(f.solved, p)
			return thingPage{Pagination: outcome.Pagination{Page: p.Page, TotalPages: f.total}, Filter: p.Filter}
		},
		Descriptions: describe.Table{
			"THING_PAGE": func(o outcome.Outcome) describe.Presentation {
				page := o.(thingPage)
				return describe.Presentation{Content: fmt.Sprintf("%s page %d", page.Filter, page.Page+1)}
			},
		},
		Replyer: func(context.Context, request.View, describe.Presentation) (string, error) {
			replies++
			return fmt.Sprintf("resp-%d", replies), nil
		},
		Cacher:   pagination.Cacher[listParams](f.cache, listCommand),
		WithPage: func(p listParams, page int) listParams { p.Page = page; return p },
	})
	require.NoError(t, err)

	f.registry, err = command.NewRegistry(cmd)
	require.NoError(t, err)

	f.service = pagination.NewService(f.cache, f.registry, f.editor, opts...)
	return f
}

func (f *fixture) run(t *testing.T, sender string) command.Result {
	t.Helper()
	res, err := f.registry.Execute(context.Background(), request.View{
		Command:     listCommand,
		Sender:      request.Member{ID: sender},
		WorkspaceID: "ws-1",
	})
	require.NoError(t, err)
	require.True(t, res.Cached)
	return res
}

func (f *fixture) navigate(t *testing.T, id, actor string, dir pagination.Direction) pagination.NavigationResult {
	t.Helper()
	res, err := f.service.Navigate(context.Background(), pagination.Navigation{
		ResponseID: id,
		ActorID:    actor,
		Direction:  dir,
	})
	require.NoError(t, err)
	return res
}

func TestTargetPage(t *testing.T) {
	tests := []struct {
		dir     pagination.Direction
		current int
		total   int
		want    int
	}{
		{pagination.First, 3, 5, 0},
		{pagination.Last, 0, 5, 4},
		{pagination.Next, 2, 5, 3},
		{pagination.Next, 4, 5, 4},
		{pagination.Previous, 2, 5, 1},
		{pagination.Previous, 0, 5, 0},
		{pagination.Next, 0, 1, 0},
		{pagination.Last, 0, 1, 0},
		{pagination.Next, 9, 5, 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s from %d of %d", tt.dir, tt.current, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, pagination.TargetPage(tt.dir, tt.current, tt.total))
		})
	}
}

func TestTargetPage_StaysInBounds(t *testing.T) {
	dirs := []pagination.Direction{pagination.First, pagination.Previous, pagination.Next, pagination.Last}
	for total := 1; total <= 6; total++ {
		for current := range total {
			for _, dir := range dirs {
				got := pagination.TargetPage(dir, current, total)
				assert.GreaterOrEqual(t, got, 0)
				assert.Less(t, got, total)
			}
		}
	}
}

func TestParseDirection(t *testing.T) {
	d, err := pagination.ParseDirection("next")
	require.NoError(t, err)
	assert.Equal(t, pagination.Next, d)

	_, err = pagination.ParseDirection("sideways")
	require.ErrorIs(t, err, pagination.ErrInvalidDirection)
}

// TestNavigate_LastThenPrevious walks a five page result
func TestNavigate_LastThenPrevious(t *testing.T) {
	// Arrange
	f := newFixture(t, 5)
	res := f.run(t, "user-1")

	// Act
	last := f.navigate(t, res.ResponseID, "user-1", pagination.Last)
	prev := f.navigate(t, res.ResponseID, "user-1", pagination.Previous)

	// Assert
	assert.Equal(t, 4, last.Page)
	assert.True(t, last.Edited)
	assert.Equal(t, 3, prev.Page)
	assert.Equal(t, "ws-1 page 4", prev.Presentation.Content)

	inter, err := f.service.Interaction(context.Background(), res.ResponseID)
	require.NoError(t, err)
	assert.Equal(t, 3, inter.Page())
	assert.Equal(t, 5, inter.TotalPages())

	edits := f.editor.edits[res.ResponseID]
	require.Len(t, edits, 2)
	assert.Equal(t, "ws-1 page 5", edits[0].Content)
	require.NotNil(t, edits[0].Controls)
	assert.False(t, edits[0].Controls.Next)
}

// TestNavigate_ControlsFollowCachedTotal tests a list that grew after it was cached
func TestNavigate_ControlsFollowCachedTotal(t *testing.T) {
	f := newFixture(t, 5)
	res := f.run(t, "user-1")
	f.total = 7

	last := f.navigate(t, res.ResponseID, "user-1", pagination.Last)

	assert.Equal(t, 4, last.Page)
	require.NotNil(t, last.Presentation.Controls)
	assert.Equal(t, 4, last.Presentation.Controls.Page)
	assert.Equal(t, 5, last.Presentation.Controls.TotalPages)
	assert.False(t, last.Presentation.Controls.Next)
	assert.True(t, last.Presentation.Controls.Previous)

	next := f.navigate(t, res.ResponseID, "user-1", pagination.Next)
	assert.Equal(t, 4, next.Page)
}

// TestNavigate_ResolvesWithOnlyPageReplaced tests that stored parameters are reused
func TestNavigate_ResolvesWithOnlyPageReplaced(t *testing.T) {
	f := newFixture(t, 3)
	res := f.run(t, "user-1")

	f.navigate(t, res.ResponseID, "user-1", pagination.Next)

	require.Len(t, f.solved, 2)
	assert.Equal(t, listParams{Filter: "ws-1", Page: 0}, f.solved[0])
	assert.Equal(t, listParams{Filter: "ws-1", Page: 1}, f.solved[1])
}

// TestNavigate_Expired tests navigation after the TTL
func TestNavigate_Expired(t *testing.T) {
	f := newFixture(t, 3)
	res := f.run(t, "user-1")

	f.clock.now = f.clock.now.Add(14 * time.Minute)

	nav := f.navigate(t, res.ResponseID, "user-1", pagination.Next)

	assert.False(t, nav.Edited)
	assert.Equal(t, describe.Expired(), nav.Presentation)
	assert.Equal(t, pagination.RejectedExpired, nav.Rejection)
	assert.Empty(t, f.editor.edits)
	assert.Len(t, f.solved, 1)

	_, err := f.service.Interaction(context.Background(), res.ResponseID)
	require.ErrorIs(t, err, pagination.ErrExpired)
}

// TestNavigate_UnknownResponse tests navigation on a response that was never cached
func TestNavigate_UnknownResponse(t *testing.T) {
	f := newFixture(t, 3)

	nav := f.navigate(t, "never-sent", "user-1", pagination.First)

	assert.Equal(t, describe.Expired(), nav.Presentation)
}

// TestNavigate_OwnerOnly tests the default ownership policy
func TestNavigate_OwnerOnly(t *testing.T) {
	f := newFixture(t, 3)
	res := f.run(t, "user-1")

	nav := f.navigate(t, res.ResponseID, "user-2", pagination.Next)

	assert.False(t, nav.Edited)
	assert.Equal(t, describe.NotOwner(), nav.Presentation)
	assert.Equal(t, pagination.RejectedNotOwner, nav.Rejection)
	assert.Empty(t, f.editor.edits)

	inter, err := f.service.Interaction(context.Background(), res.ResponseID)
	require.NoError(t, err)
	assert.Equal(t, 0, inter.Page())
}

// TestNavigate_AnyActor tests navigation with the ownership policy disabled
func TestNavigate_AnyActor(t *testing.T) {
	f := newFixture(t, 3, pagination.WithOwnerOnly(false))
	res := f.run(t, "user-1")

	nav := f.navigate(t, res.ResponseID, "user-2", pagination.Next)

	assert.True(t, nav.Edited)
	assert.Equal(t, 1, nav.Page)
}

// TestNavigate_EditFailureKeepsPage tests that the stored page only moves after a
// successful edit
func TestNavigate_EditFailureKeepsPage(t *testing.T) {
	f := newFixture(t, 3)
	res := f.run(t, "user-1")
	f.editor.err = errors.New("edit window closed")

	_, err := f.service.Navigate(context.Background(), pagination.Navigation{
		ResponseID: res.ResponseID,
		ActorID:    "user-1",
		Direction:  pagination.Next,
	})
	require.ErrorIs(t, err, pagination.ErrEditFailed)

	inter, err := f.service.Interaction(context.Background(), res.ResponseID)
	require.NoError(t, err)
	assert.Equal(t, 0, inter.Page())
}

func TestInteraction_SolverParamsAndSolveAgain(t *testing.T) {
	f := newFixture(t, 4)
	res := f.run(t, "user-1")
	ctx := context.Background()

	inter, err := f.service.Interaction(ctx, res.ResponseID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", inter.SenderID())
	assert.Equal(t, listCommand, inter.Command())

	params, err := pagination.ParamsOf[listParams](inter)
	require.NoError(t, err)
	assert.Equal(t, listParams{Filter: "ws-1"}, params)

	resolved, err := inter.SolveAgainAndDescribe(ctx, 2)
	require.NoError(t, err)
	info, ok := outcome.PageInfoOf(resolved.Outcome)
	require.True(t, ok)
	assert.Equal(t, 2, info.Page)
	assert.Equal(t, 0, inter.Page())

	require.NoError(t, inter.SetPage(ctx, 2))
	assert.Equal(t, 2, inter.Page())
}

func TestCache_RejectsInvalidEntries(t *testing.T) {
	c := pagination.NewCache(cache.NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name  string
		entry pagination.Entry
	}{
		{"missing response id", pagination.Entry{Command: "x", TotalPages: 1}},
		{"missing command", pagination.Entry{ResponseID: "r", TotalPages: 1}},
		{"zero pages", pagination.Entry{ResponseID: "r", Command: "x"}},
		{"page past end", pagination.Entry{ResponseID: "r", Command: "x", Page: 2, TotalPages: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, c.Put(ctx, tt.entry), pagination.ErrInvalidEntry)
		})
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	c := pagination.NewCache(cache.NewMemoryStore())
	assert.Equal(t, pagination.DefaultTTL, c.TTL())
	assert.Equal(t, 14*time.Minute, pagination.DefaultTTL)
}
