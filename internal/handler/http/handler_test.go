package httphandler_test

import (
	"bytes"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/application/command"
	appladder "github.com/lllypuk/ladder/internal/application/ladder"
	"github.com/lllypuk/ladder/internal/application/pagination"
	httphandler "github.com/lllypuk/ladder/internal/handler/http"
	"github.com/lllypuk/ladder/internal/infrastructure/cache"
	"github.com/lllypuk/ladder/internal/infrastructure/httpserver"
	"github.com/lllypuk/ladder/internal/infrastructure/metrics"
	"github.com/lllypuk/ladder/internal/infrastructure/replyboard"
	"github.com/lllypuk/ladder/internal/infrastructure/repository/memory"
	"github.com/lllypuk/ladder/internal/middleware"
)

const testWorkspace = "ws-1"

// apiEnv is the command API wired to in-memory stores.
type apiEnv struct {
	e       *echo.Echo
	board   *replyboard.Board
	metrics *metrics.LadderMetrics
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	board := replyboard.New()
	c := pagination.NewCache(cache.NewMemoryStore())

	handlers, err := appladder.Handlers(appladder.Deps{
		Tournaments: memory.NewTournamentRepository(),
		Challenges:  memory.NewChallengeRepository(),
		Replyer:     board.Send,
		Cache:       c,
		PageSize:    2,
	})
	require.NoError(t, err)
	registry, err := command.NewRegistry(handlers...)
	require.NoError(t, err)

	m := metrics.NewLadderMetrics(prometheus.NewRegistry())
	return newAPIEnvWith(t, registry, pagination.NewService(c, registry, board), board, m)
}

func newAPIEnvWith(
	t *testing.T,
	runner httphandler.CommandRunner,
	navigator httphandler.Navigator,
	board *replyboard.Board,
	m *metrics.LadderMetrics,
) *apiEnv {
	t.Helper()

	authConfig := middleware.DefaultAuthConfig()
	authConfig.TokenValidator = middleware.NewStaticTokenValidator(appladder.PermManageTournaments).
		WithWorkspaces(testWorkspace)

	routerConfig := httpserver.DefaultRouterConfig()
	routerConfig.AuthMiddleware = middleware.Auth(authConfig)

	e := echo.New()
	router := httpserver.NewRouter(e, routerConfig)
	router.RegisterAll(
		httphandler.NewCommandHandler(runner, httphandler.WithCommandMetrics(m)),
		httphandler.NewInteractionHandler(navigator, httphandler.WithInteractionMetrics(m)),
		httphandler.NewReplyHandler(board),
	)

	return &apiEnv{e: e, board: board, metrics: m}
}

// envelope mirrors httpserver.Response with undecoded data.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   *httpserver.Error `json:"error"`
}

func (env *apiEnv) do(t *testing.T, method, path, member string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if member != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer dev-token-"+member)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func (env *apiEnv) run(t *testing.T, member, name string, options ...map[string]any) (int, envelope) {
	t.Helper()
	if options == nil {
		options = []map[string]any{}
	}
	return env.do(t, stdhttp.MethodPost, "/api/v1/commands/"+name, member, map[string]any{
		"workspace_id": testWorkspace,
		"options":      options,
	})
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func str(name, value string) map[string]any {
	return map[string]any{"name": name, "kind": "STRING", "value": value}
}

func user(name, id string) map[string]any {
	return map[string]any{"name": name, "kind": "USER", "value": map[string]any{"id": id}}
}
