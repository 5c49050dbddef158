package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lllypuk/ladder/internal/application/command"
	appladder "github.com/lllypuk/ladder/internal/application/ladder"
	"github.com/lllypuk/ladder/internal/application/pagination"
	"github.com/lllypuk/ladder/internal/config"
	httphandler "github.com/lllypuk/ladder/internal/handler/http"
	wshandler "github.com/lllypuk/ladder/internal/handler/websocket"
	"github.com/lllypuk/ladder/internal/infrastructure/auth"
	"github.com/lllypuk/ladder/internal/infrastructure/cache"
	"github.com/lllypuk/ladder/internal/infrastructure/eventbus"
	"github.com/lllypuk/ladder/internal/infrastructure/httpserver"
	"github.com/lllypuk/ladder/internal/infrastructure/metrics"
	mongodbinfra "github.com/lllypuk/ladder/internal/infrastructure/mongodb"
	"github.com/lllypuk/ladder/internal/infrastructure/replyboard"
	"github.com/lllypuk/ladder/internal/infrastructure/repository/memory"
	"github.com/lllypuk/ladder/internal/infrastructure/repository/mongodb"
	"github.com/lllypuk/ladder/internal/infrastructure/websocket"
	"github.com/lllypuk/ladder/internal/middleware"
)

// Container initialization timeouts.
const (
	containerInitTimeout   = 30 * time.Second
	redisPingTimeout       = 5 * time.Second
	mongoDisconnectTimeout = 10 * time.Second
)

// Container holds all application dependencies and manages their lifecycle.
// It implements httpserver.HealthChecker for the health endpoints.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	MongoDB *mongo.Client
	Redis   *redis.Client
	Hub     *websocket.Hub
	Board   *replyboard.Board

	// Relay is nil unless transport.relay is "redis".
	Relay *eventbus.RedisRelay

	// memoryStore is swept by Start when the cache lives in process.
	memoryStore *cache.MemoryStore

	// Ladder
	Tournaments appladder.TournamentRepository
	Challenges  appladder.ChallengeRepository
	Cache       *pagination.Cache
	Commands    *command.Registry
	Navigator   *pagination.Service

	// Metrics is nil when metrics are disabled.
	Metrics    *metrics.LadderMetrics
	Prometheus *prometheus.Registry

	// Auth
	TokenValidator middleware.TokenValidator
	RateLimitStore middleware.RateLimitStore
	jwtValidator   *auth.JWTValidator

	// Handlers
	CommandHandler     *httphandler.CommandHandler
	InteractionHandler *httphandler.InteractionHandler
	ReplyHandler       *httphandler.ReplyHandler
	WSHandler          *wshandler.Handler
}

var _ httpserver.HealthChecker = (*Container)(nil)

// ContainerOption configures the Container.
type ContainerOption func(*Container)

// WithLogger sets a custom logger for the container.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.Logger = logger
	}
}

// NewContainer wires the application. The wiring mode (real/mock) is
// determined by config.App.Mode.
func NewContainer(cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	c.Logger.Info("wiring application",
		slog.String("mode", string(c.mode())),
		slog.String("pagination_store", cfg.Pagination.Store),
		slog.String("rate_limit_store", cfg.Server.RateLimit.Store),
	)

	ctx, cancel := context.WithTimeout(context.Background(), containerInitTimeout)
	defer cancel()

	if err := c.setupInfrastructure(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup infrastructure: %w", err)
	}

	c.setupMetrics()
	c.setupTransport()
	c.setupRepositories()

	if err := c.setupCommands(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup commands: %w", err)
	}
	if err := c.setupAuth(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup auth: %w", err)
	}

	c.setupHandlers()

	if err := c.validateWiring(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("wiring validation failed: %w", err)
	}

	return c, nil
}

func (c *Container) mode() config.AppMode {
	if c.Config.App.IsMockMode() {
		return config.AppModeMock
	}
	return config.AppModeReal
}

func (c *Container) setupInfrastructure(ctx context.Context) error {
	if c.Config.App.IsRealMode() {
		if err := c.setupMongoDB(ctx); err != nil {
			return fmt.Errorf("mongodb: %w", err)
		}
	}
	if c.Config.UsesRedis() {
		if err := c.setupRedis(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (c *Container) setupMongoDB(ctx context.Context) error {
	clientOpts := options.Client().
		ApplyURI(c.Config.MongoDB.URI).
		SetMaxPoolSize(c.Config.MongoDB.MaxPoolSize)

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.MongoDB = client

	pingCtx, cancel := context.WithTimeout(ctx, c.Config.MongoDB.Timeout)
	defer cancel()
	if pingErr := client.Ping(pingCtx, nil); pingErr != nil {
		return fmt.Errorf("failed to ping: %w", pingErr)
	}

	c.Logger.InfoContext(ctx, "connected to MongoDB", slog.String("database", c.Config.MongoDB.Database))

	indexCtx, indexCancel := context.WithTimeout(ctx, c.Config.MongoDB.Timeout)
	defer indexCancel()
	if indexErr := mongodbinfra.EnsureIndexes(indexCtx, client.Database(c.Config.MongoDB.Database)); indexErr != nil {
		return fmt.Errorf("failed to create indexes: %w", indexErr)
	}

	return nil
}

func (c *Container) setupRedis(ctx context.Context) error {
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		PoolSize: c.Config.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := c.Redis.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to ping: %w", err)
	}

	c.Logger.InfoContext(ctx, "connected to Redis", slog.String("addr", c.Config.Redis.Addr))
	return nil
}

func (c *Container) setupMetrics() {
	if !c.Config.Metrics.Enabled {
		return
	}
	c.Prometheus = prometheus.NewRegistry()
	c.Prometheus.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewLadderMetrics(c.Prometheus)
}

// setupTransport builds the hub and the reply board that publishes to it.
func (c *Container) setupTransport() {
	c.Hub = websocket.NewHub(websocket.WithHubLogger(c.Logger))

	var publisher replyboard.Publisher = websocket.NewBroadcaster(c.Hub, websocket.WithBroadcasterLogger(c.Logger))
	if c.Config.Transport.Relay == config.StoreRedis && c.Redis != nil {
		// Foreign events go straight to the local hub; local ones go to both.
		c.Relay = eventbus.NewRedisRelay(c.Redis, publisher,
			eventbus.WithChannel(c.Config.Transport.RelayChannel),
			eventbus.WithLogger(c.Logger),
		)
		publisher = replyboard.Publishers{publisher, c.Relay}
	}
	if c.Metrics != nil {
		publisher = c.Metrics.InstrumentPublisher(publisher)
	}

	c.Board = replyboard.New(
		replyboard.WithEditWindow(c.Config.Transport.EditWindow),
		replyboard.WithRetention(c.Config.Transport.Retention),
		replyboard.WithPublisher(publisher),
		replyboard.WithLogger(c.Logger),
	)

	c.Metrics.RegisterGauge("ladder_websocket_clients", "Connected WebSocket clients.",
		func() float64 { return float64(c.Hub.ClientCount()) })
	c.Metrics.RegisterGauge("ladder_replies_stored", "Replies held by the reply board.",
		func() float64 { return float64(c.Board.Len()) })
}

func (c *Container) setupRepositories() {
	if c.MongoDB == nil {
		c.Tournaments = memory.NewTournamentRepository()
		c.Challenges = memory.NewChallengeRepository()
		return
	}

	db := c.MongoDB.Database(c.Config.MongoDB.Database)
	c.Tournaments = mongodb.NewMongoTournamentRepository(
		db.Collection(mongodbinfra.CollectionTournaments),
		mongodb.WithTournamentRepoLogger(c.Logger),
	)
	c.Challenges = mongodb.NewMongoChallengeRepository(
		db.Collection(mongodbinfra.CollectionChallenges),
		mongodb.WithChallengeRepoLogger(c.Logger),
	)
}

func (c *Container) setupCommands() error {
	var store pagination.Store
	if c.Config.Pagination.Store == config.StoreRedis {
		store = cache.NewRedisStore(cache.RedisStoreConfig{
			Client:    c.Redis,
			KeyPrefix: c.Config.Pagination.RedisKeyPrefix,
		})
	} else {
		c.memoryStore = cache.NewMemoryStore(cache.WithLogger(c.Logger))
		store = c.memoryStore
	}

	c.Cache = pagination.NewCache(store,
		pagination.WithTTL(c.Config.Pagination.TTL),
		pagination.WithCacheLogger(c.Logger),
	)

	handlers, err := appladder.Handlers(appladder.Deps{
		Tournaments: c.Tournaments,
		Challenges:  c.Challenges,
		Replyer:     c.Board.Send,
		Cache:       c.Cache,
		PageSize:    c.Config.Ladder.PageSize,
		Logger:      c.Logger,
	})
	if err != nil {
		return err
	}

	c.Commands, err = command.NewRegistry(handlers...)
	if err != nil {
		return err
	}

	c.Navigator = pagination.NewService(c.Cache, c.Commands, c.Board,
		pagination.WithOwnerOnly(c.Config.Pagination.OwnerOnly),
		pagination.WithLogger(c.Logger),
	)
	return nil
}

func (c *Container) setupAuth() error {
	if c.Config.App.IsMockMode() {
		c.Logger.Warn("mock mode: accepting dev-token-<member> bearer tokens")
		c.TokenValidator = middleware.NewStaticTokenValidator(appladder.PermManageTournaments).
			WithWorkspaces(middleware.AnyWorkspace)
	} else {
		validator, err := auth.NewJWTValidator(auth.JWTValidatorConfig{
			Secret:          c.Config.Auth.JWTSecret,
			JWKSURL:         c.Config.Auth.JWKSURL,
			Issuer:          c.Config.Auth.Issuer,
			Audience:        c.Config.Auth.Audience,
			Leeway:          c.Config.Auth.Leeway,
			RefreshInterval: c.Config.Auth.RefreshInterval,
			Logger:          c.Logger,
		})
		if err != nil {
			return err
		}
		c.jwtValidator = validator
		c.TokenValidator = middleware.NewJWTValidatorAdapter(validator)
	}

	switch c.Config.Server.RateLimit.Store {
	case config.StoreRedis:
		c.RateLimitStore = middleware.NewRedisRateLimitStore(c.Redis, c.Config.Server.RateLimit.KeyPrefix)
	case config.StoreMemory:
		c.RateLimitStore = middleware.NewMemoryRateLimitStore()
	}
	return nil
}

func (c *Container) setupHandlers() {
	c.CommandHandler = httphandler.NewCommandHandler(c.Commands,
		httphandler.WithCommandMetrics(c.Metrics),
		httphandler.WithCommandLogger(c.Logger),
	)
	c.InteractionHandler = httphandler.NewInteractionHandler(c.Navigator,
		httphandler.WithInteractionMetrics(c.Metrics),
		httphandler.WithInteractionLogger(c.Logger),
	)
	c.ReplyHandler = httphandler.NewReplyHandler(c.Board)

	clientConfig := websocket.DefaultClientConfig()
	clientConfig.ReadBufferSize = c.Config.WebSocket.ReadBufferSize
	clientConfig.WriteBufferSize = c.Config.WebSocket.WriteBufferSize
	clientConfig.PingInterval = c.Config.WebSocket.PingInterval
	clientConfig.PongWait = c.Config.WebSocket.PongTimeout

	c.WSHandler = wshandler.NewHandler(c.Hub,
		wshandler.WithTokenValidator(c.TokenValidator),
		wshandler.WithHandlerConfig(wshandler.HandlerConfig{
			ReadBufferSize:  c.Config.WebSocket.ReadBufferSize,
			WriteBufferSize: c.Config.WebSocket.WriteBufferSize,
			AllowedOrigins:  c.Config.WebSocket.AllowedOrigins,
			Logger:          c.Logger,
			ClientConfig:    clientConfig,
		}),
	)
}

func (c *Container) validateWiring() error {
	var errs []error
	if c.Board == nil || c.Hub == nil {
		errs = append(errs, errors.New("transport not initialized"))
	}
	if c.Commands == nil || c.Navigator == nil {
		errs = append(errs, errors.New("command pipeline not initialized"))
	}
	if c.TokenValidator == nil {
		errs = append(errs, errors.New("token validator not initialized"))
	}
	if c.Config.App.IsRealMode() && c.MongoDB == nil {
		errs = append(errs, errors.New("mongodb client required in real mode"))
	}
	return errors.Join(errs...)
}

// Start runs the background loops until ctx is cancelled.
func (c *Container) Start(ctx context.Context) {
	go c.Hub.Run(ctx)

	sweep := c.Config.Transport.SweepInterval
	if sweep <= 0 {
		sweep = config.DefaultSweepInterval
	}
	go c.Board.Run(ctx, sweep)

	if c.memoryStore != nil {
		go c.memoryStore.Run(ctx, c.Config.Pagination.SweepInterval)
	}

	if c.Relay != nil {
		go func() {
			if err := c.Relay.Start(ctx); err != nil {
				c.Logger.Error("reply relay stopped", slog.String("error", err.Error()))
			}
		}()
	}
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	c.Logger.Info("closing container resources")

	var errs []error

	if c.jwtValidator != nil {
		if err := c.jwtValidator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("jwt validator close: %w", err))
		}
	}
	if c.Hub != nil {
		c.Hub.Stop()
	}
	if c.Relay != nil {
		if err := c.Relay.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("reply relay shutdown: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.MongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
		defer cancel()
		if err := c.MongoDB.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect: %w", err))
		}
	}

	return errors.Join(errs...)
}

// IsReady implements httpserver.HealthChecker.
func (c *Container) IsReady(ctx context.Context) bool {
	if c.Config == nil {
		return false
	}
	if c.Config.App.IsRealMode() {
		if c.MongoDB == nil {
			return false
		}
		if err := c.MongoDB.Ping(ctx, nil); err != nil {
			c.Logger.WarnContext(ctx, "mongodb health check failed", slog.String("error", err.Error()))
			return false
		}
	}
	if c.Config.UsesRedis() {
		if c.Redis == nil {
			return false
		}
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			c.Logger.WarnContext(ctx, "redis health check failed", slog.String("error", err.Error()))
			return false
		}
	}
	if c.Hub == nil || !c.Hub.IsRunning() {
		c.Logger.WarnContext(ctx, "websocket hub is not running")
		return false
	}
	return true
}

// GetHealthStatus implements httpserver.HealthChecker.
func (c *Container) GetHealthStatus(ctx context.Context) []httpserver.ComponentStatus {
	var statuses []httpserver.ComponentStatus

	if c.MongoDB != nil {
		s := httpserver.ComponentStatus{Name: "mongodb", Status: httpserver.StatusHealthy}
		if err := c.MongoDB.Ping(ctx, nil); err != nil {
			s.Status = httpserver.StatusUnhealthy
			s.Message = err.Error()
		}
		statuses = append(statuses, s)
	}

	if c.Redis != nil {
		s := httpserver.ComponentStatus{Name: "redis", Status: httpserver.StatusHealthy}
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			s.Status = httpserver.StatusUnhealthy
			s.Message = err.Error()
		}
		statuses = append(statuses, s)
	}

	hubStatus := httpserver.ComponentStatus{Name: "websocket_hub", Status: httpserver.StatusHealthy}
	switch {
	case c.Hub == nil:
		hubStatus.Status = httpserver.StatusUnhealthy
		hubStatus.Message = "hub not initialized"
	case !c.Hub.IsRunning():
		hubStatus.Status = httpserver.StatusUnhealthy
		hubStatus.Message = "hub not running"
	}
	statuses = append(statuses, hubStatus)

	boardStatus := httpserver.ComponentStatus{Name: "reply_board", Status: httpserver.StatusHealthy}
	if c.Board == nil {
		boardStatus.Status = httpserver.StatusUnhealthy
		boardStatus.Message = "board not initialized"
	} else {
		boardStatus.Message = strconv.Itoa(c.Board.Len()) + " replies"
	}
	statuses = append(statuses, boardStatus)

	if c.Relay != nil {
		relayStatus := httpserver.ComponentStatus{Name: "reply_relay", Status: httpserver.StatusHealthy}
		if !c.Relay.IsRunning() {
			relayStatus.Status = httpserver.StatusDegraded
			relayStatus.Message = "relay not subscribed"
		}
		statuses = append(statuses, relayStatus)
	}

	return statuses
}
