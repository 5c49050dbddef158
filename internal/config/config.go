// Package config provides configuration loading and validation for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration constants.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "64K"

	DefaultRateLimit       = 120
	DefaultRateLimitWindow = time.Minute

	DefaultMongoDBTimeout     = 10 * time.Second
	DefaultMongoDBMaxPoolSize = 100

	DefaultRedisPoolSize = 10

	DefaultJWTLeeway          = 30 * time.Second
	DefaultJWTRefreshInterval = 1 * time.Hour

	DefaultPaginationTTL   = 14 * time.Minute
	DefaultSweepInterval   = time.Minute
	DefaultEditWindow      = 15 * time.Minute
	DefaultReplyRetention  = time.Hour
	DefaultLadderPageSize  = 5
	DefaultWSBufferSize    = 1024
	DefaultWSPingInterval  = 30 * time.Second
	DefaultWSPongTimeout   = 60 * time.Second
	maxLadderPageSize      = 25
	devJWTSecret           = "dev-secret-change-in-production"
	defaultRedisKeyPrefix  = "ladder:interaction:"
	defaultRateLimitPrefix = "ladder:ratelimit:"
)

// AppMode defines the application wiring mode.
type AppMode string

// Application wiring modes.
const (
	// AppModeReal uses MongoDB for the ladder and JWT authentication.
	AppModeReal AppMode = "real"

	// AppModeMock keeps everything in memory and accepts development tokens.
	// It is refused in production.
	AppModeMock AppMode = "mock"
)

// Store backends for the interaction cache and the rate limiter.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds the complete application configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	Pagination PaginationConfig `yaml:"pagination"`
	Transport  TransportConfig  `yaml:"transport"`
	Ladder     LadderConfig     `yaml:"ladder"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	// Mode controls dependency wiring: "real" (default) or "mock".
	Mode AppMode `yaml:"mode" env:"APP_MODE"`
	Name string  `yaml:"name" env:"APP_NAME"`
}

// IsRealMode returns true if the application should use real implementations.
func (c AppConfig) IsRealMode() bool {
	return c.Mode == "" || c.Mode == AppModeReal
}

// IsMockMode returns true if the application should use in-memory implementations.
func (c AppConfig) IsMockMode() bool {
	return c.Mode == AppModeMock
}

// ServerConfig holds HTTP server configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type ServerConfig struct {
	Host            string          `yaml:"host" env:"SERVER_HOST"`
	Port            int             `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	BodyLimit       string          `yaml:"body_limit" env:"SERVER_BODY_LIMIT"`
	CORSOrigins     []string        `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// Address returns the full server address (host:port).
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig limits command calls per member. An empty store disables it.
//
//nolint:golines // Struct tags require longer lines for readability
type RateLimitConfig struct {
	Limit     int           `yaml:"limit" env:"RATE_LIMIT_LIMIT"`
	Window    time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
	Store     string        `yaml:"store" env:"RATE_LIMIT_STORE"` // memory | redis | ""
	KeyPrefix string        `yaml:"key_prefix" env:"RATE_LIMIT_KEY_PREFIX"`
}

// MongoDBConfig holds MongoDB connection configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type MongoDBConfig struct {
	URI         string        `yaml:"uri" env:"MONGODB_URI"`
	Database    string        `yaml:"database" env:"MONGODB_DATABASE"`
	Timeout     time.Duration `yaml:"timeout" env:"MONGODB_TIMEOUT"`
	MaxPoolSize uint64        `yaml:"max_pool_size" env:"MONGODB_MAX_POOL_SIZE"`
}

// RedisConfig holds Redis connection configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	PoolSize int    `yaml:"pool_size" env:"REDIS_POOL_SIZE"`
}

// AuthConfig holds token validation configuration. JWKSURL wins over
// JWTSecret when both are set.
//
//nolint:golines // Struct tags require longer lines for readability
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	JWKSURL         string        `yaml:"jwks_url" env:"AUTH_JWKS_URL"`
	Issuer          string        `yaml:"issuer" env:"AUTH_ISSUER"`
	Audience        string        `yaml:"audience" env:"AUTH_AUDIENCE"`
	Leeway          time.Duration `yaml:"leeway" env:"AUTH_LEEWAY"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"AUTH_JWKS_REFRESH_INTERVAL"`
}

// LogConfig holds logging configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"LOG_FORMAT"` // json | text
}

// PaginationConfig configures the interaction cache.
//
//nolint:golines // Struct tags require longer lines for readability
type PaginationConfig struct {
	TTL            time.Duration `yaml:"ttl" env:"PAGINATION_TTL"`
	Store          string        `yaml:"store" env:"PAGINATION_STORE"` // memory | redis
	OwnerOnly      bool          `yaml:"owner_only" env:"PAGINATION_OWNER_ONLY"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env:"PAGINATION_SWEEP_INTERVAL"`
	RedisKeyPrefix string        `yaml:"redis_key_prefix" env:"PAGINATION_REDIS_KEY_PREFIX"`
}

// TransportConfig configures the reply board. Relay "redis" shares reply
// events with the other API instances.
//
//nolint:golines // Struct tags require longer lines for readability
type TransportConfig struct {
	EditWindow    time.Duration `yaml:"edit_window" env:"TRANSPORT_EDIT_WINDOW"`
	Retention     time.Duration `yaml:"retention" env:"TRANSPORT_RETENTION"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"TRANSPORT_SWEEP_INTERVAL"`
	Relay         string        `yaml:"relay" env:"TRANSPORT_RELAY"` // redis | ""
	RelayChannel  string        `yaml:"relay_channel" env:"TRANSPORT_RELAY_CHANNEL"`
}

// LadderConfig configures the ladder commands.
type LadderConfig struct {
	PageSize int `yaml:"page_size" env:"LADDER_PAGE_SIZE"`
}

// WebSocketConfig holds WebSocket server configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" env:"WS_READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" env:"WS_WRITE_BUFFER_SIZE"`
	PingInterval    time.Duration `yaml:"ping_interval" env:"WS_PING_INTERVAL"`
	PongTimeout     time.Duration `yaml:"pong_timeout" env:"WS_PONG_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"WS_ALLOWED_ORIGINS"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED"`
}

// Configuration errors.
var (
	ErrConfigNotFound     = errors.New("configuration file not found")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrInvalidDuration    = errors.New("invalid duration format")
	ErrInvalidLogLevel    = errors.New("invalid log level: must be debug, info, warn, or error")
	ErrInvalidLogFormat   = errors.New("invalid log format: must be json or text")
	ErrInvalidAppMode     = errors.New("invalid app mode: must be real or mock")
	ErrMockModeInProd     = errors.New("mock mode is not allowed in production")
	ErrInvalidStore       = errors.New("invalid store: must be memory or redis")
	ErrInvalidRelay       = errors.New("invalid transport.relay: must be redis or empty")
	ErrTTLExceedsEditable = errors.New("pagination.ttl must be shorter than transport.edit_window")
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Mode: AppModeReal,
			Name: "ladder",
		},
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			BodyLimit:       DefaultBodyLimit,
			CORSOrigins:     []string{"*"},
			RateLimit: RateLimitConfig{
				Limit:     DefaultRateLimit,
				Window:    DefaultRateLimitWindow,
				Store:     StoreMemory,
				KeyPrefix: defaultRateLimitPrefix,
			},
		},
		MongoDB: MongoDBConfig{
			URI:         "mongodb://localhost:27017",
			Database:    "ladder",
			Timeout:     DefaultMongoDBTimeout,
			MaxPoolSize: DefaultMongoDBMaxPoolSize,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: DefaultRedisPoolSize,
		},
		Auth: AuthConfig{
			JWTSecret:       devJWTSecret,
			Leeway:          DefaultJWTLeeway,
			RefreshInterval: DefaultJWTRefreshInterval,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Pagination: PaginationConfig{
			TTL:            DefaultPaginationTTL,
			Store:          StoreMemory,
			OwnerOnly:      true,
			SweepInterval:  DefaultSweepInterval,
			RedisKeyPrefix: defaultRedisKeyPrefix,
		},
		Transport: TransportConfig{
			EditWindow:    DefaultEditWindow,
			Retention:     DefaultReplyRetention,
			SweepInterval: DefaultSweepInterval,
			RelayChannel:  "ladder:replies",
		},
		Ladder: LadderConfig{
			PageSize: DefaultLadderPageSize,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  DefaultWSBufferSize,
			WriteBufferSize: DefaultWSBufferSize,
			PingInterval:    DefaultWSPingInterval,
			PongTimeout:     DefaultWSPongTimeout,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Pagination.Store == StoreRedis ||
		c.Server.RateLimit.Store == StoreRedis ||
		c.Transport.Relay == StoreRedis
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []error

	errs = c.validateApp(errs)
	errs = c.validateServer(errs)
	errs = c.validateMongoDB(errs)
	errs = c.validateRedis(errs)
	errs = c.validateAuth(errs)
	errs = c.validateLog(errs)
	errs = c.validatePagination(errs)
	errs = c.validateLadder(errs)
	errs = c.validateWebSocket(errs)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
	}

	return nil
}

func (c *Config) validateApp(errs []error) []error {
	if c.App.Mode != "" && c.App.Mode != AppModeReal && c.App.Mode != AppModeMock {
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidAppMode, c.App.Mode))
	}
	if c.App.IsMockMode() && c.IsProduction() {
		errs = append(errs, ErrMockModeInProd)
	}
	return errs
}

func (c *Config) validateServer(errs []error) []error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server.write_timeout must be positive"))
	}
	if s := c.Server.RateLimit.Store; s != "" && !validStore(s) {
		errs = append(errs, fmt.Errorf("server.rate_limit.store: %w", ErrInvalidStore))
	}
	if c.Server.RateLimit.Store != "" && c.Server.RateLimit.Limit <= 0 {
		errs = append(errs, errors.New("server.rate_limit.limit must be positive"))
	}
	return errs
}

func (c *Config) validateMongoDB(errs []error) []error {
	if !c.App.IsRealMode() {
		return errs
	}
	if c.MongoDB.URI == "" {
		errs = append(errs, errors.New("mongodb.uri is required"))
	}
	if c.MongoDB.Database == "" {
		errs = append(errs, errors.New("mongodb.database is required"))
	}
	return errs
}

func (c *Config) validateRedis(errs []error) []error {
	if c.UsesRedis() && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	return errs
}

func (c *Config) validateAuth(errs []error) []error {
	if c.App.IsRealMode() && c.Auth.JWTSecret == "" && c.Auth.JWKSURL == "" {
		errs = append(errs, errors.New("auth.jwt_secret or auth.jwks_url is required"))
	}
	if c.Auth.Leeway < 0 {
		errs = append(errs, errors.New("auth.leeway must not be negative"))
	}
	return errs
}

func (c *Config) validateLog(errs []error) []error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ErrInvalidLogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ErrInvalidLogFormat)
	}
	return errs
}

// validatePagination also checks the transport, since the cache TTL is
// bounded by how long a reply stays editable.
func (c *Config) validatePagination(errs []error) []error {
	if c.Pagination.TTL <= 0 {
		errs = append(errs, errors.New("pagination.ttl must be positive"))
	}
	if !validStore(c.Pagination.Store) {
		errs = append(errs, fmt.Errorf("pagination.store: %w", ErrInvalidStore))
	}
	if c.Transport.Relay != "" && c.Transport.Relay != StoreRedis {
		errs = append(errs, ErrInvalidRelay)
	}
	if c.Transport.EditWindow <= 0 {
		errs = append(errs, errors.New("transport.edit_window must be positive"))
	}
	if c.Pagination.TTL > 0 && c.Transport.EditWindow > 0 && c.Pagination.TTL >= c.Transport.EditWindow {
		errs = append(errs, fmt.Errorf("%w: %s >= %s", ErrTTLExceedsEditable, c.Pagination.TTL, c.Transport.EditWindow))
	}
	return errs
}

func (c *Config) validateLadder(errs []error) []error {
	if c.Ladder.PageSize <= 0 || c.Ladder.PageSize > maxLadderPageSize {
		errs = append(errs, fmt.Errorf("ladder.page_size must be between 1 and %d, got %d",
			maxLadderPageSize, c.Ladder.PageSize))
	}
	return errs
}

func (c *Config) validateWebSocket(errs []error) []error {
	if c.WebSocket.ReadBufferSize <= 0 {
		errs = append(errs, errors.New("websocket.read_buffer_size must be positive"))
	}
	if c.WebSocket.WriteBufferSize <= 0 {
		errs = append(errs, errors.New("websocket.write_buffer_size must be positive"))
	}
	if c.WebSocket.PingInterval <= 0 {
		errs = append(errs, errors.New("websocket.ping_interval must be positive"))
	}
	if c.WebSocket.PongTimeout <= c.WebSocket.PingInterval {
		errs = append(errs, errors.New("websocket.pong_timeout must exceed websocket.ping_interval"))
	}
	return errs
}

func validStore(s string) bool {
	return s == StoreMemory || s == StoreRedis
}

// Load loads configuration from the default config file and environment variables.
func Load() (*Config, error) {
	return LoadFromPath("")
}

// LoadFromPath loads configuration from a specific file path.
// If path is empty, it tries to find the config file in standard locations.
func LoadFromPath(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Loader handles configuration loading from files and environment variables.
type Loader struct {
	configPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		configPaths: []string{
			"configs/config.yaml",
			"config.yaml",
			"/etc/ladder/config.yaml",
		},
	}
}

// WithConfigPaths sets custom config paths to search.
func (l *Loader) WithConfigPaths(paths []string) *Loader {
	l.configPaths = paths
	return l
}

// Load builds the configuration from defaults, then the file, then the
// environment, and validates the result.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := path
	if configPath == "" {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			configPath = envPath
		} else {
			for _, p := range l.configPaths {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
		}
	}

	if configPath != "" {
		if err := l.loadFromFile(cfg, configPath); err != nil {
			// A file found by searching may be ignored; an explicit one may not.
			if path != "" || os.Getenv("CONFIG_PATH") != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.loadEnvToStruct(reflect.ValueOf(cfg).Elem())
}

// loadEnvToStruct recursively loads environment variables into a struct.
func (l *Loader) loadEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.loadEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := l.setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s from env %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// setFieldFromEnv sets a struct field value from an environment variable string.
// String slices are comma separated.
//
//nolint:exhaustive // We only support a subset of reflect.Kind for config values
func (l *Loader) setFieldFromEnv(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeFor[time.Duration]() {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidDuration, value)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %s", value)
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer value: %s", value)
		}
		field.SetUint(u)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		parts := strings.Split(value, ",")
		items := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// IsDevelopment returns true if the log level indicates a development environment.
func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Log.Level) == "debug"
}

// IsProduction returns true if authentication appears configured for production.
func (c *Config) IsProduction() bool {
	if c.Auth.JWKSURL != "" {
		return true
	}
	return c.Auth.JWTSecret != devJWTSecret && c.Auth.JWTSecret != ""
}
