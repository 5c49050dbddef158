package testutil

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	redisCtxTimeout                = 10 * time.Second
	redisContainerStartupTimeout   = 60 * time.Second
	redisContainerTerminateTimeout = 5 * time.Second
	redisContainerMemoryLimit      = 128 * 1024 * 1024
	redisTestPoolSize              = 10
)

var (
	sharedRedis     *SharedRedisContainer
	sharedRedisOnce sync.Once
	errSharedRedis  error
)

// SharedRedisContainer is a Redis container reused by every test in the binary.
type SharedRedisContainer struct {
	Container testcontainers.Container
	Addr      string
}

// GetSharedRedisContainer starts the Redis container once and returns it.
func GetSharedRedisContainer() (*SharedRedisContainer, error) {
	sharedRedisOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), redisContainerStartupTimeout)
		defer cancel()
		sharedRedis, errSharedRedis = startRedisContainer(ctx)
	})
	return sharedRedis, errSharedRedis
}

func startRedisContainer(ctx context.Context) (*SharedRedisContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Memory = redisContainerMemoryLimit
			hc.MemorySwap = redisContainerMemoryLimit
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(redisContainerStartupTimeout),
			wait.ForListeningPort("6379/tcp").WithStartupTimeout(redisContainerStartupTimeout),
		),
	}

	cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := cont.MappedPort(ctx, "6379")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &SharedRedisContainer{
		Container: cont,
		Addr:      net.JoinHostPort(host, port.Port()),
	}, nil
}

// SetupTestRedis returns a client on the shared container whose database is
// flushed when the test ends. The test is skipped in -short mode or when
// Docker is not available.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}

	cont, err := GetSharedRedisContainer()
	if err != nil {
		t.Skipf("Redis container unavailable: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cont.Addr,
		PoolSize: redisTestPoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisCtxTimeout)
	defer cancel()
	if err = client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to ping Redis: %v", err)
	}

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), redisCtxTimeout)
		defer cleanupCancel()
		_ = client.FlushDB(cleanupCtx).Err()
		_ = client.Close()
	})

	return client
}

// SetupTestRedisWithPrefix also returns a key prefix unique to the test.
func SetupTestRedisWithPrefix(t *testing.T) (*redis.Client, string) {
	t.Helper()
	return SetupTestRedis(t), fmt.Sprintf("ladder:test:%s:", t.Name())
}

// CleanupSharedRedisContainer terminates the shared Redis container.
func CleanupSharedRedisContainer() {
	if sharedRedis == nil || sharedRedis.Container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisContainerTerminateTimeout)
	defer cancel()
	_ = sharedRedis.Container.Terminate(ctx)
}
