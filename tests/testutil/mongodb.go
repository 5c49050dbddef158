package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	mongoCtxTimeout                = 10 * time.Second
	mongoContainerStartupTimeout   = 120 * time.Second
	mongoContainerTerminateTimeout = 10 * time.Second
	mongoPingTimeout               = 2 * time.Second
	mongoPingRetryDelay            = 500 * time.Millisecond
	maxTestNameLength              = 40
)

var (
	sharedMongo     *SharedMongoContainer
	sharedMongoOnce sync.Once
	errSharedMongo  error
)

// SharedMongoContainer is a MongoDB container reused by every test in the binary.
type SharedMongoContainer struct {
	Container testcontainers.Container
	URI       string
}

// GetSharedMongoContainer starts the MongoDB container once and returns it.
func GetSharedMongoContainer() (*SharedMongoContainer, error) {
	sharedMongoOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), mongoContainerStartupTimeout)
		defer cancel()
		sharedMongo, errSharedMongo = startMongoContainer(ctx)
	})
	return sharedMongo, errSharedMongo
}

func startMongoContainer(ctx context.Context) (*SharedMongoContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "mongo:8",
		Name:         "ladder-test-mongodb",
		ExposedPorts: []string{"27017/tcp"},
		Env: map[string]string{
			"MONGO_INITDB_ROOT_USERNAME": "admin",
			"MONGO_INITDB_ROOT_PASSWORD": "admin123",
		},
		WaitingFor: wait.ForLog("Waiting for connections").WithStartupTimeout(mongoContainerStartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		Reuse:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start MongoDB container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &SharedMongoContainer{
		Container: container,
		URI:       fmt.Sprintf("mongodb://admin:admin123@%s", net.JoinHostPort(host, port.Port())),
	}, nil
}

// SetupTestMongoDB returns an isolated database inside the shared container.
// The test is skipped in -short mode or when Docker is not available.
func SetupTestMongoDB(t *testing.T) *mongo.Database {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}

	container, err := GetSharedMongoContainer()
	if err != nil {
		t.Skipf("MongoDB container unavailable: %v", err)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(container.URI))
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	maxRetries := 5
	for i := range maxRetries {
		pingCtx, cancel := context.WithTimeout(context.Background(), mongoPingTimeout)
		err = client.Ping(pingCtx, nil)
		cancel()
		if err == nil {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(mongoPingRetryDelay)
		}
	}
	if err != nil {
		t.Fatalf("Failed to ping MongoDB after %d retries: %v", maxRetries, err)
	}

	db := client.Database(generateTestDBName(t.Name()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), mongoCtxTimeout)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return db
}

// generateTestDBName builds a database name MongoDB accepts from a test name.
func generateTestDBName(testName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, testName)
	if len(name) > maxTestNameLength {
		hash := sha256.Sum256([]byte(testName))
		name = name[:20] + "_" + hex.EncodeToString(hash[:])[:12]
	}
	return "ladder_test_" + name
}

// CleanupSharedContainer terminates the shared MongoDB container.
func CleanupSharedContainer() {
	if sharedMongo == nil || sharedMongo.Container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoContainerTerminateTimeout)
	defer cancel()
	_ = sharedMongo.Container.Terminate(ctx)
}
