// Package integration runs the identity engine against real PostgreSQL and
// Redis instances started with testcontainers.
package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chatdesk/backend/internal/infrastructure/config"
	"github.com/chatdesk/backend/internal/infrastructure/migration"
	"github.com/chatdesk/backend/internal/infrastructure/persistence"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const (
	postgresImage   = "postgres:16-alpine"
	redisImage      = "redis:7-alpine"
	startupTimeout  = 60 * time.Second
	testDatabase    = "chatdesk_test"
	testDBUser      = "postgres"
	testDBPassword  = "admin123"
	terminateWindow = 30 * time.Second
)

// postgresServer is started once per package and migrated once.
// Tests isolate themselves by working in fresh tenants.
var postgresServer struct {
	mu        sync.Mutex
	container *tcpostgres.PostgresContainer
	cfg       config.DatabaseConfig
}

// TestDB is a connection to the package's PostgreSQL server
type TestDB struct {
	DB *gorm.DB
}

// NewSharedTestDB opens a connection pool on the shared server, starting and
// migrating it on first use. The pool is closed when t finishes.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	cfg := sharedPostgres(t)
	db, err := persistence.NewDatabase(&cfg, zap.NewNop())
	require.NoError(t, err, "connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	return &TestDB{DB: db.DB}
}

func sharedPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()

	postgresServer.mu.Lock()
	defer postgresServer.mu.Unlock()
	if postgresServer.container != nil {
		return postgresServer.cfg
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(testDatabase),
		tcpostgres.WithUsername(testDBUser),
		tcpostgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout)),
	)
	require.NoError(t, err, "start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            testDBUser,
		Password:        testDBPassword,
		DBName:          testDatabase,
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
		LogLevel:        "silent",
	}

	db, err := persistence.NewDatabase(&cfg, zap.NewNop())
	require.NoError(t, err, "connect for migrations")
	defer func() { _ = db.Close() }()
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, "", zaptest.NewLogger(t))
	require.NoError(t, err, "create migrator")
	require.NoError(t, m.Up(), "apply migrations")

	postgresServer.container = container
	postgresServer.cfg = cfg
	return cfg
}

// CleanupSharedContainer terminates the shared PostgreSQL server. TestMain calls it.
func CleanupSharedContainer() {
	postgresServer.mu.Lock()
	defer postgresServer.mu.Unlock()
	if postgresServer.container == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), terminateWindow)
	defer cancel()
	_ = postgresServer.container.Terminate(ctx)
	postgresServer.container = nil
}

// NewTestRedis starts a dedicated Redis container and returns a connected client
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(startupTimeout),
		},
		Started: true,
	})
	require.NoError(t, err, "start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate Redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err(), "ping Redis")
	return client
}
