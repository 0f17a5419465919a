package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	contactapp "github.com/chatdesk/backend/internal/application/contact"
	"github.com/chatdesk/backend/internal/infrastructure/config"
	"github.com/chatdesk/backend/internal/infrastructure/lock"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/chatdesk/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		tenant      string
		concurrency int
		batchSize   int
		logLevel    string
	)

	flag.StringVar(&tenant, "tenant", "", "Backfill a single tenant (default: every tenant with contacts)")
	flag.IntVar(&concurrency, "concurrency", 0, "Tenants processed in parallel (default: identity.backfill_concurrency)")
	flag.IntVar(&batchSize, "batch-size", 0, "Contacts read per page (default: identity.backfill_batch_size)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:   logLevel,
		Format:  "console",
		Output:  "stdout",
		Service: "lidbackfill",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if concurrency <= 0 {
		concurrency = cfg.Identity.BackfillConcurrency
	}
	if batchSize <= 0 {
		batchSize = cfg.Identity.BackfillBatchSize
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	var locker contactapp.TenantLocker = lock.NewKeyedMutex()
	if cfg.Identity.LockBackend == "redis" {
		client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, lock.RedisLockerConfig{
			KeyPrefix:     cfg.App.Name + ":tenant-lock:",
			TTL:           cfg.Identity.LockTTL,
			WaitTimeout:   cfg.Identity.LockWaitTimeout,
			RetryInterval: cfg.Identity.LockRetryInterval,
		})
	}

	contactRepo := persistence.NewGormContactRepository(db.DB)
	crossRefs := contactapp.NewCrossReferenceStore(contactRepo, persistence.NewGormCrossReferenceRepository(db.DB))
	service := contactapp.NewBackfillService(contactRepo, crossRefs, locker, batchSize, log)

	tenants, err := selectTenants(ctx, service, tenant)
	if err != nil {
		log.Fatal("Failed to list tenants", zap.Error(err))
	}
	log.Info("Starting linked identifier backfill",
		zap.Int("tenants", len(tenants)),
		zap.Int("concurrency", concurrency),
		zap.Int("batch_size", batchSize),
	)

	var updated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, tenantID := range tenants {
		g.Go(func() error {
			result, err := service.Run(gctx, tenantID)
			if err != nil {
				// one tenant failing must not stop the others
				failed.Add(1)
				log.Error("Tenant backfill failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
				return nil
			}
			updated.Add(int64(result.Updated))
			return nil
		})
	}
	_ = g.Wait()

	log.Info("Linked identifier backfill finished",
		zap.Int("tenants", len(tenants)),
		zap.Int64("updated", updated.Load()),
		zap.Int64("failed_tenants", failed.Load()),
	)
	if failed.Load() > 0 || ctx.Err() != nil {
		os.Exit(1)
	}
}

func selectTenants(ctx context.Context, service *contactapp.BackfillService, tenant string) ([]uuid.UUID, error) {
	if tenant == "" {
		return service.TenantIDs(ctx)
	}
	id, err := uuid.Parse(tenant)
	if err != nil {
		return nil, fmt.Errorf("invalid -tenant %q: %w", tenant, err)
	}
	return []uuid.UUID{id}, nil
}
