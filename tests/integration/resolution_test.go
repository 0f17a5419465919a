package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	contactapp "github.com/chatdesk/backend/internal/application/contact"
	ticketapp "github.com/chatdesk/backend/internal/application/ticket"
	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/infrastructure/lock"
	"github.com/chatdesk/backend/internal/infrastructure/persistence"
	"github.com/chatdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// staticSession answers phone lookups from a fixed table
type staticSession struct {
	mu     sync.Mutex
	phones map[string]string
}

func (s *staticSession) ResolvePhoneForLinkedID(_ context.Context, linkedID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	phone, ok := s.phones[linkedID]
	return phone, ok, nil
}

func (s *staticSession) CheckAddressExists(_ context.Context, _ string) (contact.AddressCheck, error) {
	return contact.AddressCheck{Exists: true}, nil
}

func countContacts(t *testing.T, testDB *TestDB, tenantID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, testDB.DB.Table("contacts").Where("tenant_id = ?", tenantID).Count(&count).Error)
	return count
}

func newResolver(t *testing.T, testDB *TestDB, locker contactapp.TenantLocker, session contact.SessionGateway) *contactapp.Resolver {
	t.Helper()
	log := zaptest.NewLogger(t)
	metrics := telemetry.NewNoopIdentityMetrics()

	contacts := persistence.NewGormContactRepository(testDB.DB)
	entries := persistence.NewGormCrossReferenceRepository(testDB.DB)
	tickets := persistence.NewGormTicketRepository(testDB.DB)

	crossRefs := contactapp.NewCrossReferenceStore(contacts, entries)
	namespaces := contactapp.NewNamespaceResolver(session, time.Second, metrics, log)
	consolidator := contactapp.NewConsolidator(contacts, entries, persistence.NewGormMessageRepository(testDB.DB),
		tickets, ticketapp.NewLifecycleService(tickets, log), metrics, log)
	return contactapp.NewResolver(contacts, crossRefs, namespaces, consolidator, locker,
		contactapp.DefaultResolverConfig(), metrics, log)
}

func TestResolver_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewSharedTestDB(t)
	session := &staticSession{phones: map[string]string{}}
	resolver := newResolver(t, testDB, lock.NewKeyedMutex(), session)
	ctx := context.Background()

	t.Run("phone then linked identifier converge on one contact", func(t *testing.T) {
		tenantID := uuid.New()
		byPhone, err := resolver.Resolve(ctx, contactapp.ResolveInput{TenantID: tenantID, RawIdentifier: "5511999990000"})
		require.NoError(t, err)

		session.mu.Lock()
		session.phones["4242@lid"] = "5511999990000@s.whatsapp.net"
		session.mu.Unlock()

		byLID, err := resolver.Resolve(ctx, contactapp.ResolveInput{TenantID: tenantID, RawIdentifier: "4242@lid"})
		require.NoError(t, err)
		assert.Equal(t, byPhone.ID, byLID.ID)
		assert.Equal(t, "4242@lid", byLID.LinkedIdentifier)
	})

	t.Run("concurrent first contact creates one row", func(t *testing.T) {
		tenantID := uuid.New()
		const workers = 8

		ids := make(chan uuid.UUID, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := resolver.Resolve(ctx, contactapp.ResolveInput{TenantID: tenantID, RawIdentifier: "9001@lid"})
				if assert.NoError(t, err) {
					ids <- c.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := map[uuid.UUID]bool{}
		for id := range ids {
			seen[id] = true
		}
		assert.Len(t, seen, 1)

		assert.Equal(t, int64(1), countContacts(t, testDB, tenantID))
	})
}

func TestRedisLocker_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := NewTestRedis(t)
	ctx := context.Background()
	tenantID := uuid.New()
	cfg := lock.RedisLockerConfig{
		KeyPrefix:     "test:tenant-lock:",
		TTL:           5 * time.Second,
		WaitTimeout:   200 * time.Millisecond,
		RetryInterval: 10 * time.Millisecond,
	}

	// two lockers stand in for two replicas sharing one Redis
	replicaA := lock.NewRedisLocker(client, cfg)
	replicaB := lock.NewRedisLocker(client, cfg)

	t.Run("excludes another replica until released", func(t *testing.T) {
		unlock, err := replicaA.Lock(ctx, tenantID)
		require.NoError(t, err)

		_, err = replicaB.Lock(ctx, tenantID)
		assert.ErrorIs(t, err, lock.ErrLockTimeout)

		unlock()

		unlockB, err := replicaB.Lock(ctx, tenantID)
		require.NoError(t, err)
		unlockB()
	})

	t.Run("different tenants do not contend", func(t *testing.T) {
		unlock, err := replicaA.Lock(ctx, tenantID)
		require.NoError(t, err)
		defer unlock()

		unlockOther, err := replicaB.Lock(ctx, uuid.New())
		require.NoError(t, err)
		unlockOther()
	})

	t.Run("holder keeps the lease past its ttl", func(t *testing.T) {
		short := lock.RedisLockerConfig{
			KeyPrefix:     "test:lease-lock:",
			TTL:           300 * time.Millisecond,
			WaitTimeout:   200 * time.Millisecond,
			RetryInterval: 10 * time.Millisecond,
		}
		holder := lock.NewRedisLocker(client, short)
		other := lock.NewRedisLocker(client, short)

		unlock, err := holder.Lock(ctx, tenantID)
		require.NoError(t, err)
		time.Sleep(3 * short.TTL)

		_, err = other.Lock(ctx, tenantID)
		assert.ErrorIs(t, err, lock.ErrLockTimeout)

		unlock()
		unlock()

		unlockOther, err := other.Lock(ctx, tenantID)
		require.NoError(t, err)
		unlockOther()
	})

	t.Run("serializes resolution across replicas", func(t *testing.T) {
		testDB := NewSharedTestDB(t)
		session := &staticSession{phones: map[string]string{}}
		slow := lock.RedisLockerConfig{KeyPrefix: "test:resolve-lock:", TTL: 5 * time.Second, WaitTimeout: 10 * time.Second}
		resolverA := newResolver(t, testDB, lock.NewRedisLocker(client, slow), session)
		resolverB := newResolver(t, testDB, lock.NewRedisLocker(client, slow), session)
		tenant := uuid.New()

		var wg sync.WaitGroup
		for i, r := range []*contactapp.Resolver{resolverA, resolverB, resolverA, resolverB} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := r.Resolve(ctx, contactapp.ResolveInput{TenantID: tenant, RawIdentifier: "5511777770000"})
				assert.NoError(t, err, "worker %d", i)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), countContacts(t, testDB, tenant))
	})
}
