package contact

import (
	"context"
	"testing"
	"time"

	ticketapp "github.com/chatdesk/backend/internal/application/ticket"
	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/domain/conversation"
	"github.com/chatdesk/backend/internal/infrastructure/lock"
	"github.com/chatdesk/backend/internal/infrastructure/persistence"
	"github.com/chatdesk/backend/internal/infrastructure/persistence/models"
	"github.com/chatdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// identityFixture wires the resolver to an in-memory SQLite store
type identityFixture struct {
	t         *testing.T
	db        *gorm.DB
	tenantID  uuid.UUID
	contacts  *persistence.GormContactRepository
	entries   *persistence.GormCrossReferenceRepository
	messages  *persistence.GormMessageRepository
	tickets   *persistence.GormTicketRepository
	session   *fakeSession
	publisher *recordingPublisher
	metrics   *telemetry.IdentityMetrics
	reader    *sdkmetric.ManualReader
	locker    *lock.KeyedMutex
	crossRefs *CrossReferenceStore
	resolver  *Resolver
	logger    *zap.Logger
}

func setupIdentityTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.ContactModel{},
		&models.LinkedIdentifierModel{},
		&models.MessageModel{},
		&models.TicketModel{},
	))
	return db
}

func newIdentityFixture(t *testing.T) *identityFixture {
	return newIdentityFixtureWith(t, DefaultResolverConfig(), nil)
}

// newIdentityFixtureWith builds the fixture; contacts overrides the contact
// repository the engine sees when not nil
func newIdentityFixtureWith(t *testing.T, cfg ResolverConfig, contacts contact.ContactRepository) *identityFixture {
	t.Helper()
	return newIdentityFixtureWithDB(t, setupIdentityTestDB(t), cfg, contacts)
}

func newIdentityFixtureWithDB(t *testing.T, db *gorm.DB, cfg ResolverConfig, contacts contact.ContactRepository) *identityFixture {
	t.Helper()
	metrics, reader := newTestMetrics(t)

	f := &identityFixture{
		t:         t,
		db:        db,
		tenantID:  uuid.New(),
		contacts:  persistence.NewGormContactRepository(db),
		entries:   persistence.NewGormCrossReferenceRepository(db),
		messages:  persistence.NewGormMessageRepository(db),
		tickets:   persistence.NewGormTicketRepository(db),
		session:   newFakeSession(),
		publisher: &recordingPublisher{},
		metrics:   metrics,
		reader:    reader,
		locker:    lock.NewKeyedMutex(),
		logger:    zaptest.NewLogger(t),
	}
	if contacts == nil {
		contacts = f.contacts
	}

	lifecycle := ticketapp.NewLifecycleService(f.tickets, f.logger)
	lifecycle.SetEventPublisher(f.publisher)

	f.crossRefs = NewCrossReferenceStore(contacts, f.entries)
	namespaces := NewNamespaceResolver(f.session, time.Second, metrics, f.logger)
	consolidator := NewConsolidator(contacts, f.entries, f.messages, f.tickets, lifecycle, metrics, f.logger)
	f.resolver = NewResolver(contacts, f.crossRefs, namespaces, consolidator, f.locker, cfg, metrics, f.logger)
	f.resolver.SetEventPublisher(f.publisher)
	return f
}

func (f *identityFixture) resolve(raw string) *contact.Contact {
	f.t.Helper()
	c, err := f.resolver.Resolve(context.Background(), ResolveInput{TenantID: f.tenantID, RawIdentifier: raw})
	require.NoError(f.t, err)
	return c
}

func (f *identityFixture) seedContact(address string) *contact.Contact {
	f.t.Helper()
	c, err := contact.NewContact(f.tenantID, address, "", false)
	require.NoError(f.t, err)
	require.NoError(f.t, f.contacts.Save(context.Background(), c))
	return c
}

// seedLegacyContact stores a row the way older releases did, bypassing the
// domain constructor
func (f *identityFixture) seedLegacyContact(primaryAddress, linkedID string) uuid.UUID {
	f.t.Helper()
	now := time.Now()
	model := &models.ContactModel{
		ID:                   uuid.New(),
		TenantID:             f.tenantID,
		Name:                 "legacy",
		PrimaryAddress:       primaryAddress,
		LinkedIdentifier:     linkedID,
		RawNetworkIdentifier: primaryAddress,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(f.t, f.db.Create(model).Error)
	return model.ID
}

func (f *identityFixture) seedMessage(contactID uuid.UUID) {
	f.t.Helper()
	msg := conversation.NewMessage(f.tenantID, contactID, "hello", false)
	require.NoError(f.t, f.messages.Create(context.Background(), msg))
}

func (f *identityFixture) seedOpenTicket(contactID uuid.UUID) uuid.UUID {
	f.t.Helper()
	ticket, err := conversation.NewTicket(f.tenantID, contactID)
	require.NoError(f.t, err)
	require.NoError(f.t, f.tickets.Create(context.Background(), ticket))
	return ticket.ID
}

func (f *identityFixture) contactCount() int64 {
	f.t.Helper()
	var count int64
	require.NoError(f.t, f.db.Model(&models.ContactModel{}).Where("tenant_id = ?", f.tenantID).Count(&count).Error)
	return count
}

func (f *identityFixture) entryCount() int64 {
	f.t.Helper()
	var count int64
	require.NoError(f.t, f.db.Model(&models.LinkedIdentifierModel{}).Where("tenant_id = ?", f.tenantID).Count(&count).Error)
	return count
}

func (f *identityFixture) entryOwner(linkedID string) uuid.UUID {
	f.t.Helper()
	entry, err := f.entries.FindByLinkedIdentifier(context.Background(), f.tenantID, linkedID)
	require.NoError(f.t, err)
	return entry.ContactID
}
