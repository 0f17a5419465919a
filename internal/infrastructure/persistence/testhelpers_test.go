package persistence

import (
	"testing"
	"time"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupIdentityTestDB opens an in-memory SQLite database with the identity
// tables. A single connection keeps every goroutine on the same database.
func setupIdentityTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
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

func newTestContact(t *testing.T, tenantID uuid.UUID, address string, createdAt time.Time) *contact.Contact {
	t.Helper()
	c, err := contact.NewContact(tenantID, address, "", contact.Classify(contact.Normalize(address)) == contact.KindGroup)
	require.NoError(t, err)
	if !createdAt.IsZero() {
		c.CreatedAt = createdAt
		c.UpdatedAt = createdAt
	}
	return c
}
