package contact

import (
	"context"
	"sync"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/domain/conversation"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockContactRepository is a mock implementation of contact.ContactRepository
type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*contact.Contact, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contact.Contact), args.Error(1)
}

func (m *MockContactRepository) FindByPrimaryAddress(ctx context.Context, tenantID uuid.UUID, address string) (*contact.Contact, error) {
	args := m.Called(ctx, tenantID, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contact.Contact), args.Error(1)
}

func (m *MockContactRepository) FindFirstByPrimaryAddresses(ctx context.Context, tenantID uuid.UUID, addresses []string) (*contact.Contact, error) {
	args := m.Called(ctx, tenantID, addresses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contact.Contact), args.Error(1)
}

func (m *MockContactRepository) FindDuplicates(ctx context.Context, tenantID uuid.UUID, addresses, linkedIDs []string) ([]contact.Contact, error) {
	args := m.Called(ctx, tenantID, addresses, linkedIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contact.Contact), args.Error(1)
}

func (m *MockContactRepository) FindUnlinkedWithLinkedRaw(ctx context.Context, tenantID uuid.UUID, after contact.PageCursor, limit int) ([]contact.Contact, error) {
	args := m.Called(ctx, tenantID, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contact.Contact), args.Error(1)
}

func (m *MockContactRepository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockContactRepository) ExistsByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockContactRepository) Save(ctx context.Context, c *contact.Contact) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContactRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockCrossReferenceRepository is a mock implementation of contact.CrossReferenceRepository
type MockCrossReferenceRepository struct {
	mock.Mock
}

func (m *MockCrossReferenceRepository) FindByLinkedIdentifier(ctx context.Context, tenantID uuid.UUID, linkedID string) (*contact.LinkedIdentifierEntry, error) {
	args := m.Called(ctx, tenantID, linkedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contact.LinkedIdentifierEntry), args.Error(1)
}

func (m *MockCrossReferenceRepository) FindByContact(ctx context.Context, tenantID, contactID uuid.UUID) ([]contact.LinkedIdentifierEntry, error) {
	args := m.Called(ctx, tenantID, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contact.LinkedIdentifierEntry), args.Error(1)
}

func (m *MockCrossReferenceRepository) Upsert(ctx context.Context, tenantID uuid.UUID, linkedID string, contactID uuid.UUID) (contact.AssociationResult, error) {
	args := m.Called(ctx, tenantID, linkedID, contactID)
	return args.Get(0).(contact.AssociationResult), args.Error(1)
}

func (m *MockCrossReferenceRepository) RepointContact(ctx context.Context, tenantID, fromContactID, toContactID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, fromContactID, toContactID)
	return args.Get(0).(int64), args.Error(1)
}

// MockMessageRepository is a mock implementation of conversation.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) ReassignContact(ctx context.Context, tenantID, fromContactID, toContactID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, fromContactID, toContactID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepository) CountByContact(ctx context.Context, tenantID, contactID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, contactID)
	return args.Get(0).(int64), args.Error(1)
}

// MockTicketRepository is a mock implementation of conversation.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*conversation.Ticket, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversation.Ticket), args.Error(1)
}

func (m *MockTicketRepository) FindNotClosedByContact(ctx context.Context, tenantID, contactID uuid.UUID) ([]conversation.Ticket, error) {
	args := m.Called(ctx, tenantID, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]conversation.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Save(ctx context.Context, t *conversation.Ticket) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTicketRepository) ReassignContact(ctx context.Context, tenantID, fromContactID, toContactID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, fromContactID, toContactID)
	return args.Get(0).(int64), args.Error(1)
}

// MockTicketLifecycle is a mock implementation of conversation.TicketLifecycle
type MockTicketLifecycle struct {
	mock.Mock
}

func (m *MockTicketLifecycle) Close(ctx context.Context, tenantID, ticketID uuid.UUID) error {
	args := m.Called(ctx, tenantID, ticketID)
	return args.Error(0)
}

// MockSessionGateway is a mock implementation of contact.SessionGateway
type MockSessionGateway struct {
	mock.Mock
}

func (m *MockSessionGateway) ResolvePhoneForLinkedID(ctx context.Context, linkedID string) (string, bool, error) {
	args := m.Called(ctx, linkedID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockSessionGateway) CheckAddressExists(ctx context.Context, rawID string) (contact.AddressCheck, error) {
	args := m.Called(ctx, rawID)
	return args.Get(0).(contact.AddressCheck), args.Error(1)
}

// fakeSession is a SessionGateway backed by maps, for scenario tests
type fakeSession struct {
	mu     sync.Mutex
	phones map[string]string
	checks map[string]contact.AddressCheck
	err    error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		phones: make(map[string]string),
		checks: make(map[string]contact.AddressCheck),
	}
}

func (s *fakeSession) setPhone(linkedID, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phones[linkedID] = phone
}

func (s *fakeSession) setCheck(rawID string, check contact.AddressCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[rawID] = check
}

func (s *fakeSession) ResolvePhoneForLinkedID(_ context.Context, linkedID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}
	phone, ok := s.phones[linkedID]
	return phone, ok, nil
}

func (s *fakeSession) CheckAddressExists(_ context.Context, rawID string) (contact.AddressCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return contact.AddressCheck{}, s.err
	}
	return s.checks[rawID], nil
}

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) ofType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
