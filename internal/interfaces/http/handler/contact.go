package handler

import (
	"context"

	contactapp "github.com/chatdesk/backend/internal/application/contact"
	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContactResolver resolves identifiers and consolidates duplicates
type ContactResolver interface {
	Resolve(ctx context.Context, in contactapp.ResolveInput) (*contact.Contact, error)
	Consolidate(ctx context.Context, tenantID, winnerID, loserID uuid.UUID) error
}

// ContactQuery reads contacts
type ContactQuery interface {
	GetByID(ctx context.Context, tenantID, contactID uuid.UUID) (*contactapp.ContactResponse, error)
	OutboundAddress(ctx context.Context, tenantID, contactID uuid.UUID) (*contactapp.OutboundAddressResponse, error)
}

// LinkedBackfiller fills in linked identifiers for contacts stored before they were tracked
type LinkedBackfiller interface {
	Run(ctx context.Context, tenantID uuid.UUID) (contactapp.BackfillResult, error)
}

// ContactHandler handles contact identity API endpoints
type ContactHandler struct {
	BaseHandler
	resolver   ContactResolver
	query      ContactQuery
	backfiller LinkedBackfiller
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(resolver ContactResolver, query ContactQuery, backfiller LinkedBackfiller) *ContactHandler {
	return &ContactHandler{
		resolver:   resolver,
		query:      query,
		backfiller: backfiller,
	}
}

// Resolve maps a raw network identifier to its canonical contact,
// creating or merging contacts as needed.
//
// POST /contacts/resolve
func (h *ContactHandler) Resolve(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant ID")
		return
	}

	var req ResolveContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resolved, err := h.resolver.Resolve(c.Request.Context(), contactapp.ResolveInput{
		TenantID:      tenantID,
		RawIdentifier: req.RawIdentifier,
		DisplayName:   req.DisplayName,
		ProfilePicURL: req.ProfilePicURL,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, contactapp.ToContactResponse(resolved))
}

// GetByID returns a contact
//
// GET /contacts/:id
func (h *ContactHandler) GetByID(c *gin.Context) {
	tenantID, contactID, ok := h.contactPath(c)
	if !ok {
		return
	}

	resp, err := h.query.GetByID(c.Request.Context(), tenantID, contactID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// OutboundAddress returns the address outbound traffic to a contact should use
//
// GET /contacts/:id/outbound-address
func (h *ContactHandler) OutboundAddress(c *gin.Context) {
	tenantID, contactID, ok := h.contactPath(c)
	if !ok {
		return
	}

	resp, err := h.query.OutboundAddress(c.Request.Context(), tenantID, contactID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Merge consolidates the loser contact into the winner
//
// POST /contacts/merge
func (h *ContactHandler) Merge(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant ID")
		return
	}

	var req MergeContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	winnerID, loserID, err := req.IDs()
	if err != nil {
		h.BadRequest(c, "Invalid contact ID format")
		return
	}

	if err := h.resolver.Consolidate(c.Request.Context(), tenantID, winnerID, loserID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// BackfillLinked records linked identifiers for the tenant's contacts that
// predate linked identifier tracking
//
// POST /contacts/backfill-linked
func (h *ContactHandler) BackfillLinked(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant ID")
		return
	}

	result, err := h.backfiller.Run(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// contactPath reads the tenant and the :id path parameter, answering the
// request itself when either is unusable
func (h *ContactHandler) contactPath(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant ID")
		return uuid.Nil, uuid.Nil, false
	}

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid contact ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, contactID, true
}
