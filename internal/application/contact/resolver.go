package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/chatdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTenantBusy is returned when the tenant lock could not be acquired in time
var ErrTenantBusy = shared.NewDomainError("TENANT_BUSY", "Tenant is busy resolving contacts, retry later")

// ResolverConfig holds resolution tuning
type ResolverConfig struct {
	// LockWaitTimeout bounds how long a resolution waits for the tenant lock
	LockWaitTimeout time.Duration
	// StaleRetryLimit is how many times a resolution restarts after ErrStaleContact
	StaleRetryLimit int
}

// DefaultResolverConfig returns the default resolution settings
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		LockWaitTimeout: 10 * time.Second,
		StaleRetryLimit: 1,
	}
}

// ResolveInput is an inbound identity observation
type ResolveInput struct {
	TenantID      uuid.UUID
	RawIdentifier string
	DisplayName   string
	ProfilePicURL string
}

// Resolver maps raw network identifiers to canonical contacts.
//
// Decision order, first match wins:
//  1. malformed identifiers are rejected before anything is written
//  2. groups are upserted by address
//  3. linked identifiers are translated to a phone address outside the lock
//  4. under the tenant lock: lookup by address, then by cross-reference,
//     then by the transport's alternate address
//  5. anything left creates a new contact
type Resolver struct {
	contacts       contact.ContactRepository
	crossRefs      *CrossReferenceStore
	namespaces     *NamespaceResolver
	consolidator   *Consolidator
	locker         TenantLocker
	eventPublisher shared.EventPublisher
	metrics        *telemetry.IdentityMetrics
	logger         *zap.Logger
	config         ResolverConfig
}

// NewResolver creates a new Resolver
func NewResolver(
	contacts contact.ContactRepository,
	crossRefs *CrossReferenceStore,
	namespaces *NamespaceResolver,
	consolidator *Consolidator,
	locker TenantLocker,
	cfg ResolverConfig,
	metrics *telemetry.IdentityMetrics,
	zapLogger *zap.Logger,
) *Resolver {
	if cfg.StaleRetryLimit < 0 {
		cfg.StaleRetryLimit = 0
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &Resolver{
		contacts:     contacts,
		crossRefs:    crossRefs,
		namespaces:   namespaces,
		consolidator: consolidator,
		locker:       locker,
		metrics:      metrics,
		logger:       zapLogger,
		config:       cfg,
	}
}

// SetEventPublisher sets the publisher resolution events are sent to
func (r *Resolver) SetEventPublisher(publisher shared.EventPublisher) {
	r.eventPublisher = publisher
}

type resolution struct {
	contact *contact.Contact
	outcome string
}

// linkedTarget is what a linked identifier resolves to before the lock is taken
type linkedTarget struct {
	linkedID       string
	primaryAddress string
	phoneResolved  bool
}

// Resolve returns the canonical contact for an inbound identifier, creating it
// when none exists. Transport failures never fail a resolution; only
// persistence failures are returned, as *contact.PersistenceError.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*contact.Contact, error) {
	start := time.Now()
	raw := contact.Normalize(in.RawIdentifier)
	kind := contact.Classify(raw)
	ns := kind.Namespace()

	ctx, span := telemetry.StartSpan(ctx, "contact_resolver", "resolve",
		telemetry.AttrTenantID.String(in.TenantID.String()),
		telemetry.AttrNamespace.String(string(ns)),
	)
	defer span.End()

	log := logger.WithLogger(ctx, r.logger).With(
		zap.String("tenant_id", in.TenantID.String()),
		zap.String("raw_identifier", raw),
		zap.String("namespace", string(ns)),
	)

	if in.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if kind == contact.KindMalformed {
		r.metrics.RecordResolution(ctx, in.TenantID, telemetry.OutcomeFailed, string(ns), time.Since(start))
		log.Debug("rejected malformed identifier", zap.String("input", in.RawIdentifier))
		return nil, contact.ErrMalformedIdentifier
	}

	var (
		res     resolution
		err     error
		pending []shared.DomainEvent
	)
	for attempt := 0; ; attempt++ {
		res, err = r.resolveOnce(ctx, in, raw, kind)
		if res.contact != nil {
			pending = append(pending, res.contact.PullDomainEvents()...)
		}
		if !errors.Is(err, contact.ErrStaleContact) || attempt >= r.config.StaleRetryLimit {
			break
		}
		r.metrics.RecordStaleRetry(ctx, in.TenantID)
		log.Info("contact went stale during resolution, restarting", zap.Int("attempt", attempt+1))
	}

	// merges that completed before a failure still happened
	r.publishEvents(ctx, pending)

	if err != nil {
		telemetry.RecordError(span, err)
		r.metrics.RecordResolution(ctx, in.TenantID, telemetry.OutcomeFailed, string(ns), time.Since(start))
		log.Error("contact resolution failed", zap.Error(err))
		return nil, err
	}

	r.metrics.RecordResolution(ctx, in.TenantID, res.outcome, string(ns), time.Since(start))
	log.Debug("contact resolved",
		zap.String("contact_id", res.contact.ID.String()),
		zap.String("outcome", res.outcome),
	)
	return res.contact, nil
}

// Consolidate merges loserID into winnerID under the tenant lock
func (r *Resolver) Consolidate(ctx context.Context, tenantID, winnerID, loserID uuid.UUID) error {
	if winnerID == loserID {
		return nil
	}

	unlock, err := r.acquire(ctx, tenantID, "consolidate")
	if err != nil {
		return err
	}

	winner, err := r.contacts.FindByIDForTenant(ctx, tenantID, winnerID)
	if err != nil {
		unlock()
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound
		}
		return contact.NewPersistenceError("load winner", err)
	}

	err = r.merge(ctx, winner, loserID, winner.Namespace())
	unlock()

	r.publishEvents(ctx, winner.PullDomainEvents())
	return err
}

func (r *Resolver) resolveOnce(ctx context.Context, in ResolveInput, raw string, kind contact.Kind) (resolution, error) {
	switch kind {
	case contact.KindGroup:
		return r.locked(ctx, in.TenantID, func(ctx context.Context) (resolution, error) {
			return r.resolveGroup(ctx, in, raw)
		})
	case contact.KindLinked:
		target := r.linkedTargetFor(ctx, raw)
		return r.locked(ctx, in.TenantID, func(ctx context.Context) (resolution, error) {
			return r.resolveLinked(ctx, in, raw, target)
		})
	default:
		return r.locked(ctx, in.TenantID, func(ctx context.Context) (resolution, error) {
			return r.resolvePhone(ctx, in, raw)
		})
	}
}

func (r *Resolver) locked(ctx context.Context, tenantID uuid.UUID, fn func(context.Context) (resolution, error)) (resolution, error) {
	unlock, err := r.acquire(ctx, tenantID, "resolve")
	if err != nil {
		return resolution{}, err
	}
	defer unlock()
	return fn(ctx)
}

func (r *Resolver) acquire(ctx context.Context, tenantID uuid.UUID, op string) (func(), error) {
	waitCtx := ctx
	if r.config.LockWaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.config.LockWaitTimeout)
		defer cancel()
	}

	start := time.Now()
	unlock, err := r.locker.Lock(waitCtx, tenantID)
	r.metrics.RecordLockWait(ctx, op, time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrTenantBusy, err)
	}
	return unlock, nil
}

func (r *Resolver) linkedTargetFor(ctx context.Context, raw string) linkedTarget {
	linkedID := linkedIdentifierOf(raw)
	if number, ok := r.namespaces.ResolvePhoneForLinkedID(ctx, linkedID); ok {
		return linkedTarget{
			linkedID:       linkedID,
			primaryAddress: contact.PrimaryAddressFor(number),
			phoneResolved:  true,
		}
	}
	return linkedTarget{
		linkedID:       linkedID,
		primaryAddress: contact.PrimaryAddressFor(contact.LeadingDigits(contact.LocalPart(raw))),
	}
}

func (r *Resolver) resolveGroup(ctx context.Context, in ResolveInput, raw string) (resolution, error) {
	apply := func(c *contact.Contact) error {
		c.ObserveRawIdentifier(raw)
		c.UpdateProfile(in.DisplayName, in.ProfilePicURL)
		return nil
	}

	existing, err := r.findByAddress(ctx, in.TenantID, raw)
	if err != nil {
		return resolution{}, err
	}
	if existing != nil {
		return r.matched(ctx, existing, apply, contact.NamespaceGroup)
	}

	fresh, err := contact.NewContact(in.TenantID, raw, displayNameFor(in, raw), true)
	if err != nil {
		return resolution{}, err
	}
	return r.createOrAdopt(ctx, fresh, apply, contact.NamespaceGroup)
}

func (r *Resolver) resolveLinked(ctx context.Context, in ResolveInput, raw string, target linkedTarget) (resolution, error) {
	apply := func(c *contact.Contact) error {
		if err := c.ObserveLinkedIdentifier(target.linkedID); err != nil {
			return err
		}
		c.ObserveRawIdentifier(raw)
		c.UpdateProfile(in.DisplayName, in.ProfilePicURL)
		return nil
	}

	c, err := r.findByAddress(ctx, in.TenantID, target.primaryAddress)
	if err != nil {
		return resolution{}, err
	}

	if c == nil {
		c, err = r.lookupLinked(ctx, in.TenantID, target.linkedID)
		if err != nil {
			return resolution{}, err
		}
		// a contact first seen while the transport was down carries the
		// numeric prefix of its linked identifier as address
		if c != nil && target.phoneResolved && c.PrimaryAddress != target.primaryAddress {
			if err := c.ChangePrimaryAddress(target.primaryAddress); err != nil {
				return resolution{}, err
			}
		}
	}

	var res resolution
	if c != nil {
		if res, err = r.matchedSilently(ctx, c, apply); err != nil {
			return res, err
		}
	} else {
		fresh, err := contact.NewContact(in.TenantID, target.primaryAddress, displayNameFor(in, raw), false)
		if err != nil {
			return resolution{}, err
		}
		if res, err = r.insertOrAdopt(ctx, fresh, apply); err != nil {
			return res, err
		}
	}
	c = res.contact

	assoc, err := r.crossRefs.Associate(ctx, in.TenantID, target.linkedID, c.ID)
	if err != nil {
		return res, err
	}
	if assoc.Repointed {
		if err := r.merge(ctx, c, assoc.Previous, contact.NamespaceLinked); err != nil {
			return res, err
		}
	}
	if err := r.mergeDuplicates(ctx, c, target.linkedID); err != nil {
		return res, err
	}

	recordOutcome(c, res.outcome, contact.NamespaceLinked)
	return res, nil
}

func (r *Resolver) resolvePhone(ctx context.Context, in ResolveInput, raw string) (resolution, error) {
	primary := contact.PrimaryAddressFor(contact.PhoneNumberOf(raw))
	apply := func(c *contact.Contact) error {
		c.ObserveRawIdentifier(raw)
		c.UpdateProfile(in.DisplayName, in.ProfilePicURL)
		return nil
	}

	existing, err := r.findByAddress(ctx, in.TenantID, primary)
	if err != nil {
		return resolution{}, err
	}
	if existing != nil {
		return r.matched(ctx, existing, apply, contact.NamespacePhone)
	}

	if check, ok := r.namespaces.CheckAddress(ctx, raw); ok && check.Exists {
		alternate := contact.Normalize(check.AlternateAddress)
		if alternate != "" && alternate != primary {
			owner, err := r.findAlternateOwner(ctx, in.TenantID, alternate)
			if err != nil {
				return resolution{}, err
			}
			if owner != nil {
				return r.adoptAlternate(ctx, owner, primary, alternate, apply)
			}
		}
	}

	fresh, err := contact.NewContact(in.TenantID, primary, displayNameFor(in, raw), false)
	if err != nil {
		return resolution{}, err
	}
	return r.createOrAdopt(ctx, fresh, apply, contact.NamespacePhone)
}

// adoptAlternate moves the contact known under the alternate address to the
// resolved phone address
func (r *Resolver) adoptAlternate(ctx context.Context, owner *contact.Contact, primary, alternate string, apply func(*contact.Contact) error) (resolution, error) {
	linked := contact.Classify(alternate) == contact.KindLinked
	if linked {
		if err := owner.ObserveLinkedIdentifier(alternate); err != nil {
			return resolution{}, err
		}
	}
	if err := owner.ChangePrimaryAddress(primary); err != nil {
		return resolution{}, err
	}

	res, err := r.matchedSilently(ctx, owner, apply)
	if err != nil {
		return res, err
	}

	if linked {
		assoc, err := r.crossRefs.Associate(ctx, owner.TenantID, alternate, owner.ID)
		if err != nil {
			return res, err
		}
		if assoc.Repointed {
			if err := r.merge(ctx, owner, assoc.Previous, contact.NamespacePhone); err != nil {
				return res, err
			}
		}
	}

	recordOutcome(owner, res.outcome, contact.NamespacePhone)
	return res, nil
}

func (r *Resolver) findAlternateOwner(ctx context.Context, tenantID uuid.UUID, alternate string) (*contact.Contact, error) {
	number := contact.LeadingDigits(contact.LocalPart(alternate))
	addresses := []string{alternate, number}
	var linkedIDs []string

	if contact.Classify(alternate) == contact.KindLinked {
		c, err := r.lookupLinked(ctx, tenantID, alternate)
		if err != nil || c != nil {
			return c, err
		}
		addresses = append(addresses, contact.PrimaryAddressFor(number))
		linkedIDs = []string{alternate}
	}

	candidates, err := r.contacts.FindDuplicates(ctx, tenantID, addresses, linkedIDs)
	if err != nil {
		return nil, contact.NewPersistenceError("find alternate owner", err)
	}
	for i := range candidates {
		if !candidates[i].IsGroup {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// mergeDuplicates folds every other contact stored under a spelling of the
// linked identifier into winner
func (r *Resolver) mergeDuplicates(ctx context.Context, winner *contact.Contact, linkedID string) error {
	addresses, linkedIDs := duplicateSpellings(linkedID)
	duplicates, err := r.contacts.FindDuplicates(ctx, winner.TenantID, addresses, linkedIDs)
	if err != nil {
		return contact.NewPersistenceError("find duplicates", err)
	}

	for _, d := range duplicates {
		if d.ID == winner.ID || d.IsGroup {
			continue
		}
		if err := r.merge(ctx, winner, d.ID, contact.NamespaceLinked); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) merge(ctx context.Context, winner *contact.Contact, loserID uuid.UUID, ns contact.Namespace) error {
	stats, merged, err := r.consolidator.Consolidate(ctx, winner.TenantID, winner.ID, loserID)
	if err != nil {
		return err
	}
	if merged {
		winner.RecordMerged(loserID, ns, stats)
	}
	return nil
}

// matched persists apply's changes to an existing contact and records the match
func (r *Resolver) matched(ctx context.Context, c *contact.Contact, apply func(*contact.Contact) error, ns contact.Namespace) (resolution, error) {
	res, err := r.matchedSilently(ctx, c, apply)
	if err != nil {
		return res, err
	}
	c.RecordMatched(ns)
	return res, nil
}

func (r *Resolver) matchedSilently(ctx context.Context, c *contact.Contact, apply func(*contact.Contact) error) (resolution, error) {
	if err := apply(c); err != nil {
		return resolution{}, err
	}
	if err := r.save(ctx, c); err != nil {
		return resolution{}, err
	}
	return resolution{contact: c, outcome: telemetry.OutcomeMatched}, nil
}

// createOrAdopt inserts fresh and records the outcome
func (r *Resolver) createOrAdopt(ctx context.Context, fresh *contact.Contact, apply func(*contact.Contact) error, ns contact.Namespace) (resolution, error) {
	res, err := r.insertOrAdopt(ctx, fresh, apply)
	if err != nil {
		return res, err
	}
	recordOutcome(res.contact, res.outcome, ns)
	return res, nil
}

// insertOrAdopt inserts fresh. When a concurrent writer stored the same
// address first, the stored contact is updated and returned instead.
func (r *Resolver) insertOrAdopt(ctx context.Context, fresh *contact.Contact, apply func(*contact.Contact) error) (resolution, error) {
	if err := apply(fresh); err != nil {
		return resolution{}, err
	}

	err := r.contacts.Save(ctx, fresh)
	if err == nil {
		return resolution{contact: fresh, outcome: telemetry.OutcomeCreated}, nil
	}
	if !errors.Is(err, shared.ErrAlreadyExists) {
		return resolution{}, contact.NewPersistenceError("create contact", err)
	}

	existing, err := r.contacts.FindByPrimaryAddress(ctx, fresh.TenantID, fresh.PrimaryAddress)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return resolution{}, contact.ErrStaleContact
		}
		return resolution{}, contact.NewPersistenceError("load concurrently created contact", err)
	}
	return r.matchedSilently(ctx, existing, apply)
}

func (r *Resolver) save(ctx context.Context, c *contact.Contact) error {
	c.IncrementVersion()
	if err := r.contacts.Save(ctx, c); err != nil {
		// another contact took the address since it was read
		if errors.Is(err, shared.ErrAlreadyExists) {
			return contact.ErrStaleContact
		}
		return contact.NewPersistenceError("save contact", err)
	}
	return nil
}

func (r *Resolver) findByAddress(ctx context.Context, tenantID uuid.UUID, address string) (*contact.Contact, error) {
	c, err := r.contacts.FindByPrimaryAddress(ctx, tenantID, address)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, contact.NewPersistenceError("find by address", err)
	}
	return c, nil
}

func (r *Resolver) lookupLinked(ctx context.Context, tenantID uuid.UUID, linkedID string) (*contact.Contact, error) {
	c, err := r.crossRefs.Lookup(ctx, tenantID, linkedID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *Resolver) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if r.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := r.eventPublisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, r.logger).Warn("failed to publish resolution events",
			zap.Int("events", len(events)), zap.Error(err))
	}
}

func recordOutcome(c *contact.Contact, outcome string, ns contact.Namespace) {
	if outcome == telemetry.OutcomeCreated {
		c.RecordCreated(ns)
		return
	}
	c.RecordMatched(ns)
}

// linkedIdentifierOf returns the "<digits>@lid" form of a linked identifier
func linkedIdentifierOf(raw string) string {
	if linked, ok := contact.LinkedFormOf(raw); ok {
		return linked
	}
	return contact.LeadingDigits(contact.LocalPart(raw)) + contact.SuffixLinked
}

// duplicateSpellings lists the forms a contact for linkedID may have been
// stored under by earlier resolutions
func duplicateSpellings(linkedID string) (addresses, linkedIDs []string) {
	number := contact.LeadingDigits(contact.LocalPart(linkedID))
	bareLinked := number + contact.SuffixLinked

	addresses = []string{
		linkedID,
		number,
		number + contact.SuffixSingleParty,
		bareLinked + contact.SuffixSingleParty,
	}
	linkedIDs = []string{linkedID}
	if bareLinked != linkedID {
		linkedIDs = append(linkedIDs, bareLinked)
	}
	return addresses, linkedIDs
}

func displayNameFor(in ResolveInput, raw string) string {
	if name := strings.TrimSpace(in.DisplayName); name != "" {
		return name
	}
	return contact.DigitsOf(contact.PhoneNumberOf(raw))
}
