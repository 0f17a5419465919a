package contact

import "context"

// AddressCheck is the transport's answer to an existence check
type AddressCheck struct {
	Exists bool
	// AlternateAddress is the address the network reports for the queried one,
	// often the identifier in the other namespace
	AlternateAddress string
}

// SessionGateway is the read-only view of a live transport session.
// Implementations may fail or block; callers bound every call with a timeout.
type SessionGateway interface {
	// ResolvePhoneForLinkedID returns the PN identifier mapped to a LID, if the
	// session knows one
	ResolvePhoneForLinkedID(ctx context.Context, linkedID string) (phone string, found bool, err error)

	// CheckAddressExists asks the network whether an address is registered
	CheckAddressExists(ctx context.Context, rawID string) (AddressCheck, error)
}
