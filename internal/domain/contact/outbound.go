package contact

import "strings"

// SelectOutboundAddress chooses the identifier outbound traffic is sent to:
// the stored linked identifier, then the linked form of the raw identifier,
// then the primary address. The result is normalized.
func SelectOutboundAddress(c *Contact) string {
	if c == nil {
		return ""
	}

	if c.LinkedIdentifier != "" {
		return Normalize(c.LinkedIdentifier)
	}

	if strings.Contains(c.RawNetworkIdentifier, SuffixLinked) {
		if linked, ok := LinkedFormOf(c.RawNetworkIdentifier); ok {
			return Normalize(linked)
		}
		return Normalize(c.RawNetworkIdentifier)
	}

	if c.IsGroup {
		return GroupAddressFor(LocalPart(c.PrimaryAddress))
	}
	return Normalize(c.PrimaryAddress)
}
