package contact

import (
	"regexp"
	"strings"
)

// Namespace suffixes used by the network
const (
	SuffixSingleParty = "@s.whatsapp.net"
	SuffixGroup       = "@g.us"
	SuffixLinked      = "@lid"
)

// Kind classifies a raw network identifier
type Kind int

const (
	KindMalformed Kind = iota
	KindSingleParty
	KindGroup
	KindLinked
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindSingleParty:
		return "single_party"
	case KindGroup:
		return "group"
	case KindLinked:
		return "linked"
	default:
		return "malformed"
	}
}

// Namespace returns the namespace an identifier of this kind lives in
func (k Kind) Namespace() Namespace {
	switch k {
	case KindGroup:
		return NamespaceGroup
	case KindLinked:
		return NamespaceLinked
	case KindSingleParty:
		return NamespacePhone
	default:
		return NamespaceUnknown
	}
}

// Namespace is the identifier namespace involved in a resolution
type Namespace string

const (
	NamespacePhone   Namespace = "pn"
	NamespaceLinked  Namespace = "lid"
	NamespaceGroup   Namespace = "group"
	NamespaceUnknown Namespace = "unknown"
)

var (
	leadingDigitsPattern = regexp.MustCompile(`^(\d+)`)
	linkedFormPattern    = regexp.MustCompile(`^(\d+)@lid`)
	deviceMarkerPattern  = regexp.MustCompile(`:\d+$`)
	nonDigitPattern      = regexp.MustCompile(`\D`)
)

// Normalize canonicalizes a raw network identifier. It never fails:
//   - doubled "@s.whatsapp.net" / "@g.us" suffixes collapse to one
//   - linked identifiers are returned unchanged
//   - identifiers already carrying a PN or group suffix are returned unchanged
//   - anything else is a bare number and gets the PN suffix
func Normalize(raw string) string {
	jid := strings.TrimSpace(raw)
	if jid == "" {
		return ""
	}

	jid = collapseDoubled(jid, SuffixSingleParty)
	jid = collapseDoubled(jid, SuffixGroup)

	if strings.Contains(jid, SuffixLinked) {
		return jid
	}
	if strings.Contains(jid, SuffixSingleParty) || strings.Contains(jid, SuffixGroup) {
		return jid
	}
	return jid + SuffixSingleParty
}

func collapseDoubled(jid, suffix string) string {
	doubled := suffix + suffix
	for strings.Contains(jid, doubled) {
		jid = strings.ReplaceAll(jid, doubled, suffix)
	}
	return jid
}

// Classify returns the kind of a raw identifier after normalization.
// Identifiers with an empty or digit-free local part are malformed.
func Classify(raw string) Kind {
	jid := Normalize(raw)
	if jid == "" {
		return KindMalformed
	}

	local := LocalPart(jid)
	if local == "" || !strings.ContainsAny(local, "0123456789") {
		return KindMalformed
	}

	switch {
	case strings.Contains(jid, SuffixLinked):
		if LeadingDigits(local) == "" {
			return KindMalformed
		}
		return KindLinked
	case strings.Contains(jid, SuffixGroup):
		return KindGroup
	default:
		return KindSingleParty
	}
}

// LocalPart returns the part of an identifier before the first '@'
func LocalPart(jid string) string {
	if i := strings.Index(jid, "@"); i >= 0 {
		return jid[:i]
	}
	return jid
}

// LeadingDigits returns the leading numeric run of s
func LeadingDigits(s string) string {
	return leadingDigitsPattern.FindString(s)
}

// StripDeviceMarker removes a trailing device marker (":0", ":12") from the
// local part of a phone identifier
func StripDeviceMarker(local string) string {
	return deviceMarkerPattern.ReplaceAllString(local, "")
}

// PhoneNumberOf returns the bare phone number carried by a PN identifier,
// without the device marker
func PhoneNumberOf(jid string) string {
	return StripDeviceMarker(LocalPart(strings.TrimSpace(jid)))
}

// PrimaryAddressFor builds the canonical PN address for a bare number
func PrimaryAddressFor(number string) string {
	return Normalize(number)
}

// GroupAddressFor builds the group address for a bare group id
func GroupAddressFor(id string) string {
	if strings.Contains(id, SuffixGroup) {
		return Normalize(id)
	}
	return id + SuffixGroup
}

// LinkedFormOf extracts the "<digits>@lid" form from an identifier that
// starts with a linked identifier
func LinkedFormOf(raw string) (string, bool) {
	m := linkedFormPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	return m[1] + SuffixLinked, true
}

// DigitsOf returns only the digits in s
func DigitsOf(s string) string {
	return nonDigitPattern.ReplaceAllString(s, "")
}
