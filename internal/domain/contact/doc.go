// Package contact models canonical correspondent identities on the messaging
// network.
//
// A correspondent can be addressed in two independently issued namespaces: a
// phone-number address (PN, "<digits>@s.whatsapp.net") and an anonymized linked
// identifier (LID, "<digits>@lid"). Multi-party channels use the group
// namespace ("<id>@g.us"). A Contact is keyed by its primary (PN or group)
// address within a tenant; LinkedIdentifierEntry keeps the durable LID to
// Contact cross-reference.
package contact
