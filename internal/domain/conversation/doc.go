// Package conversation holds the conversation-side entities the identity
// engine touches during a merge: logged messages and tickets (work items).
// Both are keyed by contact id; the engine only reassigns that key and closes
// tickets through the lifecycle port.
package conversation
