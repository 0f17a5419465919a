// Package lock provides per-tenant mutual exclusion for identity resolution.
//
// KeyedMutex serializes callers inside one process. RedisLocker extends the
// guarantee across replicas with a SET NX PX lease that only its holder can
// release.
package lock
