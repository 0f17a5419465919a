package contact

import (
	"context"

	"github.com/google/uuid"
)

// TenantLocker provides the per-tenant critical section that resolution and
// consolidation run in. Lock blocks until the tenant is free or ctx is done;
// the returned func releases the lock and is safe to call more than once.
type TenantLocker interface {
	Lock(ctx context.Context, tenantID uuid.UUID) (func(), error)
}
