package ports

import (
	"context"
	"time"

	"ballotproxy/internal/shared/dispatch"
	"ballotproxy/internal/shared/storagelayout"
)

// SessionRepository is the session region of the proxy storage.
type SessionRepository = storagelayout.SessionStore

// OwnerReader resolves the deployment owner for creation gating.
type OwnerReader interface {
	Owner(ctx context.Context) (string, bool, error)
}

// Clock abstracts current time. Inside a forwarded call it is pinned to the
// call's timestamp.
type Clock interface {
	Now() time.Time
}

// Dispatcher submits calls to the proxy that hosts this module's logic.
type Dispatcher interface {
	Dispatch(ctx context.Context, call dispatch.Call) (dispatch.Receipt, error)
}
