package ports

import "context"

// OwnerReader resolves the current owner. The boolean is false when storage
// has never been initialized with an owner.
type OwnerReader interface {
	Owner(ctx context.Context) (string, bool, error)
}

// OwnerStore is the mutable owner slot.
type OwnerStore interface {
	OwnerReader
	SetOwner(ctx context.Context, owner string) error
}
