package application

import (
	"context"
	"log/slog"

	domainerrors "ballotproxy/contexts/identity-access/access-control/domain/errors"
	"ballotproxy/contexts/identity-access/access-control/domain/valueobjects"
	"ballotproxy/contexts/identity-access/access-control/ports"
)

// Guard answers ownership questions against the owner slot. It never writes.
type Guard struct {
	Owners ports.OwnerReader
	Logger *slog.Logger
}

// Owner returns the current owner identity.
func (g Guard) Owner(ctx context.Context) (valueobjects.Identity, error) {
	owner, found, err := g.Owners.Owner(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		return "", domainerrors.ErrOwnerNotSet
	}
	return valueobjects.Identity(owner), nil
}

// IsOwner reports whether caller is the current owner.
func (g Guard) IsOwner(ctx context.Context, caller string) (bool, error) {
	owner, err := g.Owner(ctx)
	if err != nil {
		return false, err
	}
	return owner.Equal(valueobjects.Identity(caller)), nil
}

// RequireOwner fails with ErrUnauthorized unless caller is the owner.
func (g Guard) RequireOwner(ctx context.Context, caller string) error {
	ok, err := g.IsOwner(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		ResolveLogger(g.Logger).Warn("owner check rejected caller",
			"event", "access_control_owner_check_rejected",
			"module", "identity-access/access-control",
			"layer", "application",
			"caller", caller,
		)
		return domainerrors.ErrUnauthorized
	}
	return nil
}
