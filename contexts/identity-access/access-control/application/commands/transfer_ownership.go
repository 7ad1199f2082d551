package commands

import (
	"context"
	"log/slog"

	application "ballotproxy/contexts/identity-access/access-control/application"
	"ballotproxy/contexts/identity-access/access-control/domain/valueobjects"
	"ballotproxy/contexts/identity-access/access-control/ports"
)

// TransferOwnershipCommand hands the owner slot to NewOwner.
type TransferOwnershipCommand struct {
	Caller   string
	NewOwner string
}

// TransferOwnershipResult reports both sides of the swap for event emission.
type TransferOwnershipResult struct {
	Previous valueobjects.Identity
	Next     valueobjects.Identity
}

// TransferOwnershipUseCase replaces the owner identity. Callers are expected to
// run it inside a storage transaction so the swap is atomic.
type TransferOwnershipUseCase struct {
	Owners ports.OwnerStore
	Logger *slog.Logger
}

func (u TransferOwnershipUseCase) Execute(ctx context.Context, cmd TransferOwnershipCommand) (TransferOwnershipResult, error) {
	logger := application.ResolveLogger(u.Logger)
	guard := application.Guard{Owners: u.Owners, Logger: u.Logger}
	if err := guard.RequireOwner(ctx, cmd.Caller); err != nil {
		return TransferOwnershipResult{}, err
	}
	next, err := valueobjects.NewIdentity(cmd.NewOwner)
	if err != nil {
		return TransferOwnershipResult{}, err
	}
	previous, err := guard.Owner(ctx)
	if err != nil {
		return TransferOwnershipResult{}, err
	}
	if err := u.Owners.SetOwner(ctx, next.String()); err != nil {
		return TransferOwnershipResult{}, err
	}

	logger.Info("ownership transferred",
		"event", "access_control_ownership_transferred",
		"module", "identity-access/access-control",
		"layer", "application",
		"previous_owner", previous.String(),
		"new_owner", next.String(),
	)
	return TransferOwnershipResult{Previous: previous, Next: next}, nil
}
