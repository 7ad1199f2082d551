package commands_test

import (
	"context"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"ballotproxy/contexts/identity-access/access-control/adapters/memory"
	"ballotproxy/contexts/identity-access/access-control/application/commands"
	domainerrors "ballotproxy/contexts/identity-access/access-control/domain/errors"
)

func TestTransferOwnership(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore("alice")
	uc := commands.TransferOwnershipUseCase{Owners: store, Logger: slogt.New(t)}

	result, err := uc.Execute(ctx, commands.TransferOwnershipCommand{Caller: "alice", NewOwner: " bob "})
	require.NoError(t, err)
	require.Equal(t, "alice", result.Previous.String())
	require.Equal(t, "bob", result.Next.String())

	owner, found, err := store.Owner(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "bob", owner)

	// The previous owner lost its rights.
	_, err = uc.Execute(ctx, commands.TransferOwnershipCommand{Caller: "alice", NewOwner: "alice"})
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestTransferOwnershipRejectsNonOwner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore("alice")
	uc := commands.TransferOwnershipUseCase{Owners: store, Logger: slogt.New(t)}

	_, err := uc.Execute(ctx, commands.TransferOwnershipCommand{Caller: "mallory", NewOwner: "mallory"})
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	owner, _, err := store.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)
}

func TestTransferOwnershipRejectsEmptyOwner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore("alice")
	uc := commands.TransferOwnershipUseCase{Owners: store, Logger: slogt.New(t)}

	_, err := uc.Execute(ctx, commands.TransferOwnershipCommand{Caller: "alice", NewOwner: "  "})
	require.ErrorIs(t, err, domainerrors.ErrInvalidOwner)

	owner, _, err := store.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)
}
