package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ballotproxy/internal/shared/outbox"
	"ballotproxy/internal/shared/storagelayout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicallyDiscardsFailedWrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Atomically(ctx, func(ctx context.Context, tx storagelayout.Tx) error {
		id, err := tx.Sessions().NextSessionID(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Sessions().InsertSession(ctx, storagelayout.SessionRecord{
			SessionID: id,
			Topics:    []storagelayout.TopicRecord{{Label: "a"}},
		}))
		require.NoError(t, tx.Slots().SetOwner(ctx, "0xowner"))
		require.NoError(t, tx.Outbox().AppendOutbox(ctx, outbox.Message{OutboxID: "m1"}))
		return boom
	})
	assert.Same(t, boom, err)

	err = store.Atomically(ctx, func(ctx context.Context, tx storagelayout.Tx) error {
		count, err := tx.Sessions().SessionCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
		_, found, err := tx.Slots().Owner(ctx)
		require.NoError(t, err)
		assert.False(t, found)
		id, err := tx.Sessions().NextSessionID(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)
		return nil
	})
	require.NoError(t, err)

	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRecordVote(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Atomically(ctx, func(ctx context.Context, tx storagelayout.Tx) error {
		sessions := tx.Sessions()
		require.NoError(t, sessions.InsertSession(ctx, storagelayout.SessionRecord{
			SessionID: 1,
			EndTime:   time.Now().Add(time.Hour),
			Topics:    []storagelayout.TopicRecord{{Label: "a"}, {Label: "b"}},
		}))
		require.NoError(t, sessions.RecordVote(ctx, 1, 1, "0xAbc"))
		assert.ErrorIs(t, sessions.RecordVote(ctx, 1, 0, "0xabc"), storagelayout.ErrVoterRecordExists)
		assert.ErrorIs(t, sessions.RecordVote(ctx, 1, 2, "0xdef"), storagelayout.ErrTopicOutOfRange)
		assert.ErrorIs(t, sessions.RecordVote(ctx, 2, 0, "0xdef"), storagelayout.ErrSessionNotFound)

		voted, err := sessions.HasVoted(ctx, 1, " 0xABC ")
		require.NoError(t, err)
		assert.True(t, voted)

		record, found, err := sessions.GetSession(ctx, 1)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, uint64(1), record.TotalVotes)
		assert.Equal(t, uint64(1), record.Topics[1].VoteCount)
		assert.Zero(t, record.Topics[0].VoteCount)
		return nil
	})
	require.NoError(t, err)
}

func TestOutboxOrderAndAcknowledgement(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Atomically(ctx, func(ctx context.Context, tx storagelayout.Tx) error {
		for _, id := range []string{"c", "a", "b"} {
			if err := tx.Outbox().AppendOutbox(ctx, outbox.Message{OutboxID: id}); err != nil {
				return err
			}
		}
		return tx.Outbox().AppendOutbox(ctx, outbox.Message{OutboxID: "a"})
	})
	assert.ErrorIs(t, err, outbox.ErrDuplicateMessage)

	err = store.Atomically(ctx, func(ctx context.Context, tx storagelayout.Tx) error {
		for _, id := range []string{"c", "a", "b"} {
			if err := tx.Outbox().AppendOutbox(ctx, outbox.Message{OutboxID: id}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	pending, err := store.ListPendingOutbox(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "c", pending[0].OutboxID)
	assert.Equal(t, "a", pending[1].OutboxID)

	require.NoError(t, store.MarkOutboxPublished(ctx, "c", time.Now()))
	assert.ErrorIs(t, store.MarkOutboxPublished(ctx, "missing", time.Now()), outbox.ErrMessageNotFound)

	pending, err = store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].OutboxID)
}
