package queries_test

import (
	"context"
	"testing"
	"time"

	"ballotproxy/contexts/governance/voting-engine/application/queries"
	domainerrors "ballotproxy/contexts/governance/voting-engine/domain/errors"
	"ballotproxy/internal/shared/storagelayout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// recordRepo serves fixed records and rejects writes.
type recordRepo struct {
	records map[uint64]storagelayout.SessionRecord
}

func (r recordRepo) NextSessionID(context.Context) (uint64, error) {
	return uint64(len(r.records)) + 1, nil
}

func (r recordRepo) InsertSession(context.Context, storagelayout.SessionRecord) error {
	panic("read-only")
}

func (r recordRepo) GetSession(_ context.Context, sessionID uint64) (storagelayout.SessionRecord, bool, error) {
	record, ok := r.records[sessionID]
	return record, ok, nil
}

func (r recordRepo) SessionCount(context.Context) (uint64, error) {
	return uint64(len(r.records)), nil
}

func (r recordRepo) HasVoted(context.Context, uint64, string) (bool, error) {
	return false, nil
}

func (r recordRepo) RecordVote(context.Context, uint64, int, string) error {
	panic("read-only")
}

func TestTotalVotesChecksTopicCounts(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	q := queries.SessionQueries{
		Sessions: recordRepo{records: map[uint64]storagelayout.SessionRecord{
			1: {
				SessionID:  1,
				EndTime:    now.Add(time.Hour),
				Topics:     []storagelayout.TopicRecord{{Label: "a", VoteCount: 2}, {Label: "b", VoteCount: 1}},
				TotalVotes: 3,
			},
			2: {
				SessionID:  2,
				EndTime:    now.Add(time.Hour),
				Topics:     []storagelayout.TopicRecord{{Label: "a", VoteCount: 2}, {Label: "b", VoteCount: 0}},
				TotalVotes: 3,
			},
		}},
		Clock: fixedClock{now: now},
	}
	ctx := context.Background()

	total, err := q.TotalVotes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)

	_, err = q.TotalVotes(ctx, 2)
	assert.ErrorIs(t, err, domainerrors.ErrTallyMismatch)

	_, err = q.TotalVotes(ctx, 3)
	assert.ErrorIs(t, err, domainerrors.ErrUnknownSession)
}
