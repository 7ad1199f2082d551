package queries

import (
	"context"
	"fmt"

	"ballotproxy/contexts/governance/voting-engine/domain/entities"
	domainerrors "ballotproxy/contexts/governance/voting-engine/domain/errors"
	"ballotproxy/contexts/governance/voting-engine/domain/services"
	"ballotproxy/contexts/governance/voting-engine/ports"
)

// SessionQueries serves read-only session lookups.
type SessionQueries struct {
	Sessions ports.SessionRepository
	Clock    ports.Clock
}

func (q SessionQueries) GetSession(ctx context.Context, sessionID uint64) (entities.Session, error) {
	record, found, err := q.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entities.Session{}, err
	}
	if !found {
		return entities.Session{}, domainerrors.ErrUnknownSession
	}
	return entities.SessionFromRecord(record, q.Clock.Now()), nil
}

func (q SessionQueries) GetTopic(ctx context.Context, sessionID uint64, topicIndex uint64) (entities.Topic, error) {
	session, err := q.GetSession(ctx, sessionID)
	if err != nil {
		return entities.Topic{}, err
	}
	if topicIndex >= uint64(len(session.Topics)) {
		return entities.Topic{}, domainerrors.ErrInvalidTopic
	}
	return session.Topics[topicIndex], nil
}

// Winner resolves the winning topic of a closed session. It refuses while the
// session is open so that a provisional leader is never reported as final.
func (q SessionQueries) Winner(ctx context.Context, sessionID uint64) (entities.Topic, error) {
	session, err := q.GetSession(ctx, sessionID)
	if err != nil {
		return entities.Topic{}, err
	}
	if session.Active {
		return entities.Topic{}, domainerrors.ErrSessionStillOpen
	}
	winner, ok := services.Winner(session.Topics)
	if !ok {
		return entities.Topic{}, domainerrors.ErrInvalidTopic
	}
	return winner, nil
}

// TotalVotes returns the running total kept on the session record. The total
// must equal the sum of the topic counts; a record where they differ is
// reported as ErrTallyMismatch rather than served.
func (q SessionQueries) TotalVotes(ctx context.Context, sessionID uint64) (uint64, error) {
	session, err := q.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if sum := services.SumVotes(session.Topics); sum != session.TotalVotes {
		return 0, fmt.Errorf("%w: session %d total %d, topics %d",
			domainerrors.ErrTallyMismatch, sessionID, session.TotalVotes, sum)
	}
	return session.TotalVotes, nil
}

func (q SessionQueries) SessionCount(ctx context.Context) (uint64, error) {
	return q.Sessions.SessionCount(ctx)
}

func (q SessionQueries) HasVoted(ctx context.Context, sessionID uint64, voter string) (bool, error) {
	_, found, err := q.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, domainerrors.ErrUnknownSession
	}
	return q.Sessions.HasVoted(ctx, sessionID, voter)
}
