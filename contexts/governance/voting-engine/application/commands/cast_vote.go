package commands

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	application "ballotproxy/contexts/governance/voting-engine/application"
	"ballotproxy/contexts/governance/voting-engine/domain/entities"
	domainerrors "ballotproxy/contexts/governance/voting-engine/domain/errors"
	"ballotproxy/contexts/governance/voting-engine/ports"
)

// CastVoteCommand records Voter's choice of TopicIndex in SessionID.
type CastVoteCommand struct {
	SessionID  uint64
	TopicIndex uint64
	Voter      string
}

// VoteUseCase casts votes. Any identity may vote once per session.
type VoteUseCase struct {
	Sessions ports.SessionRepository
	Clock    ports.Clock
	Logger   *slog.Logger
}

// CastVote checks, in order: the session exists, it is still open, the topic
// exists, and the voter has not voted yet. The order is fixed so that a call
// failing several checks always reports the same error.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.Voter) == "" {
		return domainerrors.ErrInvalidArgument
	}

	session, found, err := uc.Sessions.GetSession(ctx, cmd.SessionID)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrUnknownSession
	}
	if !entities.IsActiveAt(session.EndTime, uc.Clock.Now()) {
		return domainerrors.ErrSessionClosed
	}
	if cmd.TopicIndex >= uint64(len(session.Topics)) {
		return domainerrors.ErrInvalidTopic
	}
	voted, err := uc.Sessions.HasVoted(ctx, cmd.SessionID, cmd.Voter)
	if err != nil {
		return err
	}
	if voted {
		logger.Warn("duplicate vote rejected",
			"event", "voting_vote_duplicate_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"session_id", strconv.FormatUint(cmd.SessionID, 10),
			"voter", cmd.Voter,
		)
		return domainerrors.ErrDuplicateVote
	}

	if err := uc.Sessions.RecordVote(ctx, cmd.SessionID, int(cmd.TopicIndex), cmd.Voter); err != nil {
		return err
	}
	logger.Info("vote cast",
		"event", "voting_vote_cast",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", strconv.FormatUint(cmd.SessionID, 10),
		"topic_index", cmd.TopicIndex,
		"voter", cmd.Voter,
	)
	return nil
}
