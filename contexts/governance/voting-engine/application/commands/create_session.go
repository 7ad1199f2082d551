package commands

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	application "ballotproxy/contexts/governance/voting-engine/application"
	"ballotproxy/contexts/governance/voting-engine/domain/entities"
	domainerrors "ballotproxy/contexts/governance/voting-engine/domain/errors"
	"ballotproxy/contexts/governance/voting-engine/ports"
	accesscontrol "ballotproxy/contexts/identity-access/access-control/application"
	"ballotproxy/internal/shared/storagelayout"
)

// MaxSessionDuration bounds durations so that end times stay representable.
const MaxSessionDuration = 100 * 365 * 24 * time.Hour

// CreateSessionCommand is the write-model input for session creation.
type CreateSessionCommand struct {
	Caller          string
	DurationSeconds uint64
	TopicLabels     []string
	Title           string
}

// CreateSessionResult returns the stored session and the event announcing it.
type CreateSessionResult struct {
	Session entities.Session
	Event   entities.SessionCreated
}

// SessionUseCase creates sessions. Only the owner may create.
type SessionUseCase struct {
	Sessions ports.SessionRepository
	Owners   ports.OwnerReader
	Clock    ports.Clock
	Logger   *slog.Logger
}

func (uc SessionUseCase) CreateSession(ctx context.Context, cmd CreateSessionCommand) (CreateSessionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	guard := accesscontrol.Guard{Owners: uc.Owners, Logger: uc.Logger}
	if err := guard.RequireOwner(ctx, cmd.Caller); err != nil {
		return CreateSessionResult{}, err
	}
	if cmd.DurationSeconds == 0 ||
		cmd.DurationSeconds > uint64(MaxSessionDuration/time.Second) ||
		len(cmd.TopicLabels) == 0 {
		logger.Warn("session create validation failed",
			"event", "voting_session_create_validation_failed",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", cmd.Caller,
			"duration_seconds", cmd.DurationSeconds,
			"topic_count", len(cmd.TopicLabels),
		)
		return CreateSessionResult{}, domainerrors.ErrInvalidArgument
	}

	now := uc.Clock.Now().UTC()
	sessionID, err := uc.Sessions.NextSessionID(ctx)
	if err != nil {
		return CreateSessionResult{}, err
	}
	topics := make([]storagelayout.TopicRecord, 0, len(cmd.TopicLabels))
	for _, label := range cmd.TopicLabels {
		topics = append(topics, storagelayout.TopicRecord{Label: label})
	}
	record := storagelayout.SessionRecord{
		SessionID: sessionID,
		Creator:   cmd.Caller,
		Title:     cmd.Title,
		EndTime:   now.Add(time.Duration(cmd.DurationSeconds) * time.Second),
		Topics:    topics,
	}
	if err := uc.Sessions.InsertSession(ctx, record); err != nil {
		return CreateSessionResult{}, err
	}

	logger.Info("session created",
		"event", "voting_session_created",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", strconv.FormatUint(sessionID, 10),
		"creator", cmd.Caller,
		"topic_count", len(topics),
		"end_time", record.EndTime,
	)
	return CreateSessionResult{
		Session: entities.SessionFromRecord(record, now),
		Event: entities.SessionCreated{
			SessionID: sessionID,
			Creator:   record.Creator,
			Title:     record.Title,
			EndTime:   record.EndTime,
		},
	}, nil
}
