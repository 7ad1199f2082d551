// Package logic holds the voting-engine logic providers installed behind the
// upgrade proxy. Each provider is a method table over the application use
// cases; storage comes from the call frame, never from the provider itself.
package logic

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"ballotproxy/contexts/governance/voting-engine/application/commands"
	"ballotproxy/contexts/governance/voting-engine/application/queries"
	"ballotproxy/contexts/governance/voting-engine/domain/entities"
	domainerrors "ballotproxy/contexts/governance/voting-engine/domain/errors"
	httptransport "ballotproxy/contexts/governance/voting-engine/transport/http"
	"ballotproxy/internal/shared/dispatch"
	"ballotproxy/internal/shared/storagelayout"
)

// Deployment addresses of the providers shipped with this module.
const (
	V1Address = "0x00000000000000000000000000000000000b0a71"
	V2Address = "0x00000000000000000000000000000000000b0a72"
)

const (
	MethodCreateSession = "createSession"
	MethodVote          = "vote"
	MethodGetSession    = "getSession"
	MethodGetTopic      = "getTopic"
	MethodWinner        = "winner"
	MethodTotalVotes    = "totalVotes"
	MethodSessionCount  = "sessionCount"
	MethodHasVoted      = "hasVoted"
)

type handlerFunc func(ctx context.Context, env callEnv, call dispatch.Call) (dispatch.Result, error)

// Implementation is one version of the voting engine.
type Implementation struct {
	name     string
	handlers map[string]handlerFunc
	logger   *slog.Logger
}

// NewV1 returns the initial voting engine.
func NewV1(logger *slog.Logger) *Implementation {
	return &Implementation{
		name:     "voting-engine/v1",
		handlers: v1Handlers(),
		logger:   logger,
	}
}

// NewV2 returns V1 plus session counting and voter lookups. It reads the same
// layout version, so sessions written by V1 stay valid.
func NewV2(logger *slog.Logger) *Implementation {
	handlers := v1Handlers()
	handlers[MethodSessionCount] = sessionCount
	handlers[MethodHasVoted] = hasVoted
	return &Implementation{
		name:     "voting-engine/v2",
		handlers: handlers,
		logger:   logger,
	}
}

func v1Handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		MethodCreateSession: createSession,
		MethodVote:          vote,
		MethodGetSession:    getSession,
		MethodGetTopic:      getTopic,
		MethodWinner:        winner,
		MethodTotalVotes:    totalVotes,
	}
}

// Name identifies the version in logs.
func (i *Implementation) Name() string {
	return i.name
}

func (i *Implementation) LayoutVersion() int {
	return storagelayout.Version
}

// Methods lists the method names this version answers, sorted.
func (i *Implementation) Methods() []string {
	names := make([]string, 0, len(i.handlers))
	for name := range i.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs one call against frame.Storage. It performs no outbound calls,
// so nothing can re-enter the proxy while a call body is running.
func (i *Implementation) Invoke(ctx context.Context, frame dispatch.Frame, call dispatch.Call) (dispatch.Result, error) {
	handler, ok := i.handlers[call.Method]
	if !ok {
		return dispatch.Result{}, domainerrors.ErrUnknownMethod
	}
	logger := frame.Logger
	if logger == nil {
		logger = i.logger
	}
	return handler(ctx, callEnv{
		storage: frame.Storage,
		clock:   frameClock{now: frame.Now},
		logger:  logger,
	}, call)
}

type callEnv struct {
	storage storagelayout.View
	clock   frameClock
	logger  *slog.Logger
}

func (e callEnv) queries() queries.SessionQueries {
	return queries.SessionQueries{Sessions: e.storage.Sessions(), Clock: e.clock}
}

type frameClock struct {
	now time.Time
}

func (c frameClock) Now() time.Time {
	return c.now
}

func createSession(ctx context.Context, env callEnv, call dispatch.Call) (dispatch.Result, error) {
	args, err := decodeArgs[httptransport.CreateSessionRequest](call)
	if err != nil {
		return dispatch.Result{}, err
	}
	uc := commands.SessionUseCase{
		Sessions: env.storage.Sessions(),
		Owners:   env.storage,
		Clock:    env.clock,
		Logger:   env.logger,
	}
	created, err := uc.CreateSession(ctx, commands.CreateSessionCommand{
		Caller:          call.Caller,
		DurationSeconds: args.DurationSeconds,
		TopicLabels:     args.Topics,
		Title:           args.Title,
	})
	if err != nil {
		return dispatch.Result{}, err
	}
	return encodeResult(httptransport.CreateSessionResponse{
		SessionID: created.Session.SessionID,
		EndTime:   created.Session.EndTime,
	}, dispatch.Event{
		Type:       entities.EventTypeSessionCreated,
		EntityType: "voting_session",
		EntityID:   strconv.FormatUint(created.Event.SessionID, 10),
		Payload:    created.Event,
	})
}

func vote(ctx context.Context, env callEnv, call dispatch.Call) (dispatch.Result, error) {
	args, err := decodeArgs[httptransport.VoteRequest](call)
	if err != nil {
		return dispatch.Result{}, err
	}
	uc := commands.VoteUseCase{
		Sessions: env.storage.Sessions(),
		Clock:    env.clock,
		Logger:   env.logger,
	}
	if err := uc.CastVote(ctx, commands.CastVoteCommand{
		SessionID:  args.SessionID,
		TopicIndex: args.TopicIndex,
		Voter:      call.Caller,
	}); err != nil {
		return dispatch.Result{}, err
	}
	return encodeResult(httptransport.VoteResponse{
		SessionID:  args.SessionID,
		TopicIndex: args.TopicIndex,
		Voter:      call.Caller,
	})
}

func getSession(ctx context.Context, env callEnv, call dispatch.Call) (dispatch.Result, error) {
	args, err := decodeArgs[httptransport.SessionRequest](call)
	if err != nil {
		return dispatch.Result{}, err
	}
	session, err := env.queries().GetSession(ctx, args.SessionID)
	if err != nil {
		return dispatch.Result{}, err
	}
	return encodeResult(MapSession(session))
}

func getTopic(ctx context.Context, env callEnv, call dispatch.Call) (dispatch.Result, error) {
	args, err := decodeArgs[httptransport.TopicRequest](call)
	if err != nil {
		return dispatch.Result{}, err
	}
	topic, err := env.queries().GetTopic(ctx, args.SessionID, args.TopicIndex)
	if err != nil {
		return dispatch.Result{}, err
	}
	return encodeResult(mapTopic(topic))
}

func winner(ctx context.Context, env callEnv, call dispatch.Call) (dispatch.Result, error) {
	args, err := decodeArgs[httptransport.SessionRequest](call)
	if err != nil {
		return dispatch.Result{}, err
	}
	topic, err := env.queries().Winner(ctx, args.SessionID)
	if err != nil {
		return dispatch.Result{}, err
	}
	return encodeResult(httptransport.WinnerResponse{
		SessionID:  args.SessionID,
		TopicIndex: topic.Index,
		Label:      topic.Label,
		VoteCount:  topic.VoteCount,
	})
}

func totalVotes(ctx context.Context, env callEnv, call dispatch.Call) (dispatch.Result, error) {
	args, err := decodeArgs[httptransport.SessionRequest](call)
	if err != nil {
		return dispatch.Result{}, err
	}
	total, err := env.queries().TotalVotes(ctx, args.SessionID)
	if err != nil {
		return dispatch.Result{}, err
	}
	return encodeResult(httptransport.TotalVotesResponse{
		SessionID:  args.SessionID,
		TotalVotes: total,
	})
}

func sessionCount(ctx context.Context, env callEnv, _ dispatch.Call) (dispatch.Result, error) {
	count, err := env.queries().SessionCount(ctx)
	if err != nil {
		return dispatch.Result{}, err
	}
	return encodeResult(httptransport.SessionCountResponse{Count: count})
}

func hasVoted(ctx context.Context, env callEnv, call dispatch.Call) (dispatch.Result, error) {
	args, err := decodeArgs[httptransport.HasVotedRequest](call)
	if err != nil {
		return dispatch.Result{}, err
	}
	voted, err := env.queries().HasVoted(ctx, args.SessionID, args.Voter)
	if err != nil {
		return dispatch.Result{}, err
	}
	return encodeResult(httptransport.HasVotedResponse{
		SessionID: args.SessionID,
		Voter:     args.Voter,
		Voted:     voted,
	})
}

// MapSession converts the read model into its return document.
func MapSession(session entities.Session) httptransport.SessionResponse {
	topics := make([]httptransport.TopicResponse, 0, len(session.Topics))
	for _, topic := range session.Topics {
		topics = append(topics, mapTopic(topic))
	}
	return httptransport.SessionResponse{
		SessionID:  session.SessionID,
		Creator:    session.Creator,
		Title:      session.Title,
		EndTime:    session.EndTime,
		IsActive:   session.Active,
		Topics:     topics,
		TotalVotes: session.TotalVotes,
	}
}

func mapTopic(topic entities.Topic) httptransport.TopicResponse {
	return httptransport.TopicResponse{
		Index:     topic.Index,
		Label:     topic.Label,
		VoteCount: topic.VoteCount,
	}
}

func decodeArgs[T any](call dispatch.Call) (T, error) {
	var out T
	if len(bytes.TrimSpace(call.Args)) == 0 {
		return out, domainerrors.ErrInvalidCallArgs
	}
	decoder := json.NewDecoder(bytes.NewReader(call.Args))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&out); err != nil {
		return out, domainerrors.ErrInvalidCallArgs
	}
	return out, nil
}

func encodeResult(value any, events ...dispatch.Event) (dispatch.Result, error) {
	payload, err := dispatch.Encode(value)
	if err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.Result{Return: payload, Events: events}, nil
}

var (
	_ dispatch.Logic     = (*Implementation)(nil)
	_ dispatch.Describer = (*Implementation)(nil)
)
