package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"ballotproxy/contexts/governance/voting-engine/application"
	"ballotproxy/contexts/governance/voting-engine/logic"
	"ballotproxy/contexts/governance/voting-engine/ports"
	httptransport "ballotproxy/contexts/governance/voting-engine/transport/http"
	"ballotproxy/internal/shared/dispatch"
)

// Handler exposes voting operations over HTTP. Every operation goes through
// the proxy, so the routes keep working across upgrades.
type Handler struct {
	Proxy  ports.Dispatcher
	Logger *slog.Logger
}

// CreateSessionHandler godoc
// @Summary Create a voting session
// @Description Opens a session with a fixed deadline. Only the proxy owner may create sessions.
// @Tags voting-engine
// @Accept json
// @Produce json
// @Param X-Caller-Id header string true "Caller identity"
// @Param request body httptransport.CreateSessionRequest true "Session definition"
// @Success 201 {object} httptransport.CreateSessionResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Router /v1/sessions [post]
func (h Handler) CreateSessionHandler(
	ctx context.Context,
	caller string,
	req httptransport.CreateSessionRequest,
) (httptransport.CreateSessionResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	resp, err := call[httptransport.CreateSessionResponse](ctx, h.Proxy, caller, logic.MethodCreateSession, req)
	if err != nil {
		logger.Warn("create session request rejected",
			"event", "http_create_session_rejected",
			"module", "governance/voting-engine",
			"layer", "transport",
			"caller", caller,
			"error", err.Error(),
		)
		return httptransport.CreateSessionResponse{}, err
	}
	return resp, nil
}

// VoteHandler godoc
// @Summary Cast a vote
// @Tags voting-engine
// @Accept json
// @Produce json
// @Param X-Caller-Id header string true "Caller identity"
// @Param session_id path int true "Session id"
// @Param request body httptransport.VoteRequest true "Topic choice"
// @Success 200 {object} httptransport.VoteResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/sessions/{session_id}/votes [post]
func (h Handler) VoteHandler(
	ctx context.Context,
	caller string,
	req httptransport.VoteRequest,
) (httptransport.VoteResponse, error) {
	return call[httptransport.VoteResponse](ctx, h.Proxy, caller, logic.MethodVote, req)
}

// GetSessionHandler godoc
// @Summary Get session details
// @Tags voting-engine
// @Produce json
// @Param X-Caller-Id header string false "Caller identity"
// @Param session_id path int true "Session id"
// @Success 200 {object} httptransport.SessionResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/sessions/{session_id} [get]
func (h Handler) GetSessionHandler(ctx context.Context, caller string, sessionID uint64) (httptransport.SessionResponse, error) {
	return call[httptransport.SessionResponse](ctx, h.Proxy, caller, logic.MethodGetSession,
		httptransport.SessionRequest{SessionID: sessionID})
}

// GetTopicHandler godoc
// @Summary Get one topic of a session
// @Tags voting-engine
// @Produce json
// @Param X-Caller-Id header string false "Caller identity"
// @Param session_id path int true "Session id"
// @Param topic_index path int true "Topic index"
// @Success 200 {object} httptransport.TopicResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/sessions/{session_id}/topics/{topic_index} [get]
func (h Handler) GetTopicHandler(
	ctx context.Context,
	caller string,
	sessionID uint64,
	topicIndex uint64,
) (httptransport.TopicResponse, error) {
	return call[httptransport.TopicResponse](ctx, h.Proxy, caller, logic.MethodGetTopic,
		httptransport.TopicRequest{SessionID: sessionID, TopicIndex: topicIndex})
}

// WinnerHandler godoc
// @Summary Get the winning topic of a closed session
// @Tags voting-engine
// @Produce json
// @Param X-Caller-Id header string false "Caller identity"
// @Param session_id path int true "Session id"
// @Success 200 {object} httptransport.WinnerResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/sessions/{session_id}/winner [get]
func (h Handler) WinnerHandler(ctx context.Context, caller string, sessionID uint64) (httptransport.WinnerResponse, error) {
	return call[httptransport.WinnerResponse](ctx, h.Proxy, caller, logic.MethodWinner,
		httptransport.SessionRequest{SessionID: sessionID})
}

// TotalVotesHandler godoc
// @Summary Get the number of votes cast in a session
// @Tags voting-engine
// @Produce json
// @Param X-Caller-Id header string false "Caller identity"
// @Param session_id path int true "Session id"
// @Success 200 {object} httptransport.TotalVotesResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/sessions/{session_id}/total-votes [get]
func (h Handler) TotalVotesHandler(ctx context.Context, caller string, sessionID uint64) (httptransport.TotalVotesResponse, error) {
	return call[httptransport.TotalVotesResponse](ctx, h.Proxy, caller, logic.MethodTotalVotes,
		httptransport.SessionRequest{SessionID: sessionID})
}

// SessionCountHandler godoc
// @Summary Count created sessions
// @Description Available from implementation version 2.
// @Tags voting-engine
// @Produce json
// @Param X-Caller-Id header string false "Caller identity"
// @Success 200 {object} httptransport.SessionCountResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/sessions/count [get]
func (h Handler) SessionCountHandler(ctx context.Context, caller string) (httptransport.SessionCountResponse, error) {
	return call[httptransport.SessionCountResponse](ctx, h.Proxy, caller, logic.MethodSessionCount, struct{}{})
}

// HasVotedHandler godoc
// @Summary Check whether a voter took part in a session
// @Description Available from implementation version 2.
// @Tags voting-engine
// @Produce json
// @Param X-Caller-Id header string false "Caller identity"
// @Param session_id path int true "Session id"
// @Param voter path string true "Voter identity"
// @Success 200 {object} httptransport.HasVotedResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/sessions/{session_id}/voters/{voter} [get]
func (h Handler) HasVotedHandler(
	ctx context.Context,
	caller string,
	sessionID uint64,
	voter string,
) (httptransport.HasVotedResponse, error) {
	return call[httptransport.HasVotedResponse](ctx, h.Proxy, caller, logic.MethodHasVoted,
		httptransport.HasVotedRequest{SessionID: sessionID, Voter: voter})
}

func call[T any](ctx context.Context, proxy ports.Dispatcher, caller string, method string, args any) (T, error) {
	var out T
	payload, err := dispatch.Encode(args)
	if err != nil {
		return out, err
	}
	receipt, err := proxy.Dispatch(ctx, dispatch.Call{Caller: caller, Method: method, Args: payload})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(receipt.Return, &out); err != nil {
		return out, err
	}
	return out, nil
}
