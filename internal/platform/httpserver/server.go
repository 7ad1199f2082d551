package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	upgradeproxy "ballotproxy/contexts/governance/upgrade-proxy"
	proxydomainerrors "ballotproxy/contexts/governance/upgrade-proxy/domain/errors"
	proxyhttp "ballotproxy/contexts/governance/upgrade-proxy/transport/http"
	votingengine "ballotproxy/contexts/governance/voting-engine"
	votingdomainerrors "ballotproxy/contexts/governance/voting-engine/domain/errors"
	votinghttp "ballotproxy/contexts/governance/voting-engine/transport/http"
	accesserrors "ballotproxy/contexts/identity-access/access-control/domain/errors"

	_ "ballotproxy/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

const callerHeader = "X-Caller-Id"

type Server struct {
	mux     *http.ServeMux
	srv     *http.Server
	logger  *slog.Logger
	addr    string
	proxy   upgradeproxy.Module
	voting  votingengine.Module
	metrics http.Handler
}

func New(
	proxyModule upgradeproxy.Module,
	votingModule votingengine.Module,
	metricsHandler http.Handler,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		proxy:   proxyModule,
		voting:  votingModule,
		metrics: metricsHandler,
	}
	s.registerRoutes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}

	s.mux.HandleFunc("POST /v1/proxy/calls", s.handleProxyCall)
	s.mux.HandleFunc("GET /v1/proxy/owner", s.handleGetOwner)
	s.mux.HandleFunc("POST /v1/proxy/owner/transfer", s.handleTransferOwnership)
	s.mux.HandleFunc("GET /v1/proxy/implementation", s.handleGetImplementation)
	s.mux.HandleFunc("PUT /v1/proxy/implementation", s.handleSetImplementation)
	s.mux.HandleFunc("GET /v1/proxy/layout-version", s.handleGetLayoutVersion)

	s.mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /v1/sessions/count", s.handleSessionCount)
	s.mux.HandleFunc("GET /v1/sessions/{session_id}", s.handleGetSession)
	s.mux.HandleFunc("POST /v1/sessions/{session_id}/votes", s.handleVote)
	s.mux.HandleFunc("GET /v1/sessions/{session_id}/topics/{topic_index}", s.handleGetTopic)
	s.mux.HandleFunc("GET /v1/sessions/{session_id}/winner", s.handleWinner)
	s.mux.HandleFunc("GET /v1/sessions/{session_id}/total-votes", s.handleTotalVotes)
	s.mux.HandleFunc("GET /v1/sessions/{session_id}/voters/{voter}", s.handleHasVoted)
}

func (s *Server) handleProxyCall(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req proxyhttp.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProxyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Method) == "" {
		writeProxyError(w, http.StatusBadRequest, "invalid_request", "method is required")
		return
	}
	resp, err := s.proxy.Handler.CallHandler(r.Context(), caller, req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.proxy.Handler.OwnerHandler(r.Context())
	if err != nil {
		writeProxyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req proxyhttp.TransferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProxyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.proxy.Handler.TransferOwnershipHandler(r.Context(), caller, req)
	if err != nil {
		writeProxyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetImplementation(w http.ResponseWriter, r *http.Request) {
	resp, err := s.proxy.Handler.ImplementationHandler(r.Context())
	if err != nil {
		writeProxyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLayoutVersion(w http.ResponseWriter, r *http.Request) {
	resp, err := s.proxy.Handler.LayoutVersionHandler(r.Context())
	if err != nil {
		writeProxyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetImplementation(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req proxyhttp.SetImplementationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProxyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.proxy.Handler.SetImplementationHandler(r.Context(), caller, req)
	if err != nil {
		writeProxyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req votinghttp.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.CreateSessionHandler(r.Context(), caller, req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	var req votinghttp.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.SessionID = sessionID
	resp, err := s.voting.Handler.VoteHandler(r.Context(), caller, req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	caller := callerOf(r)
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.voting.Handler.GetSessionHandler(r.Context(), caller, sessionID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	caller := callerOf(r)
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	topicIndex, ok := pathUint(w, r, "topic_index")
	if !ok {
		return
	}
	resp, err := s.voting.Handler.GetTopicHandler(r.Context(), caller, sessionID, topicIndex)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWinner(w http.ResponseWriter, r *http.Request) {
	caller := callerOf(r)
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.voting.Handler.WinnerHandler(r.Context(), caller, sessionID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTotalVotes(w http.ResponseWriter, r *http.Request) {
	caller := callerOf(r)
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.voting.Handler.TotalVotesHandler(r.Context(), caller, sessionID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionCount(w http.ResponseWriter, r *http.Request) {
	caller := callerOf(r)
	resp, err := s.voting.Handler.SessionCountHandler(r.Context(), caller)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	caller := callerOf(r)
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.voting.Handler.HasVotedHandler(r.Context(), caller, sessionID, r.PathValue("voter"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// callerOf returns the caller identity, which read routes do not require.
func callerOf(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(callerHeader))
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := callerOf(r)
	if caller == "" {
		writeProxyError(w, http.StatusUnauthorized, "missing_caller", callerHeader+" header is required")
		return "", false
	}
	return caller, true
}

func pathUint(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	value, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
		return 0, false
	}
	return value, true
}

// writeVotingDomainError maps errors raised by the voting implementation and
// falls back to the proxy mapping, since every voting call is dispatched.
func writeVotingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, votingdomainerrors.ErrUnknownSession):
		writeVotingError(w, http.StatusNotFound, "unknown_session", err.Error())
	case errors.Is(err, votingdomainerrors.ErrUnknownMethod):
		writeVotingError(w, http.StatusNotFound, "unknown_method", err.Error())
	case errors.Is(err, votingdomainerrors.ErrInvalidTopic):
		writeVotingError(w, http.StatusBadRequest, "invalid_topic", err.Error())
	case errors.Is(err, votingdomainerrors.ErrInvalidArgument),
		errors.Is(err, votingdomainerrors.ErrInvalidCallArgs):
		writeVotingError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, votingdomainerrors.ErrSessionClosed):
		writeVotingError(w, http.StatusConflict, "session_closed", err.Error())
	case errors.Is(err, votingdomainerrors.ErrSessionStillOpen):
		writeVotingError(w, http.StatusConflict, "session_still_open", err.Error())
	case errors.Is(err, votingdomainerrors.ErrDuplicateVote):
		writeVotingError(w, http.StatusConflict, "duplicate_vote", err.Error())
	default:
		writeProxyDomainError(w, err)
	}
}

func writeProxyDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accesserrors.ErrUnauthorized):
		writeProxyError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, accesserrors.ErrInvalidOwner),
		errors.Is(err, proxydomainerrors.ErrInvalidImplementation),
		errors.Is(err, proxydomainerrors.ErrInvalidCallArgs):
		writeProxyError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, proxydomainerrors.ErrIncompatibleLayout):
		writeProxyError(w, http.StatusUnprocessableEntity, "incompatible_layout", err.Error())
	case errors.Is(err, proxydomainerrors.ErrReentrantCall):
		writeProxyError(w, http.StatusConflict, "reentrant_call", err.Error())
	case errors.Is(err, accesserrors.ErrOwnerNotSet),
		errors.Is(err, proxydomainerrors.ErrNotDeployed):
		writeProxyError(w, http.StatusServiceUnavailable, "not_deployed", err.Error())
	default:
		writeProxyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeProxyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, proxyhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
