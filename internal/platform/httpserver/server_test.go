package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	upgradeproxy "ballotproxy/contexts/governance/upgrade-proxy"
	"ballotproxy/contexts/governance/upgrade-proxy/adapters/memory"
	votingengine "ballotproxy/contexts/governance/voting-engine"
	"ballotproxy/contexts/governance/voting-engine/logic"
	votinghttp "ballotproxy/contexts/governance/voting-engine/transport/http"
	"ballotproxy/internal/platform/messaging"
	"ballotproxy/internal/platform/metrics"

	"github.com/neilotoole/slogt"
)

const testOwner = "0xowner"

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	logger := slogt.New(t)
	registry := memory.NewRegistry()
	votingengine.RegisterImplementations(registry, logger)

	bus, err := messaging.NewKafka(nil, logger)
	if err != nil {
		t.Fatalf("event bus: %v", err)
	}
	proxyModule, err := upgradeproxy.NewInMemoryModule(context.Background(), registry, bus, testOwner, logic.V1Address, logger)
	if err != nil {
		t.Fatalf("deploy proxy: %v", err)
	}
	votingModule := votingengine.NewModule(votingengine.Dependencies{
		Proxy:  proxyModule.Proxy,
		Logger: logger,
	})
	return New(proxyModule, votingModule, metrics.NewProxy().Handler(), logger, ":0"), proxyModule.Store
}

func doRequest(server *Server, method string, path string, caller string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-Caller-Id", caller)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp votinghttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v body=%s", err, rr.Body.String())
	}
	return resp.Code
}

func createSession(t *testing.T, server *Server) votinghttp.CreateSessionResponse {
	t.Helper()
	rr := doRequest(server, http.MethodPost, "/v1/sessions", testOwner, votinghttp.CreateSessionRequest{
		DurationSeconds: 3600,
		Topics:          []string{"Topic 1", "Topic 2", "Topic 3"},
		Title:           "Board election",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp votinghttp.CreateSessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp
}

func TestDispatchingRoutesRequireCaller(t *testing.T) {
	server, _ := newTestServer(t)
	rr := doRequest(server, http.MethodPost, "/v1/sessions", "", votinghttp.CreateSessionRequest{
		DurationSeconds: 60,
		Topics:          []string{"a", "b"},
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := errorCode(t, rr); code != "missing_caller" {
		t.Fatalf("expected missing_caller, got %s", code)
	}
}

func TestReadRoutesAcceptAnonymousCaller(t *testing.T) {
	server, _ := newTestServer(t)
	createSession(t, server)
	rr := doRequest(server, http.MethodPost, "/v1/sessions/1/votes", "0xvoter1", votinghttp.VoteRequest{TopicIndex: 2})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected vote 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	for _, path := range []string{
		"/v1/sessions/1",
		"/v1/sessions/1/topics/2",
		"/v1/sessions/1/total-votes",
	} {
		rr := doRequest(server, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d body=%s", path, rr.Code, rr.Body.String())
		}
	}

	var total votinghttp.TotalVotesResponse
	rr = doRequest(server, http.MethodGet, "/v1/sessions/1/total-votes", "", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &total); err != nil {
		t.Fatalf("decode total votes: %v", err)
	}
	if total.TotalVotes != 1 {
		t.Fatalf("expected 1 vote, got %d", total.TotalVotes)
	}

	rr = doRequest(server, http.MethodGet, "/v1/sessions/1/winner", "", nil)
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "session_still_open" {
		t.Fatalf("expected session_still_open conflict, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodGet, "/v1/sessions/count", "", nil)
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "unknown_method" {
		t.Fatalf("expected unknown_method before upgrade, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateSessionIsOwnerOnly(t *testing.T) {
	server, _ := newTestServer(t)
	rr := doRequest(server, http.MethodPost, "/v1/sessions", "0xvoter1", votinghttp.CreateSessionRequest{
		DurationSeconds: 60,
		Topics:          []string{"a", "b"},
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestVotingLifecycleOverHTTP(t *testing.T) {
	server, store := newTestServer(t)
	created := createSession(t, server)
	if created.SessionID != 1 {
		t.Fatalf("expected first session id 1, got %d", created.SessionID)
	}
	votes := "/v1/sessions/1/votes"

	for _, voter := range []string{"0xvoter1", "0xvoter2"} {
		rr := doRequest(server, http.MethodPost, votes, voter, votinghttp.VoteRequest{TopicIndex: 0})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d body=%s", voter, rr.Code, rr.Body.String())
		}
	}
	rr := doRequest(server, http.MethodPost, votes, testOwner, votinghttp.VoteRequest{TopicIndex: 1})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodPost, votes, "0xVOTER1", votinghttp.VoteRequest{TopicIndex: 2})
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "duplicate_vote" {
		t.Fatalf("expected duplicate_vote conflict, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodGet, "/v1/sessions/1/winner", "0xvoter1", nil)
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "session_still_open" {
		t.Fatalf("expected session_still_open conflict, got %d body=%s", rr.Code, rr.Body.String())
	}

	store.Advance(3601 * time.Second)

	rr = doRequest(server, http.MethodPost, votes, "0xvoter3", votinghttp.VoteRequest{TopicIndex: 0})
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "session_closed" {
		t.Fatalf("expected session_closed conflict, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodGet, "/v1/sessions/1/winner", "0xvoter1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var winner votinghttp.WinnerResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &winner); err != nil {
		t.Fatalf("decode winner: %v", err)
	}
	if winner.Label != "Topic 1" || winner.VoteCount != 2 {
		t.Fatalf("unexpected winner %+v", winner)
	}

	rr = doRequest(server, http.MethodGet, "/v1/sessions/1/total-votes", "0xvoter1", nil)
	var total votinghttp.TotalVotesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &total); err != nil {
		t.Fatalf("decode total: %v", err)
	}
	if total.TotalVotes != 3 {
		t.Fatalf("expected 3 votes, got %d", total.TotalVotes)
	}

	rr = doRequest(server, http.MethodGet, "/v1/sessions/1/topics/1", "0xvoter1", nil)
	var topic votinghttp.TopicResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &topic); err != nil {
		t.Fatalf("decode topic: %v", err)
	}
	if topic.Label != "Topic 2" || topic.VoteCount != 1 {
		t.Fatalf("unexpected topic %+v", topic)
	}
}

func TestSessionLookupErrors(t *testing.T) {
	server, _ := newTestServer(t)
	createSession(t, server)

	rr := doRequest(server, http.MethodGet, "/v1/sessions/abc", "0xvoter1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodGet, "/v1/sessions/42", "0xvoter1", nil)
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "unknown_session" {
		t.Fatalf("expected unknown_session, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodGet, "/v1/sessions/1/topics/9", "0xvoter1", nil)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "invalid_topic" {
		t.Fatalf("expected invalid_topic, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestUpgradeExposesNewMethods(t *testing.T) {
	server, _ := newTestServer(t)
	createSession(t, server)

	rr := doRequest(server, http.MethodGet, "/v1/sessions/count", "0xvoter1", nil)
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "unknown_method" {
		t.Fatalf("expected unknown_method before upgrade, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodPut, "/v1/proxy/implementation", "0xvoter1", map[string]string{"address": logic.V2Address})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner upgrade, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodPut, "/v1/proxy/implementation", testOwner, map[string]string{"address": "0xdead"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown implementation, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodPut, "/v1/proxy/implementation", testOwner, map[string]string{"address": logic.V2Address})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for upgrade, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodGet, "/v1/proxy/implementation", "", nil)
	if !strings.Contains(rr.Body.String(), logic.V2Address) {
		t.Fatalf("expected implementation %s, got %s", logic.V2Address, rr.Body.String())
	}

	rr = doRequest(server, http.MethodGet, "/v1/sessions/count", "0xvoter1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 after upgrade, got %d body=%s", rr.Code, rr.Body.String())
	}
	var count votinghttp.SessionCountResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &count); err != nil {
		t.Fatalf("decode count: %v", err)
	}
	if count.Count != 1 {
		t.Fatalf("expected session created under v1 to survive the upgrade, got %d", count.Count)
	}
}

func TestOwnershipTransferOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	rr := doRequest(server, http.MethodPost, "/v1/proxy/owner/transfer", testOwner, map[string]string{"new_owner": "0xnext"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodGet, "/v1/proxy/owner", "", nil)
	if !strings.Contains(rr.Body.String(), "0xnext") {
		t.Fatalf("expected new owner, got %s", rr.Body.String())
	}
	rr = doRequest(server, http.MethodPost, "/v1/proxy/owner/transfer", testOwner, map[string]string{"new_owner": testOwner})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for previous owner, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRawCallRoute(t *testing.T) {
	server, _ := newTestServer(t)
	rr := doRequest(server, http.MethodPost, "/v1/proxy/calls", "0xvoter1", map[string]any{"method": "layoutVersion"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodPost, "/v1/proxy/calls", "0xvoter1", map[string]any{"method": "selfDestruct"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown method, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	server, _ := newTestServer(t)
	createSession(t, server)
	rr := doRequest(server, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
