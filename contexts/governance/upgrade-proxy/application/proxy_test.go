package application_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"ballotproxy/contexts/governance/upgrade-proxy/adapters/memory"
	application "ballotproxy/contexts/governance/upgrade-proxy/application"
	"ballotproxy/contexts/governance/upgrade-proxy/domain/entities"
	domainerrors "ballotproxy/contexts/governance/upgrade-proxy/domain/errors"
	votingentities "ballotproxy/contexts/governance/voting-engine/domain/entities"
	votingerrors "ballotproxy/contexts/governance/voting-engine/domain/errors"
	votingservices "ballotproxy/contexts/governance/voting-engine/domain/services"
	votinglogic "ballotproxy/contexts/governance/voting-engine/logic"
	votinghttp "ballotproxy/contexts/governance/voting-engine/transport/http"
	accesserrors "ballotproxy/contexts/identity-access/access-control/domain/errors"
	"ballotproxy/internal/shared/dispatch"
	"ballotproxy/internal/shared/storagelayout"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner  = "0xowner"
	voter1 = "0xvoter1"
	voter2 = "0xvoter2"
)

var start = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	proxy    *application.Proxy
	store    *memory.Store
	registry *memory.Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := slogt.New(t)
	store := memory.NewStore()
	store.SetNow(start)
	registry := memory.NewRegistry()
	registry.Register(votinglogic.V1Address, votinglogic.NewV1(logger))
	registry.Register(votinglogic.V2Address, votinglogic.NewV2(logger))

	proxy, err := application.Deploy(context.Background(), application.Dependencies{
		Store:    store,
		Registry: registry,
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	}, owner, votinglogic.V1Address)
	require.NoError(t, err)
	return fixture{proxy: proxy, store: store, registry: registry}
}

func (f fixture) call(t *testing.T, caller string, method string, args any) (dispatch.Receipt, error) {
	t.Helper()
	payload, err := dispatch.Encode(args)
	require.NoError(t, err)
	return f.proxy.Dispatch(context.Background(), dispatch.Call{Caller: caller, Method: method, Args: payload})
}

func (f fixture) mustCall(t *testing.T, caller string, method string, args any, out any) dispatch.Receipt {
	t.Helper()
	receipt, err := f.call(t, caller, method, args)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(receipt.Return, out))
	}
	return receipt
}

func (f fixture) createSession(t *testing.T, seconds uint64, topics ...string) uint64 {
	t.Helper()
	var created votinghttp.CreateSessionResponse
	f.mustCall(t, owner, votinglogic.MethodCreateSession, votinghttp.CreateSessionRequest{
		DurationSeconds: seconds,
		Topics:          topics,
		Title:           "T",
	}, &created)
	return created.SessionID
}

func (f fixture) vote(t *testing.T, voter string, sessionID uint64, topic uint64) error {
	t.Helper()
	_, err := f.call(t, voter, votinglogic.MethodVote, votinghttp.VoteRequest{SessionID: sessionID, TopicIndex: topic})
	return err
}

// sessionView is everything a reader can observe about one session.
type sessionView struct {
	Session votinghttp.SessionResponse
	Topics  []votinghttp.TopicResponse
	Total   votinghttp.TotalVotesResponse
}

func (f fixture) view(t *testing.T, sessionID uint64) sessionView {
	t.Helper()
	var v sessionView
	f.mustCall(t, voter1, votinglogic.MethodGetSession, votinghttp.SessionRequest{SessionID: sessionID}, &v.Session)
	for i := range v.Session.Topics {
		var topic votinghttp.TopicResponse
		f.mustCall(t, voter1, votinglogic.MethodGetTopic, votinghttp.TopicRequest{SessionID: sessionID, TopicIndex: uint64(i)}, &topic)
		v.Topics = append(v.Topics, topic)
	}
	f.mustCall(t, voter1, votinglogic.MethodTotalVotes, votinghttp.SessionRequest{SessionID: sessionID}, &v.Total)
	return v
}

func topicSum(topics []votinghttp.TopicResponse) uint64 {
	counted := make([]votingentities.Topic, 0, len(topics))
	for _, topic := range topics {
		counted = append(counted, votingentities.Topic{Index: topic.Index, Label: topic.Label, VoteCount: topic.VoteCount})
	}
	return votingservices.SumVotes(counted)
}

func TestDeployRecordsOwnerAndImplementation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.proxy.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	impl, err := f.proxy.Implementation(ctx)
	require.NoError(t, err)
	assert.Equal(t, votinglogic.V1Address, impl)

	version, err := f.proxy.LayoutVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, storagelayout.Version, version)

	pending, err := f.store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entities.EventTypeDeployed, pending[0].EventType)
}

func TestDeployRejectsConfiguredStorage(t *testing.T) {
	f := newFixture(t)
	_, err := application.Deploy(context.Background(), application.Dependencies{
		Store:    f.store,
		Registry: f.registry,
		Clock:    f.store,
		IDGen:    f.store,
	}, owner, votinglogic.V1Address)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyDeployed)
}

func TestDeployRejectsUnknownImplementation(t *testing.T) {
	store := memory.NewStore()
	deps := application.Dependencies{Store: store, Registry: memory.NewRegistry(), Clock: store, IDGen: store}

	_, err := application.Deploy(context.Background(), deps, owner, entities.ZeroAddress.String())
	assert.ErrorIs(t, err, domainerrors.ErrInvalidImplementation)
	_, err = application.Deploy(context.Background(), deps, owner, votinglogic.V1Address)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidImplementation)
}

func TestAttach(t *testing.T) {
	f := newFixture(t)
	deps := application.Dependencies{Store: f.store, Registry: f.registry, Clock: f.store, IDGen: f.store}

	attached, err := application.Attach(context.Background(), deps)
	require.NoError(t, err)
	got, err := attached.Owner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	empty := memory.NewStore()
	_, err = application.Attach(context.Background(), application.Dependencies{
		Store: empty, Registry: f.registry, Clock: empty, IDGen: empty,
	})
	assert.ErrorIs(t, err, domainerrors.ErrNotDeployed)
}

func TestEndToEndVotingThroughProxy(t *testing.T) {
	f := newFixture(t)
	sessionID := f.createSession(t, 3600, "Topic 1", "Topic 2", "Topic 3")
	assert.Equal(t, uint64(1), sessionID)

	require.NoError(t, f.vote(t, voter1, sessionID, 0))
	require.NoError(t, f.vote(t, voter2, sessionID, 0))
	require.NoError(t, f.vote(t, owner, sessionID, 1))

	var session votinghttp.SessionResponse
	f.mustCall(t, voter1, votinglogic.MethodGetSession, votinghttp.SessionRequest{SessionID: sessionID}, &session)
	assert.True(t, session.IsActive)
	assert.Equal(t, owner, session.Creator)
	assert.Equal(t, uint64(3), session.TotalVotes)
	assert.True(t, start.Add(time.Hour).Equal(session.EndTime))

	_, err := f.call(t, voter1, votinglogic.MethodWinner, votinghttp.SessionRequest{SessionID: sessionID})
	assert.ErrorIs(t, err, votingerrors.ErrSessionStillOpen)

	f.store.Advance(3601 * time.Second)

	var winner votinghttp.WinnerResponse
	f.mustCall(t, voter1, votinglogic.MethodWinner, votinghttp.SessionRequest{SessionID: sessionID}, &winner)
	assert.Equal(t, 0, winner.TopicIndex)
	assert.Equal(t, "Topic 1", winner.Label)
	assert.Equal(t, uint64(2), winner.VoteCount)

	var total votinghttp.TotalVotesResponse
	f.mustCall(t, voter1, votinglogic.MethodTotalVotes, votinghttp.SessionRequest{SessionID: sessionID}, &total)
	assert.Equal(t, uint64(3), total.TotalVotes)

	f.mustCall(t, voter1, votinglogic.MethodGetSession, votinghttp.SessionRequest{SessionID: sessionID}, &session)
	assert.False(t, session.IsActive)
}

func TestVoteRejections(t *testing.T) {
	f := newFixture(t)
	sessionID := f.createSession(t, 60, "a", "b")

	assert.ErrorIs(t, f.vote(t, voter1, sessionID+1, 0), votingerrors.ErrUnknownSession)
	assert.ErrorIs(t, f.vote(t, voter1, sessionID, 2), votingerrors.ErrInvalidTopic)

	require.NoError(t, f.vote(t, voter1, sessionID, 0))
	assert.ErrorIs(t, f.vote(t, voter1, sessionID, 1), votingerrors.ErrDuplicateVote)
	assert.ErrorIs(t, f.vote(t, "0xVOTER1", sessionID, 1), votingerrors.ErrDuplicateVote)

	f.store.Advance(60 * time.Second)
	assert.ErrorIs(t, f.vote(t, voter2, sessionID, 0), votingerrors.ErrSessionClosed)

	var total votinghttp.TotalVotesResponse
	f.mustCall(t, voter1, votinglogic.MethodTotalVotes, votinghttp.SessionRequest{SessionID: sessionID}, &total)
	assert.Equal(t, uint64(1), total.TotalVotes)
}

func TestTotalVotesMatchesTopicCounts(t *testing.T) {
	f := newFixture(t)
	busy := f.createSession(t, 120, "a", "b", "c")
	quiet := f.createSession(t, 60, "x", "y")

	require.NoError(t, f.vote(t, voter1, busy, 0))
	require.NoError(t, f.vote(t, voter2, busy, 2))
	require.NoError(t, f.vote(t, owner, busy, 2))
	require.NoError(t, f.vote(t, voter1, quiet, 1))
	assert.ErrorIs(t, f.vote(t, voter1, busy, 1), votingerrors.ErrDuplicateVote)
	assert.ErrorIs(t, f.vote(t, "0xVOTER2", busy, 0), votingerrors.ErrDuplicateVote)
	assert.ErrorIs(t, f.vote(t, "0xv3", busy, 3), votingerrors.ErrInvalidTopic)

	f.store.Advance(60 * time.Second)
	assert.ErrorIs(t, f.vote(t, voter2, quiet, 0), votingerrors.ErrSessionClosed)
	require.NoError(t, f.vote(t, "0xv3", busy, 1))

	f.store.Advance(60 * time.Second)
	assert.ErrorIs(t, f.vote(t, "0xv4", busy, 0), votingerrors.ErrSessionClosed)

	for sessionID, want := range map[uint64]uint64{busy: 4, quiet: 1} {
		v := f.view(t, sessionID)
		assert.Equal(t, want, v.Total.TotalVotes)
		assert.Equal(t, v.Total.TotalVotes, topicSum(v.Topics))
		assert.Equal(t, v.Total.TotalVotes, v.Session.TotalVotes)
	}
}

func TestWinnerTieGoesToLowestIndex(t *testing.T) {
	f := newFixture(t)
	sessionID := f.createSession(t, 10, "x", "y", "z")
	for i, choice := range []uint64{0, 1, 0, 1, 2} {
		require.NoError(t, f.vote(t, "0xv"+string(rune('a'+i)), sessionID, choice))
	}
	f.store.Advance(10 * time.Second)

	var winner votinghttp.WinnerResponse
	f.mustCall(t, voter1, votinglogic.MethodWinner, votinghttp.SessionRequest{SessionID: sessionID}, &winner)
	assert.Equal(t, 0, winner.TopicIndex)
	assert.Equal(t, uint64(2), winner.VoteCount)
}

func TestOnlyOwnerCreatesSessions(t *testing.T) {
	f := newFixture(t)
	_, err := f.call(t, voter1, votinglogic.MethodCreateSession, votinghttp.CreateSessionRequest{
		DurationSeconds: 60,
		Topics:          []string{"a"},
	})
	assert.ErrorIs(t, err, accesserrors.ErrUnauthorized)

	_, err = f.call(t, owner, votinglogic.MethodCreateSession, votinghttp.CreateSessionRequest{
		DurationSeconds: 0,
		Topics:          []string{"a"},
	})
	assert.ErrorIs(t, err, votingerrors.ErrInvalidArgument)
}

func TestUpgradePreservesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.createSession(t, 3600, "a", "b")
	closed := f.createSession(t, 30, "x", "y", "z")
	require.NoError(t, f.vote(t, voter1, open, 1))
	require.NoError(t, f.vote(t, voter2, open, 1))
	require.NoError(t, f.vote(t, voter1, closed, 2))
	f.store.Advance(30 * time.Second)

	_, err := f.call(t, voter1, votinglogic.MethodSessionCount, nil)
	assert.ErrorIs(t, err, votingerrors.ErrUnknownMethod)

	before := map[uint64]sessionView{open: f.view(t, open), closed: f.view(t, closed)}

	receipt, err := f.proxy.SetImplementation(ctx, owner, votinglogic.V2Address)
	require.NoError(t, err)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, entities.EventTypeImplementationUpgraded, receipt.Events[0].EventType)

	impl, err := f.proxy.Implementation(ctx)
	require.NoError(t, err)
	assert.Equal(t, votinglogic.V2Address, impl)

	for sessionID, want := range before {
		assert.Equal(t, want, f.view(t, sessionID))
	}
	assert.Equal(t, uint64(2), before[open].Session.Topics[1].VoteCount)
	assert.False(t, before[closed].Session.IsActive)

	var count votinghttp.SessionCountResponse
	f.mustCall(t, voter1, votinglogic.MethodSessionCount, nil, &count)
	assert.Equal(t, uint64(2), count.Count)

	var voted votinghttp.HasVotedResponse
	f.mustCall(t, voter2, votinglogic.MethodHasVoted, votinghttp.HasVotedRequest{SessionID: open, Voter: voter1}, &voted)
	assert.True(t, voted.Voted)

	assert.ErrorIs(t, f.vote(t, voter1, open, 0), votingerrors.ErrDuplicateVote)
	assert.Equal(t, uint64(3), f.createSession(t, 60, "c"))
}

func TestSetImplementationRequiresOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.proxy.SetImplementation(ctx, voter1, votinglogic.V2Address)
	assert.ErrorIs(t, err, accesserrors.ErrUnauthorized)
	_, err = f.proxy.SetImplementation(ctx, voter1, entities.ZeroAddress.String())
	assert.ErrorIs(t, err, accesserrors.ErrUnauthorized)

	_, err = f.proxy.SetImplementation(ctx, owner, entities.ZeroAddress.String())
	assert.ErrorIs(t, err, domainerrors.ErrInvalidImplementation)
	_, err = f.proxy.SetImplementation(ctx, owner, "0x00000000000000000000000000000000deadbeef")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidImplementation)

	f.registry.Register("0xv9", layoutLogic{version: storagelayout.Version + 1})
	_, err = f.proxy.SetImplementation(ctx, owner, "0xv9")
	assert.ErrorIs(t, err, domainerrors.ErrIncompatibleLayout)

	impl, err := f.proxy.Implementation(ctx)
	require.NoError(t, err)
	assert.Equal(t, votinglogic.V1Address, impl)
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.proxy.TransferOwnership(ctx, voter1, voter1)
	assert.ErrorIs(t, err, accesserrors.ErrUnauthorized)

	receipt, err := f.proxy.TransferOwnership(ctx, owner, voter1)
	require.NoError(t, err)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, entities.EventTypeOwnershipTransferred, receipt.Events[0].EventType)

	_, err = f.proxy.SetImplementation(ctx, owner, votinglogic.V2Address)
	assert.ErrorIs(t, err, accesserrors.ErrUnauthorized)
	_, err = f.proxy.SetImplementation(ctx, voter1, votinglogic.V2Address)
	require.NoError(t, err)
}

func TestFailedCallLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registry.Register("0xfaulty", faultyLogic{})
	_, err := f.proxy.SetImplementation(ctx, owner, "0xfaulty")
	require.NoError(t, err)

	before, err := f.store.ListPendingOutbox(ctx, 100)
	require.NoError(t, err)

	_, err = f.proxy.Dispatch(ctx, dispatch.Call{Caller: owner, Method: "anything"})
	assert.Same(t, errFaulty, err)

	_, err = f.proxy.SetImplementation(ctx, owner, votinglogic.V2Address)
	require.NoError(t, err)
	var count votinghttp.SessionCountResponse
	f.mustCall(t, owner, votinglogic.MethodSessionCount, nil, &count)
	assert.Equal(t, uint64(0), count.Count)

	after, err := f.store.ListPendingOutbox(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
}

func TestReentrantCallIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reentrant := &reentrantLogic{}
	f.registry.Register("0xreentrant", reentrant)
	_, err := f.proxy.SetImplementation(ctx, owner, "0xreentrant")
	require.NoError(t, err)
	reentrant.proxy = f.proxy

	_, err = f.proxy.Dispatch(ctx, dispatch.Call{Caller: owner, Method: "loop"})
	assert.ErrorIs(t, err, domainerrors.ErrReentrantCall)
}

func TestImplementationCannotReachProxySlots(t *testing.T) {
	var view storagelayout.View = storagelayout.ImplementationView(nil)
	_, isTx := view.(storagelayout.Tx)
	assert.False(t, isTx)
	_, isSlots := view.(storagelayout.SlotStore)
	assert.False(t, isSlots)
}

type layoutLogic struct {
	version int
}

func (l layoutLogic) LayoutVersion() int { return l.version }

func (layoutLogic) Invoke(context.Context, dispatch.Frame, dispatch.Call) (dispatch.Result, error) {
	return dispatch.Result{}, nil
}

var errFaulty = errors.New("faulty: custom revert reason")

// faultyLogic writes a session and an event, then fails.
type faultyLogic struct{}

func (faultyLogic) LayoutVersion() int { return storagelayout.Version }

func (faultyLogic) Invoke(ctx context.Context, frame dispatch.Frame, _ dispatch.Call) (dispatch.Result, error) {
	sessions := frame.Storage.Sessions()
	id, err := sessions.NextSessionID(ctx)
	if err != nil {
		return dispatch.Result{}, err
	}
	if err := sessions.InsertSession(ctx, storagelayout.SessionRecord{
		SessionID: id,
		EndTime:   frame.Now.Add(time.Hour),
		Topics:    []storagelayout.TopicRecord{{Label: "x"}},
	}); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.Result{}, errFaulty
}

type reentrantLogic struct {
	proxy *application.Proxy
}

func (*reentrantLogic) LayoutVersion() int { return storagelayout.Version }

func (l *reentrantLogic) Invoke(ctx context.Context, _ dispatch.Frame, call dispatch.Call) (dispatch.Result, error) {
	_, err := l.proxy.Dispatch(ctx, call)
	return dispatch.Result{}, err
}

func TestLifecycleLogsNameTheImplementation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	store := memory.NewStore()
	registry := memory.NewRegistry()
	registry.Register(votinglogic.V1Address, votinglogic.NewV1(logger))
	registry.Register(votinglogic.V2Address, votinglogic.NewV2(logger))
	deps := application.Dependencies{Store: store, Registry: registry, Clock: store, IDGen: store, Logger: logger}
	ctx := context.Background()

	proxy, err := application.Deploy(ctx, deps, owner, votinglogic.V1Address)
	require.NoError(t, err)
	_, err = proxy.SetImplementation(ctx, owner, votinglogic.V2Address)
	require.NoError(t, err)
	_, err = application.Attach(ctx, deps)
	require.NoError(t, err)

	entries := map[string]map[string]any{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if name, ok := entry["event"].(string); ok {
			entries[name] = entry
		}
	}

	require.Contains(t, entries, "proxy_deployed")
	assert.Equal(t, "voting-engine/v1", entries["proxy_deployed"]["implementation_name"])
	assert.NotContains(t, entries["proxy_deployed"]["methods"], votinglogic.MethodHasVoted)

	for _, event := range []string{"proxy_implementation_upgraded", "proxy_attached"} {
		require.Contains(t, entries, event)
		assert.Equal(t, "voting-engine/v2", entries[event]["implementation_name"])
		assert.Contains(t, entries[event]["methods"], votinglogic.MethodHasVoted)
	}
}
