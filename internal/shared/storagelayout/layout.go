// Package storagelayout is the storage contract shared by the upgrade proxy and
// every voting-engine implementation the proxy forwards to.
//
// Storage is split in two regions. Proxy slots (implementation pointer, owner,
// layout version) are reachable only through Tx.Slots. Implementation code is
// handed a View, which exposes the session region and a read-only owner
// lookup, so an implementation cannot address a proxy slot at all.
//
// Any change to the records or interfaces below that old data cannot satisfy
// requires a new Version. The proxy refuses implementations whose declared
// version differs from the version recorded in storage.
package storagelayout

import (
	"context"
	"errors"
	"strings"
	"time"

	"ballotproxy/internal/shared/outbox"
)

// Version is the layout version written at deployment.
const Version = 1

var (
	ErrSessionNotFound   = errors.New("storage: session not found")
	ErrTopicOutOfRange   = errors.New("storage: topic index out of range")
	ErrVoterRecordExists = errors.New("storage: voter record already exists")
)

// TopicRecord is one option of a session, stored in topic index order.
type TopicRecord struct {
	Label     string
	VoteCount uint64
}

// SessionRecord is the persisted form of a voting session. The active flag is
// not part of the layout; it is derived from EndTime on every read.
type SessionRecord struct {
	SessionID  uint64
	Creator    string
	Title      string
	EndTime    time.Time
	Topics     []TopicRecord
	TotalVotes uint64
}

// Clone returns a copy that shares no memory with r.
func (r SessionRecord) Clone() SessionRecord {
	out := r
	out.Topics = append([]TopicRecord(nil), r.Topics...)
	return out
}

// SessionStore is the implementation-owned region.
type SessionStore interface {
	// NextSessionID allocates a session identifier. Identifiers start at 1.
	NextSessionID(ctx context.Context) (uint64, error)
	InsertSession(ctx context.Context, session SessionRecord) error
	GetSession(ctx context.Context, sessionID uint64) (SessionRecord, bool, error)
	SessionCount(ctx context.Context) (uint64, error)
	HasVoted(ctx context.Context, sessionID uint64, voter string) (bool, error)
	// RecordVote increments the topic count and the session total and writes
	// the voter record, all or nothing.
	RecordVote(ctx context.Context, sessionID uint64, topicIndex int, voter string) error
}

// VoterKey is the form under which voter records are keyed. Identities compare
// case-insensitively, so every adapter must key on this value.
func VoterKey(voter string) string {
	return strings.ToLower(strings.TrimSpace(voter))
}

// SlotStore is the proxy-owned region.
type SlotStore interface {
	Implementation(ctx context.Context) (string, bool, error)
	SetImplementation(ctx context.Context, address string) error
	Owner(ctx context.Context) (string, bool, error)
	SetOwner(ctx context.Context, owner string) error
	LayoutVersion(ctx context.Context) (int, bool, error)
	SetLayoutVersion(ctx context.Context, version int) error
}

// OutboxWriter appends event rows inside the running transaction.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, message outbox.Message) error
}

// Tx is one atomic unit of work over the whole proxy storage.
type Tx interface {
	Slots() SlotStore
	Sessions() SessionStore
	Outbox() OutboxWriter
}

// Store runs fn atomically. When fn returns an error every write made through
// tx is discarded.
type Store interface {
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// View is the storage handed to implementation code.
type View interface {
	Sessions() SessionStore
	Owner(ctx context.Context) (string, bool, error)
}

// ImplementationView narrows tx to what implementation code may touch.
func ImplementationView(tx Tx) View {
	return implementationView{tx: tx}
}

type implementationView struct {
	tx Tx
}

func (v implementationView) Sessions() SessionStore {
	return v.tx.Sessions()
}

func (v implementationView) Owner(ctx context.Context) (string, bool, error) {
	return v.tx.Slots().Owner(ctx)
}
