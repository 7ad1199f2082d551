package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ballotproxy/contexts/governance/upgrade-proxy/ports"
	"ballotproxy/internal/shared/outbox"
	"ballotproxy/internal/shared/storagelayout"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message outbox.Message
	seq     int
}

type state struct {
	implementation string
	owner          string
	layoutVersion  int

	lastSessionID uint64
	sessions      map[uint64]storagelayout.SessionRecord
	voters        map[uint64]map[string]struct{}

	outbox    map[string]outboxRecord
	outboxSeq int
}

func newState() *state {
	return &state{
		sessions: make(map[uint64]storagelayout.SessionRecord),
		voters:   make(map[uint64]map[string]struct{}),
		outbox:   make(map[string]outboxRecord),
	}
}

func (s *state) clone() *state {
	out := &state{
		implementation: s.implementation,
		owner:          s.owner,
		layoutVersion:  s.layoutVersion,
		lastSessionID:  s.lastSessionID,
		sessions:       make(map[uint64]storagelayout.SessionRecord, len(s.sessions)),
		voters:         make(map[uint64]map[string]struct{}, len(s.voters)),
		outbox:         make(map[string]outboxRecord, len(s.outbox)),
		outboxSeq:      s.outboxSeq,
	}
	for id, session := range s.sessions {
		out.sessions[id] = session.Clone()
	}
	for id, voters := range s.voters {
		copied := make(map[string]struct{}, len(voters))
		for voter := range voters {
			copied[voter] = struct{}{}
		}
		out.voters[id] = copied
	}
	for id, row := range s.outbox {
		out.outbox[id] = row
	}
	return out
}

// Store keeps the whole proxy storage in memory. A transaction works on a
// copy of the state that replaces the live state only when it commits.
type Store struct {
	mu    sync.RWMutex
	state *state
	now   time.Time
}

func NewStore() *Store {
	return &Store{
		state: newState(),
		now:   time.Now().UTC(),
	}
}

func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx storagelayout.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(ctx, tx{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]outbox.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.state.outbox))
	for _, row := range s.state.outbox {
		if !row.message.Pending() {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq < rows[j].seq
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]outbox.Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(outboxID)
	row, ok := s.state.outbox[key]
	if !ok {
		return outbox.ErrMessageNotFound
	}
	at := publishedAt.UTC()
	row.message.PublishedAt = &at
	s.state.outbox[key] = row
	return nil
}

// Now implements ports.Clock. Tests move it with SetNow and Advance.
func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now
}

func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now.UTC()
}

func (s *Store) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

type tx struct {
	state *state
}

func (t tx) Slots() storagelayout.SlotStore       { return slotStore{state: t.state} }
func (t tx) Sessions() storagelayout.SessionStore { return sessionStore{state: t.state} }
func (t tx) Outbox() storagelayout.OutboxWriter   { return outboxWriter{state: t.state} }

type slotStore struct {
	state *state
}

func (s slotStore) Implementation(_ context.Context) (string, bool, error) {
	return s.state.implementation, s.state.implementation != "", nil
}

func (s slotStore) SetImplementation(_ context.Context, address string) error {
	s.state.implementation = address
	return nil
}

func (s slotStore) Owner(_ context.Context) (string, bool, error) {
	return s.state.owner, s.state.owner != "", nil
}

func (s slotStore) SetOwner(_ context.Context, owner string) error {
	s.state.owner = owner
	return nil
}

func (s slotStore) LayoutVersion(_ context.Context) (int, bool, error) {
	return s.state.layoutVersion, s.state.layoutVersion != 0, nil
}

func (s slotStore) SetLayoutVersion(_ context.Context, version int) error {
	s.state.layoutVersion = version
	return nil
}

type sessionStore struct {
	state *state
}

func (s sessionStore) NextSessionID(_ context.Context) (uint64, error) {
	s.state.lastSessionID++
	return s.state.lastSessionID, nil
}

func (s sessionStore) InsertSession(_ context.Context, session storagelayout.SessionRecord) error {
	s.state.sessions[session.SessionID] = session.Clone()
	return nil
}

func (s sessionStore) GetSession(_ context.Context, sessionID uint64) (storagelayout.SessionRecord, bool, error) {
	session, ok := s.state.sessions[sessionID]
	if !ok {
		return storagelayout.SessionRecord{}, false, nil
	}
	return session.Clone(), true, nil
}

func (s sessionStore) SessionCount(_ context.Context) (uint64, error) {
	return uint64(len(s.state.sessions)), nil
}

func (s sessionStore) HasVoted(_ context.Context, sessionID uint64, voter string) (bool, error) {
	_, ok := s.state.voters[sessionID][storagelayout.VoterKey(voter)]
	return ok, nil
}

func (s sessionStore) RecordVote(_ context.Context, sessionID uint64, topicIndex int, voter string) error {
	session, ok := s.state.sessions[sessionID]
	if !ok {
		return storagelayout.ErrSessionNotFound
	}
	if topicIndex < 0 || topicIndex >= len(session.Topics) {
		return storagelayout.ErrTopicOutOfRange
	}
	key := storagelayout.VoterKey(voter)
	if _, voted := s.state.voters[sessionID][key]; voted {
		return storagelayout.ErrVoterRecordExists
	}
	session = session.Clone()
	session.Topics[topicIndex].VoteCount++
	session.TotalVotes++
	s.state.sessions[sessionID] = session
	if s.state.voters[sessionID] == nil {
		s.state.voters[sessionID] = make(map[string]struct{})
	}
	s.state.voters[sessionID][key] = struct{}{}
	return nil
}

type outboxWriter struct {
	state *state
}

func (w outboxWriter) AppendOutbox(_ context.Context, message outbox.Message) error {
	key := strings.TrimSpace(message.OutboxID)
	if _, exists := w.state.outbox[key]; exists {
		return outbox.ErrDuplicateMessage
	}
	w.state.outboxSeq++
	w.state.outbox[key] = outboxRecord{message: message, seq: w.state.outboxSeq}
	return nil
}

var (
	_ ports.StateStore  = (*Store)(nil)
	_ ports.Clock       = (*Store)(nil)
	_ ports.IDGenerator = (*Store)(nil)
	_ storagelayout.Tx  = tx{}
)
