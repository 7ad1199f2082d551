// Package sqlite persists the proxy storage in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ballotproxy/contexts/governance/upgrade-proxy/adapters/sqlite/migrations"
	"ballotproxy/contexts/governance/upgrade-proxy/ports"
	"ballotproxy/internal/platform/storage/sqlitemigrate"
	"ballotproxy/internal/shared/outbox"
	"ballotproxy/internal/shared/storagelayout"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const (
	slotImplementation = "implementation"
	slotOwner          = "owner"
	slotLayoutVersion  = "layout_version"

	sequenceSession = "session_id"
)

// Store persists proxy slots, sessions and the outbox in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx storagelayout.Tx) error) error {
	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(ctx, tx{sqlTx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT outbox_id, event_type, partition_key, payload, created_at
		   FROM proxy_outbox
		  WHERE published_at IS NULL
		  ORDER BY seq
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	defer rows.Close()

	var items []outbox.Message
	for rows.Next() {
		var (
			message   outbox.Message
			createdAt int64
		)
		if err := rows.Scan(&message.OutboxID, &message.EventType, &message.PartitionKey, &message.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		message.CreatedAt = fromMillis(createdAt)
		items = append(items, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE proxy_outbox SET published_at = ? WHERE outbox_id = ?`,
		toMillis(publishedAt),
		strings.TrimSpace(outboxID),
	)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	if affected == 0 {
		return outbox.ErrMessageNotFound
	}
	return nil
}

type tx struct {
	sqlTx *sql.Tx
}

func (t tx) Slots() storagelayout.SlotStore       { return slotStore(t) }
func (t tx) Sessions() storagelayout.SessionStore { return sessionStore(t) }
func (t tx) Outbox() storagelayout.OutboxWriter   { return outboxWriter(t) }

type slotStore struct {
	sqlTx *sql.Tx
}

func (s slotStore) get(ctx context.Context, slot string) (string, bool, error) {
	var value string
	err := s.sqlTx.QueryRowContext(ctx, `SELECT value FROM proxy_slots WHERE slot = ?`, slot).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read slot %s: %w", slot, err)
	}
	return value, true, nil
}

func (s slotStore) set(ctx context.Context, slot string, value string) error {
	if _, err := s.sqlTx.ExecContext(ctx,
		`INSERT INTO proxy_slots (slot, value) VALUES (?, ?)
		 ON CONFLICT(slot) DO UPDATE SET value = excluded.value`,
		slot,
		value,
	); err != nil {
		return fmt.Errorf("write slot %s: %w", slot, err)
	}
	return nil
}

func (s slotStore) Implementation(ctx context.Context) (string, bool, error) {
	return s.get(ctx, slotImplementation)
}

func (s slotStore) SetImplementation(ctx context.Context, address string) error {
	return s.set(ctx, slotImplementation, address)
}

func (s slotStore) Owner(ctx context.Context) (string, bool, error) {
	return s.get(ctx, slotOwner)
}

func (s slotStore) SetOwner(ctx context.Context, owner string) error {
	return s.set(ctx, slotOwner, owner)
}

func (s slotStore) LayoutVersion(ctx context.Context) (int, bool, error) {
	raw, found, err := s.get(ctx, slotLayoutVersion)
	if err != nil || !found {
		return 0, found, err
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse layout version %q: %w", raw, err)
	}
	return version, true, nil
}

func (s slotStore) SetLayoutVersion(ctx context.Context, version int) error {
	return s.set(ctx, slotLayoutVersion, strconv.Itoa(version))
}

type sessionStore struct {
	sqlTx *sql.Tx
}

func (s sessionStore) NextSessionID(ctx context.Context) (uint64, error) {
	var next int64
	err := s.sqlTx.QueryRowContext(ctx,
		`INSERT INTO voting_sequences (name, value) VALUES (?, 1)
		 ON CONFLICT(name) DO UPDATE SET value = value + 1
		 RETURNING value`,
		sequenceSession,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate session id: %w", err)
	}
	return uint64(next), nil
}

func (s sessionStore) InsertSession(ctx context.Context, session storagelayout.SessionRecord) error {
	if _, err := s.sqlTx.ExecContext(ctx,
		`INSERT INTO voting_sessions (session_id, creator, title, end_time, total_votes)
		 VALUES (?, ?, ?, ?, ?)`,
		int64(session.SessionID),
		session.Creator,
		session.Title,
		toMillis(session.EndTime),
		int64(session.TotalVotes),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	for index, topic := range session.Topics {
		if _, err := s.sqlTx.ExecContext(ctx,
			`INSERT INTO voting_topics (session_id, topic_index, label, vote_count) VALUES (?, ?, ?, ?)`,
			int64(session.SessionID),
			index,
			topic.Label,
			int64(topic.VoteCount),
		); err != nil {
			return fmt.Errorf("insert topic %d: %w", index, err)
		}
	}
	return nil
}

func (s sessionStore) GetSession(ctx context.Context, sessionID uint64) (storagelayout.SessionRecord, bool, error) {
	var (
		record     storagelayout.SessionRecord
		endTime    int64
		totalVotes int64
	)
	err := s.sqlTx.QueryRowContext(ctx,
		`SELECT creator, title, end_time, total_votes FROM voting_sessions WHERE session_id = ?`,
		int64(sessionID),
	).Scan(&record.Creator, &record.Title, &endTime, &totalVotes)
	if errors.Is(err, sql.ErrNoRows) {
		return storagelayout.SessionRecord{}, false, nil
	}
	if err != nil {
		return storagelayout.SessionRecord{}, false, fmt.Errorf("get session: %w", err)
	}
	record.SessionID = sessionID
	record.EndTime = fromMillis(endTime)
	record.TotalVotes = uint64(totalVotes)

	rows, err := s.sqlTx.QueryContext(ctx,
		`SELECT label, vote_count FROM voting_topics WHERE session_id = ? ORDER BY topic_index`,
		int64(sessionID),
	)
	if err != nil {
		return storagelayout.SessionRecord{}, false, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			topic storagelayout.TopicRecord
			count int64
		)
		if err := rows.Scan(&topic.Label, &count); err != nil {
			return storagelayout.SessionRecord{}, false, fmt.Errorf("scan topic: %w", err)
		}
		topic.VoteCount = uint64(count)
		record.Topics = append(record.Topics, topic)
	}
	if err := rows.Err(); err != nil {
		return storagelayout.SessionRecord{}, false, fmt.Errorf("list topics: %w", err)
	}
	return record, true, nil
}

func (s sessionStore) SessionCount(ctx context.Context) (uint64, error) {
	var count int64
	if err := s.sqlTx.QueryRowContext(ctx, `SELECT COUNT(*) FROM voting_sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return uint64(count), nil
}

func (s sessionStore) HasVoted(ctx context.Context, sessionID uint64, voter string) (bool, error) {
	var found int
	err := s.sqlTx.QueryRowContext(ctx,
		`SELECT 1 FROM voter_records WHERE session_id = ? AND voter_key = ?`,
		int64(sessionID),
		storagelayout.VoterKey(voter),
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read voter record: %w", err)
	}
	return true, nil
}

func (s sessionStore) RecordVote(ctx context.Context, sessionID uint64, topicIndex int, voter string) error {
	var topics int64
	if err := s.sqlTx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM voting_topics WHERE session_id = ?`,
		int64(sessionID),
	).Scan(&topics); err != nil {
		return fmt.Errorf("count topics: %w", err)
	}
	if topics == 0 {
		return storagelayout.ErrSessionNotFound
	}
	if topicIndex < 0 || int64(topicIndex) >= topics {
		return storagelayout.ErrTopicOutOfRange
	}

	if _, err := s.sqlTx.ExecContext(ctx,
		`INSERT INTO voter_records (session_id, voter_key, topic_index) VALUES (?, ?, ?)`,
		int64(sessionID),
		storagelayout.VoterKey(voter),
		topicIndex,
	); err != nil {
		if isUniqueViolation(err) {
			return storagelayout.ErrVoterRecordExists
		}
		return fmt.Errorf("insert voter record: %w", err)
	}
	if _, err := s.sqlTx.ExecContext(ctx,
		`UPDATE voting_topics SET vote_count = vote_count + 1 WHERE session_id = ? AND topic_index = ?`,
		int64(sessionID),
		topicIndex,
	); err != nil {
		return fmt.Errorf("increment topic: %w", err)
	}
	if _, err := s.sqlTx.ExecContext(ctx,
		`UPDATE voting_sessions SET total_votes = total_votes + 1 WHERE session_id = ?`,
		int64(sessionID),
	); err != nil {
		return fmt.Errorf("increment total: %w", err)
	}
	return nil
}

type outboxWriter struct {
	sqlTx *sql.Tx
}

func (w outboxWriter) AppendOutbox(ctx context.Context, message outbox.Message) error {
	if _, err := w.sqlTx.ExecContext(ctx,
		`INSERT INTO proxy_outbox (outbox_id, event_type, partition_key, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		strings.TrimSpace(message.OutboxID),
		message.EventType,
		message.PartitionKey,
		message.Payload,
		toMillis(message.CreatedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return outbox.ErrDuplicateMessage
		}
		return fmt.Errorf("append outbox: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var (
	_ ports.StateStore = (*Store)(nil)
	_ storagelayout.Tx = tx{}
)
