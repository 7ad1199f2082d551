package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"ballotproxy/contexts/governance/upgrade-proxy/ports"
	"ballotproxy/internal/shared/outbox"
	"ballotproxy/internal/shared/storagelayout"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	slotImplementation = "implementation"
	slotOwner          = "owner"
	slotLayoutVersion  = "layout_version"

	sequenceSession = "session_id"
)

// Repository keeps the proxy storage in Postgres. Every Atomically call is one
// database transaction.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the proxy tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&proxySlotModel{},
		&votingSequenceModel{},
		&votingSessionModel{},
		&votingTopicModel{},
		&voterRecordModel{},
		&outboxModel{},
	); err != nil {
		return r.logError("proxy_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) Atomically(ctx context.Context, fn func(ctx context.Context, tx storagelayout.Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, txView{db: gtx, repo: r})
	})
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("proxy_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]outbox.Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, outbox.Message{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Update("published_at", publishedAt.UTC())
	if result.Error != nil {
		return r.logError("proxy_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return outbox.ErrMessageNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/upgrade-proxy",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("proxy repository operation failed", fields...)
	return err
}

type txView struct {
	db   *gorm.DB
	repo *Repository
}

func (t txView) Slots() storagelayout.SlotStore       { return slotStore(t) }
func (t txView) Sessions() storagelayout.SessionStore { return sessionStore(t) }
func (t txView) Outbox() storagelayout.OutboxWriter   { return outboxWriter(t) }

type slotStore struct {
	db   *gorm.DB
	repo *Repository
}

func (s slotStore) get(slot string) (string, bool, error) {
	var row proxySlotModel
	err := s.db.Where("slot = ?", slot).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.repo.logError("proxy_repo_read_slot_failed", err, "slot", slot)
	}
	return row.Value, true, nil
}

func (s slotStore) set(slot string, value string) error {
	row := proxySlotModel{Slot: slot, Value: value}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error; err != nil {
		return s.repo.logError("proxy_repo_write_slot_failed", err, "slot", slot)
	}
	return nil
}

func (s slotStore) Implementation(_ context.Context) (string, bool, error) {
	return s.get(slotImplementation)
}

func (s slotStore) SetImplementation(_ context.Context, address string) error {
	return s.set(slotImplementation, address)
}

func (s slotStore) Owner(_ context.Context) (string, bool, error) {
	return s.get(slotOwner)
}

func (s slotStore) SetOwner(_ context.Context, owner string) error {
	return s.set(slotOwner, owner)
}

func (s slotStore) LayoutVersion(_ context.Context) (int, bool, error) {
	raw, found, err := s.get(slotLayoutVersion)
	if err != nil || !found {
		return 0, found, err
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, s.repo.logError("proxy_repo_parse_layout_version_failed", err, "value", raw)
	}
	return version, true, nil
}

func (s slotStore) SetLayoutVersion(_ context.Context, version int) error {
	return s.set(slotLayoutVersion, strconv.Itoa(version))
}

type sessionStore struct {
	db   *gorm.DB
	repo *Repository
}

func (s sessionStore) NextSessionID(_ context.Context) (uint64, error) {
	var next int64
	err := s.db.Raw(
		`INSERT INTO voting_sequences (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = voting_sequences.value + 1
		 RETURNING value`,
		sequenceSession,
	).Scan(&next).Error
	if err != nil {
		return 0, s.repo.logError("proxy_repo_next_session_id_failed", err)
	}
	return uint64(next), nil
}

func (s sessionStore) InsertSession(_ context.Context, session storagelayout.SessionRecord) error {
	row := votingSessionModel{
		SessionID:  int64(session.SessionID),
		Creator:    session.Creator,
		Title:      session.Title,
		EndTime:    session.EndTime.UTC(),
		TotalVotes: int64(session.TotalVotes),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return s.repo.logError("proxy_repo_insert_session_failed", err,
			"session_id", strconv.FormatUint(session.SessionID, 10),
		)
	}
	if len(session.Topics) == 0 {
		return nil
	}
	topics := make([]votingTopicModel, 0, len(session.Topics))
	for index, topic := range session.Topics {
		topics = append(topics, votingTopicModel{
			SessionID:  int64(session.SessionID),
			TopicIndex: index,
			Label:      topic.Label,
			VoteCount:  int64(topic.VoteCount),
		})
	}
	if err := s.db.Create(&topics).Error; err != nil {
		return s.repo.logError("proxy_repo_insert_topics_failed", err,
			"session_id", strconv.FormatUint(session.SessionID, 10),
		)
	}
	return nil
}

func (s sessionStore) GetSession(_ context.Context, sessionID uint64) (storagelayout.SessionRecord, bool, error) {
	var row votingSessionModel
	err := s.db.Where("session_id = ?", int64(sessionID)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storagelayout.SessionRecord{}, false, nil
	}
	if err != nil {
		return storagelayout.SessionRecord{}, false, s.repo.logError("proxy_repo_get_session_failed", err,
			"session_id", strconv.FormatUint(sessionID, 10),
		)
	}
	var topics []votingTopicModel
	if err := s.db.
		Where("session_id = ?", int64(sessionID)).
		Order("topic_index ASC").
		Find(&topics).Error; err != nil {
		return storagelayout.SessionRecord{}, false, s.repo.logError("proxy_repo_list_topics_failed", err,
			"session_id", strconv.FormatUint(sessionID, 10),
		)
	}
	return row.toRecord(topics), true, nil
}

func (s sessionStore) SessionCount(_ context.Context) (uint64, error) {
	var count int64
	if err := s.db.Model(&votingSessionModel{}).Count(&count).Error; err != nil {
		return 0, s.repo.logError("proxy_repo_count_sessions_failed", err)
	}
	return uint64(count), nil
}

func (s sessionStore) HasVoted(_ context.Context, sessionID uint64, voter string) (bool, error) {
	var count int64
	if err := s.db.Model(&voterRecordModel{}).
		Where("session_id = ? AND voter_key = ?", int64(sessionID), storagelayout.VoterKey(voter)).
		Count(&count).Error; err != nil {
		return false, s.repo.logError("proxy_repo_has_voted_failed", err,
			"session_id", strconv.FormatUint(sessionID, 10),
		)
	}
	return count > 0, nil
}

func (s sessionStore) RecordVote(ctx context.Context, sessionID uint64, topicIndex int, voter string) error {
	var topics int64
	if err := s.db.Model(&votingTopicModel{}).
		Where("session_id = ?", int64(sessionID)).
		Count(&topics).Error; err != nil {
		return s.repo.logError("proxy_repo_count_topics_failed", err,
			"session_id", strconv.FormatUint(sessionID, 10),
		)
	}
	if topics == 0 {
		return storagelayout.ErrSessionNotFound
	}
	if topicIndex < 0 || int64(topicIndex) >= topics {
		return storagelayout.ErrTopicOutOfRange
	}
	voted, err := s.HasVoted(ctx, sessionID, voter)
	if err != nil {
		return err
	}
	if voted {
		return storagelayout.ErrVoterRecordExists
	}

	record := voterRecordModel{
		SessionID:  int64(sessionID),
		VoterKey:   storagelayout.VoterKey(voter),
		TopicIndex: topicIndex,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return storagelayout.ErrVoterRecordExists
		}
		return s.repo.logError("proxy_repo_insert_voter_record_failed", err,
			"session_id", strconv.FormatUint(sessionID, 10),
		)
	}
	if err := s.db.Model(&votingTopicModel{}).
		Where("session_id = ? AND topic_index = ?", int64(sessionID), topicIndex).
		UpdateColumn("vote_count", gorm.Expr("vote_count + 1")).Error; err != nil {
		return s.repo.logError("proxy_repo_increment_topic_failed", err,
			"session_id", strconv.FormatUint(sessionID, 10),
			"topic_index", topicIndex,
		)
	}
	if err := s.db.Model(&votingSessionModel{}).
		Where("session_id = ?", int64(sessionID)).
		UpdateColumn("total_votes", gorm.Expr("total_votes + 1")).Error; err != nil {
		return s.repo.logError("proxy_repo_increment_total_failed", err,
			"session_id", strconv.FormatUint(sessionID, 10),
		)
	}
	return nil
}

type outboxWriter struct {
	db   *gorm.DB
	repo *Repository
}

func (w outboxWriter) AppendOutbox(_ context.Context, message outbox.Message) error {
	row := outboxModel{
		OutboxID:     strings.TrimSpace(message.OutboxID),
		EventType:    strings.TrimSpace(message.EventType),
		PartitionKey: strings.TrimSpace(message.PartitionKey),
		Payload:      message.Payload,
		CreatedAt:    message.CreatedAt.UTC(),
	}
	if err := w.db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return outbox.ErrDuplicateMessage
		}
		return w.repo.logError("proxy_repo_append_outbox_failed", err, "outbox_id", row.OutboxID)
	}
	return nil
}

type proxySlotModel struct {
	Slot  string `gorm:"column:slot;primaryKey"`
	Value string `gorm:"column:value;not null"`
}

func (proxySlotModel) TableName() string {
	return "proxy_slots"
}

type votingSequenceModel struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null"`
}

func (votingSequenceModel) TableName() string {
	return "voting_sequences"
}

type votingSessionModel struct {
	SessionID  int64     `gorm:"column:session_id;primaryKey;autoIncrement:false"`
	Creator    string    `gorm:"column:creator;not null"`
	Title      string    `gorm:"column:title;not null"`
	EndTime    time.Time `gorm:"column:end_time;not null"`
	TotalVotes int64     `gorm:"column:total_votes;not null;default:0"`
}

func (votingSessionModel) TableName() string {
	return "voting_sessions"
}

func (m votingSessionModel) toRecord(topics []votingTopicModel) storagelayout.SessionRecord {
	record := storagelayout.SessionRecord{
		SessionID:  uint64(m.SessionID),
		Creator:    m.Creator,
		Title:      m.Title,
		EndTime:    m.EndTime.UTC(),
		TotalVotes: uint64(m.TotalVotes),
		Topics:     make([]storagelayout.TopicRecord, 0, len(topics)),
	}
	for _, topic := range topics {
		record.Topics = append(record.Topics, storagelayout.TopicRecord{
			Label:     topic.Label,
			VoteCount: uint64(topic.VoteCount),
		})
	}
	return record
}

type votingTopicModel struct {
	SessionID  int64  `gorm:"column:session_id;primaryKey;autoIncrement:false"`
	TopicIndex int    `gorm:"column:topic_index;primaryKey;autoIncrement:false"`
	Label      string `gorm:"column:label;not null"`
	VoteCount  int64  `gorm:"column:vote_count;not null;default:0"`
}

func (votingTopicModel) TableName() string {
	return "voting_topics"
}

type voterRecordModel struct {
	SessionID  int64  `gorm:"column:session_id;primaryKey;autoIncrement:false"`
	VoterKey   string `gorm:"column:voter_key;primaryKey"`
	TopicIndex int    `gorm:"column:topic_index;not null"`
}

func (voterRecordModel) TableName() string {
	return "voter_records"
}

type outboxModel struct {
	Seq          int64      `gorm:"column:seq;primaryKey;autoIncrement"`
	OutboxID     string     `gorm:"column:outbox_id;uniqueIndex;not null"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key;not null"`
	Payload      []byte     `gorm:"column:payload;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	PublishedAt  *time.Time `gorm:"column:published_at;index"`
}

func (outboxModel) TableName() string {
	return "proxy_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var (
	_ ports.StateStore = (*Repository)(nil)
	_ storagelayout.Tx = txView{}
)
