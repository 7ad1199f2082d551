package entities

import (
	"time"

	"ballotproxy/internal/shared/storagelayout"
)

// Topic is one option of a session. Index is its identifier within the session.
type Topic struct {
	Index     int
	Label     string
	VoteCount uint64
}

// Session is the read model of a voting session. Active is computed against
// the time the session was read at and is never stored.
type Session struct {
	SessionID  uint64
	Creator    string
	Title      string
	EndTime    time.Time
	Active     bool
	Topics     []Topic
	TotalVotes uint64
}

// IsActiveAt reports whether voting is open at now. A session is closed from
// the instant now reaches EndTime.
func IsActiveAt(endTime time.Time, now time.Time) bool {
	return now.Before(endTime)
}

// SessionFromRecord maps the stored record into the read model at now.
func SessionFromRecord(record storagelayout.SessionRecord, now time.Time) Session {
	topics := make([]Topic, 0, len(record.Topics))
	for i, topic := range record.Topics {
		topics = append(topics, Topic{
			Index:     i,
			Label:     topic.Label,
			VoteCount: topic.VoteCount,
		})
	}
	return Session{
		SessionID:  record.SessionID,
		Creator:    record.Creator,
		Title:      record.Title,
		EndTime:    record.EndTime.UTC(),
		Active:     IsActiveAt(record.EndTime, now),
		Topics:     topics,
		TotalVotes: record.TotalVotes,
	}
}

// SessionCreated is emitted once per created session. Callers use it to learn
// the new identifier.
type SessionCreated struct {
	SessionID uint64    `json:"session_id"`
	Creator   string    `json:"creator"`
	Title     string    `json:"title"`
	EndTime   time.Time `json:"end_time"`
}

const EventTypeSessionCreated = "voting.session_created"
