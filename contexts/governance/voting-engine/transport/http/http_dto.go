package http

import "time"

// The request documents below double as the argument encoding of forwarded
// calls, and the response documents as their return encoding.

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateSessionRequest struct {
	DurationSeconds uint64   `json:"duration_seconds"`
	Topics          []string `json:"topics"`
	Title           string   `json:"title"`
}

type CreateSessionResponse struct {
	SessionID uint64    `json:"session_id"`
	EndTime   time.Time `json:"end_time"`
}

type VoteRequest struct {
	SessionID  uint64 `json:"session_id"`
	TopicIndex uint64 `json:"topic_index"`
}

type SessionRequest struct {
	SessionID uint64 `json:"session_id"`
}

type TopicRequest struct {
	SessionID  uint64 `json:"session_id"`
	TopicIndex uint64 `json:"topic_index"`
}

type HasVotedRequest struct {
	SessionID uint64 `json:"session_id"`
	Voter     string `json:"voter"`
}

type TopicResponse struct {
	Index     int    `json:"index"`
	Label     string `json:"label"`
	VoteCount uint64 `json:"vote_count"`
}

type SessionResponse struct {
	SessionID  uint64          `json:"session_id"`
	Creator    string          `json:"creator"`
	Title      string          `json:"title"`
	EndTime    time.Time       `json:"end_time"`
	IsActive   bool            `json:"is_active"`
	Topics     []TopicResponse `json:"topics"`
	TotalVotes uint64          `json:"total_votes"`
}

type WinnerResponse struct {
	SessionID  uint64 `json:"session_id"`
	TopicIndex int    `json:"topic_index"`
	Label      string `json:"label"`
	VoteCount  uint64 `json:"vote_count"`
}

type TotalVotesResponse struct {
	SessionID  uint64 `json:"session_id"`
	TotalVotes uint64 `json:"total_votes"`
}

type SessionCountResponse struct {
	Count uint64 `json:"count"`
}

type HasVotedResponse struct {
	SessionID uint64 `json:"session_id"`
	Voter     string `json:"voter"`
	Voted     bool   `json:"voted"`
}

type VoteResponse struct {
	SessionID  uint64 `json:"session_id"`
	TopicIndex uint64 `json:"topic_index"`
	Voter      string `json:"voter"`
}
