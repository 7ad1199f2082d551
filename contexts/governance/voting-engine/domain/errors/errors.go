package errors

import "errors"

var (
	ErrUnknownSession   = errors.New("unknown session")
	ErrInvalidTopic     = errors.New("invalid topic id")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrSessionClosed    = errors.New("voting period is over")
	ErrSessionStillOpen = errors.New("voting session is still active")
	ErrDuplicateVote    = errors.New("voter has already voted in this session")
	ErrUnknownMethod    = errors.New("unknown method")
	ErrInvalidCallArgs  = errors.New("invalid call arguments")
	ErrTallyMismatch    = errors.New("session total does not match topic counts")
)
