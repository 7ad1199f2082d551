package errors

import "errors"

var (
	ErrUnauthorized = errors.New("caller is not the owner")
	ErrInvalidOwner = errors.New("invalid owner identity")
	ErrOwnerNotSet  = errors.New("owner is not set")
)
