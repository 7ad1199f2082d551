package errors

import "errors"

var (
	ErrInvalidImplementation = errors.New("invalid implementation")
	ErrIncompatibleLayout    = errors.New("implementation storage layout is incompatible")
	ErrAlreadyDeployed       = errors.New("proxy is already deployed")
	ErrNotDeployed           = errors.New("proxy is not deployed")
	ErrReentrantCall         = errors.New("reentrant call")
	ErrInvalidCallArgs       = errors.New("invalid call arguments")
	ErrPublisherRequired     = errors.New("outbox relay has no event publisher")
)
