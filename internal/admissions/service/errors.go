package service

import "errors"

var (
	ErrInvalidTicketRequest    = errors.New("invalid ticket request")
	ErrTicketRateLimited       = errors.New("ticket rate limit exceeded")
	ErrDuplicateRecoveryFailed = errors.New("duplicate ticket recovery failed")
	ErrTicketMissingURL        = errors.New("ticket invitation has no url")
	ErrKeysExhausted           = errors.New("all keys exhausted")
	ErrMissingEnvironment      = errors.New("missing environment configuration")
	ErrInvalidKeyLimits        = errors.New("invalid key slot limits")
	ErrFinalizationInProgress  = errors.New("finalization already in progress")
	ErrTicketSourceRequired    = errors.New("ticket lookup requires a list id")
	ErrUnknownCategory         = errors.New("unknown decision category")
)
