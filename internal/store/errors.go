package store

import "errors"

// Stable error kinds surfaced to the presentation layer. Callers must
// treat state-machine violations as terminal for that attempt.
var (
	ErrDuplicateIdentity = errors.New("identity already exists")
	ErrNotFound          = errors.New("not found")
	ErrNotPending        = errors.New("account is not pending")
	ErrNotApproved       = errors.New("account is awaiting approval")
	ErrBanned            = errors.New("account is banned")
	ErrBadCredentials    = errors.New("wrong identity or secret")
	ErrProtectedIdentity = errors.New("identity cannot be modified")

	ErrInvalidTransition = errors.New("illegal ticket transition")
	ErrAlreadyActive     = errors.New("ticket was already accepted")
	ErrTicketClosed      = errors.New("ticket is closed")
)
