package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of them,
// except store failures which are *StoreError.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
)

var (
	ErrSelfSwipe          = fmt.Errorf("%w: cannot swipe on yourself", ErrInvalidArgument)
	ErrAlreadySwiped      = fmt.Errorf("%w: already swiped on this user", ErrConflict)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrInvalidInviteCode  = fmt.Errorf("%w: invalid invite code", ErrNotFound)
	ErrInviteCodeRaceLost = fmt.Errorf("%w: invite code was used up by a concurrent registration", ErrConflict)
	ErrInviteCodeExists   = fmt.Errorf("%w: could not generate a unique invite code", ErrConflict)
	ErrEmailTaken         = fmt.Errorf("%w: email is already registered", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrMatchNotFound      = fmt.Errorf("%w: match not found", ErrNotFound)
	ErrNotMatchMember     = fmt.Errorf("%w: user is not a member of this match", ErrForbidden)
	ErrMessageNotFound    = fmt.Errorf("%w: message not found", ErrNotFound)
	ErrInviteNotFound     = fmt.Errorf("%w: invite code not found", ErrNotFound)
)

// StoreError reports a failure of the relational store (connectivity,
// timeout, constraint the service did not anticipate).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}
