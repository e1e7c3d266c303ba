package game

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateRound is returned by Repository.CreateRound when a round for
	// the same track and period, or another active round for the track,
	// already exists.
	ErrDuplicateRound = errors.New("round already exists")
	// ErrStatusConflict is returned by Repository.UpdateRoundStatus when the
	// round is no longer in the expected status.
	ErrStatusConflict = errors.New("round status changed concurrently")
	ErrRoundNotFound  = errors.New("round not found")
	ErrUnknownTrack   = errors.New("unknown track")
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindRepository
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "state_conflict"
	case KindRepository:
		return "repository_error"
	}
	return "unknown_error"
}

// Error is the classified error returned by Manager and Intake.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func conflictError(op, msg string) error {
	return &Error{Kind: KindConflict, Op: op, Msg: msg}
}

func repositoryError(op string, err error) error {
	return &Error{Kind: KindRepository, Op: op, Err: err}
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidation(err error) bool { return kindOf(err) == KindValidation }
func IsConflict(err error) bool   { return kindOf(err) == KindConflict }
func IsRepository(err error) bool { return kindOf(err) == KindRepository }

// PublicMessage returns the message that may be shown to API clients.
// Repository failures are reduced to a generic text.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindRepository {
		return e.Msg
	}
	return "internal error, please retry"
}
