package domain

import "errors"

// ErrKind classifies domain failures so transports can map them uniformly:
// validation and authorization reject before any state change, conflict
// means a precondition no longer holds (possibly because a concurrent actor
// won the race), capacity is the live-room cap.
type ErrKind int

const (
	KindValidation ErrKind = iota
	KindAuthorization
	KindConflict
	KindNotFound
	KindCapacity
)

type Error struct {
	Kind    ErrKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindAuthorization, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func NotFoundErr(msg string) *Error  { return &Error{Kind: KindNotFound, Message: msg} }
func CapacityErr(msg string) *Error  { return &Error{Kind: KindCapacity, Message: msg} }

// KindOf unwraps err looking for a domain Error. The second return is false
// for plain infrastructure faults, which callers treat as fatal for the
// single action that hit them.
func KindOf(err error) (ErrKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

var (
	ErrUserNotFound    = NotFoundErr("user not found")
	ErrRoomNotFound    = NotFoundErr("room not found")
	ErrMessageNotFound = NotFoundErr("message not found")
	ErrSelfAction      = Validation("action cannot target yourself")
	// ErrReactionExists reports that the user already holds a reaction row
	// on the message, so a guarded add matched nothing.
	ErrReactionExists = Conflict("reaction already recorded")
)
