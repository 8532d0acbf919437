package domain

import "errors"

// Kind groups domain errors by how callers should surface them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindUnauthenticated
)

// Error is a domain failure with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

var (
	ErrInvalidInput       = newError(KindValidation, "invalid input")
	ErrScheduleConflict   = newError(KindValidation, "student already has a class at this time")
	ErrSeasonMismatch     = newError(KindValidation, "arrangement does not belong to the season")
	ErrRegistrationClosed = newError(KindValidation, "registration is closed")
	ErrDropWindowClosed   = newError(KindValidation, "drop deadline has passed")

	ErrInvalidState     = newError(KindConflict, "registration cannot be changed in its current state")
	ErrStatusConflict   = newError(KindConflict, "status changed by another request")
	ErrDuplicateRequest = newError(KindConflict, "registration already has an open change request")
	ErrLedgerImmutable  = newError(KindConflict, "balance row is already processed")

	ErrStudentNotFound      = newError(KindNotFound, "student not found")
	ErrFamilyNotFound       = newError(KindNotFound, "family not found")
	ErrSeasonNotFound       = newError(KindNotFound, "season not found")
	ErrArrangementNotFound  = newError(KindNotFound, "arrangement not found")
	ErrRegistrationNotFound = newError(KindNotFound, "registration not found")
	ErrBalanceNotFound      = newError(KindNotFound, "balance not found")
	ErrRequestNotFound      = newError(KindNotFound, "change request not found")

	ErrForbidden       = newError(KindForbidden, "forbidden")
	ErrUnauthenticated = newError(KindUnauthenticated, "authentication required")
)
