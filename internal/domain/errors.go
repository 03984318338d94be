package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies business errors so callers can branch on kind rather
// than match message strings.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindStateConflict ErrorKind = "state_conflict"
	KindExpiredToken  ErrorKind = "expired_token"
	KindVerification  ErrorKind = "verification"
	KindIntegrity     ErrorKind = "integrity"
	KindPermission    ErrorKind = "permission"
)

type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Reason }

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return Errorf(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return Errorf(KindNotFound, format, args...)
}

func StateConflict(format string, args ...any) *Error {
	return Errorf(KindStateConflict, format, args...)
}

func ExpiredToken(format string, args ...any) *Error {
	return Errorf(KindExpiredToken, format, args...)
}

func Verification(format string, args ...any) *Error {
	return Errorf(KindVerification, format, args...)
}

func Integrity(format string, args ...any) *Error {
	return Errorf(KindIntegrity, format, args...)
}

func Permission(format string, args ...any) *Error {
	return Errorf(KindPermission, format, args...)
}

// TransitionDenied names the allowed set for the current status, so the
// caller can see why the move was refused.
func TransitionDenied(current DocumentStatus, target DocumentStatus) *Error {
	return StateConflict("document is %s; cannot move to %s (allowed: %v)",
		current, target, current.AllowedTransitions())
}

// KindOf extracts the error kind, or "" for non-domain errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool { return KindOf(err) == kind }
