package services

import "errors"

// Kind classifies a service error for the transport layer.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindDomain
)

// Error is a caller-facing failure. Anything that is not an *Error is an
// unexpected infrastructure failure.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string { return e.Message }

// Is matches errors of the same kind and message, so sentinels work with errors.Is
// even when a copy carries field details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrValidation = newError(KindValidation, "Validation error")

	ErrPostNotFound          = newError(KindNotFound, "Post not found")
	ErrCommentNotFound       = newError(KindNotFound, "Comment not found")
	ErrParentCommentNotFound = newError(KindNotFound, "Parent comment not found")
	ErrAuthorNotFound        = newError(KindNotFound, "Author not found")
	ErrUserNotFound          = newError(KindNotFound, "User not found")

	ErrUpdatePostForbidden    = newError(KindForbidden, "You are not authorized to update this post")
	ErrDeletePostForbidden    = newError(KindForbidden, "You are not authorized to delete this post")
	ErrDeleteCommentForbidden = newError(KindForbidden, "You are not authorized to delete this comment")

	ErrInvalidCredentials = newError(KindUnauthorized, "Invalid email or password")

	ErrUserInactive = newError(KindDomain, "User must be Active")
	ErrEmailTaken   = newError(KindDomain, "Email is already registered")
	ErrInvalidToken = newError(KindDomain, "Invalid or expired verification token")
)

// KindOf returns the kind of err, or 0 for unexpected errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound checks if an error is a "not found" error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsForbidden checks if an error is an ownership or role failure.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }
