package usecase

import (
	"errors"
	"maps"
)

// Kind classifies a usecase failure. Handlers map kinds to transport status codes.
type Kind string

const (
	KindUnsupportedDomain Kind = "UNSUPPORTED_DOMAIN"
	KindInvalidEmail      Kind = "INVALID_EMAIL"
	KindRateLimited       Kind = "RATE_LIMITED"
	KindOtpNotFound       Kind = "OTP_NOT_FOUND"
	KindOtpExpired        Kind = "OTP_EXPIRED"
	KindOtpExhausted      Kind = "OTP_EXHAUSTED"
	KindOtpMismatch       Kind = "OTP_MISMATCH"
	KindInvalidToken      Kind = "INVALID_TOKEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindForbidden         Kind = "FORBIDDEN"
	KindConflict          Kind = "CONFLICT"
	KindInvalidState      Kind = "INVALID_STATE"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindUnavailable       Kind = "SERVICE_UNAVAILABLE"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// Error is a classified failure with a message safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and message, so copies produced by
// WithDetail or Wrap still match the sentinel they came from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithDetail returns a copy of e carrying an extra detail.
func (e *Error) WithDetail(key string, value any) *Error {
	c := *e
	c.Details = maps.Clone(e.Details)
	if c.Details == nil {
		c.Details = map[string]any{}
	}
	c.Details[key] = value
	return &c
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindInternal
}

// Validation builds a validation failure with per-field messages.
func Validation(message string, fields map[string]string) *Error {
	e := newError(KindValidation, message)
	if len(fields) > 0 {
		e.Details = map[string]any{"fields": fields}
	}
	return e
}

var (
	ErrInvalidEmail      = newError(KindInvalidEmail, "Invalid email format")
	ErrUnsupportedDomain = newError(KindUnsupportedDomain, "Please use your college email address")
	ErrRateLimited       = newError(KindRateLimited, "Too many requests. Please try again later.")

	ErrOtpNotFound  = newError(KindOtpNotFound, "OTP not found or already used")
	ErrOtpExpired   = newError(KindOtpExpired, "OTP has expired. Please request a new one.")
	ErrOtpExhausted = newError(KindOtpExhausted, "Too many failed attempts. Please request a new OTP.")
	ErrOtpMismatch  = newError(KindOtpMismatch, "Invalid OTP")

	ErrInvalidToken     = newError(KindInvalidToken, "Invalid or expired token")
	ErrMagicLinkUsed    = newError(KindInvalidToken, "This sign-in link has already been used")
	ErrMagicLinkExpired = newError(KindInvalidToken, "This sign-in link has expired")
	ErrGoogleDisabled   = newError(KindNotFound, "Google sign-in is not enabled")

	ErrUserNotFound   = newError(KindNotFound, "User not found")
	ErrTaskNotFound   = newError(KindNotFound, "Task not found")
	ErrReviewNotFound = newError(KindNotFound, "Review not found")
	ErrBidNotFound    = newError(KindNotFound, "Bid not found")

	ErrNotTaskPoster      = newError(KindForbidden, "Only the task poster can do this")
	ErrNotTaskAssignee    = newError(KindForbidden, "Only the assigned student can do this")
	ErrNotTaskParticipant = newError(KindForbidden, "Only the poster or the assignee can do this")
	ErrCannotBidOwnTask   = newError(KindForbidden, "You cannot bid on your own task")
	ErrNotReviewParty     = newError(KindForbidden, "Only task participants can review each other")
	ErrOwnReviewVote      = newError(KindForbidden, "You cannot vote on your own review")

	ErrTaskModified     = newError(KindConflict, "Task was modified by another request. Please retry.")
	ErrDuplicateBid     = newError(KindConflict, "You already have an active bid on this task")
	ErrDuplicateReview  = newError(KindConflict, "You have already reviewed this task")
	ErrAlreadyFlagged   = newError(KindConflict, "You have already flagged this review")
	ErrInvalidTaskState = newError(KindInvalidState, "Task is not in a state that allows this action")
	ErrBidNotActive     = newError(KindInvalidState, "Bid is no longer active")
	ErrTaskNotCompleted = newError(KindInvalidState, "Reviews can only be left on completed tasks")

	ErrInternal = newError(KindInternal, "something went wrong")
)
