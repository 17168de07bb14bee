package core

import "errors"

// ErrHubStopped is returned by hub calls made after Run has returned.
var ErrHubStopped = errors.New("hub stopped")

// Registry errors.
var (
	ErrEmptyName    = errors.New("empty name")
	ErrAlreadyBound = errors.New("connection already bound")
)

// RejectReason is the code attached to a discarded command.
type RejectReason string

// Reject reasons. None of them are reported to the client.
const (
	ReasonMissingName   RejectReason = "missing_name"
	ReasonNameTooLong   RejectReason = "name_too_long"
	ReasonMissingField  RejectReason = "missing_field"
	ReasonNotJoined     RejectReason = "not_joined"
	ReasonAlreadyJoined RejectReason = "already_joined"
	ReasonUnknown       RejectReason = "unknown_command"
)

// Verdict is the outcome of validating a command: accepted, or rejected with a reason.
type Verdict struct {
	Reason RejectReason
}

// Accept returns a passing verdict.
func Accept() Verdict { return Verdict{} }

// Reject returns a failing verdict with the given reason.
func Reject(reason RejectReason) Verdict { return Verdict{Reason: reason} }

// OK reports whether the command was accepted.
func (v Verdict) OK() bool { return v.Reason == "" }
