package engine

import "errors"

// Kind classifies a transition failure so the HTTP layer can map it to a
// protocol-level error without parsing messages.
type Kind string

const (
	// KindInvalidState means the asset's current status does not satisfy
	// the operation's precondition.
	KindInvalidState Kind = "invalid_state"
	// KindNotFound means a referenced entity does not exist.
	KindNotFound Kind = "not_found"
	// KindInvalidRequest means the action is semantically meaningless,
	// e.g. a transfer to the asset's current location.
	KindInvalidRequest Kind = "invalid_request"
)

// Error is a typed business-rule failure from the transition engine.
// Storage failures are returned as-is and are not of this type.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func invalidState(msg string) *Error {
	return &Error{Kind: KindInvalidState, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func invalidRequest(msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}

// KindOf returns the failure kind of err, or "" for non-business errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
