package server

import "fmt"

// ValidationError reports a malformed request body or message list. It is
// raised before any upstream traffic happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SessionErrorKind classifies why session negotiation failed.
type SessionErrorKind int

const (
	// SessionErrorNetwork covers transport failures and non-2xx responses
	// from the requirements endpoint.
	SessionErrorNetwork SessionErrorKind = iota
	// SessionErrorMalformedJSON means the requirements payload was not
	// valid JSON.
	SessionErrorMalformedJSON
	// SessionErrorMissingField means the payload decoded but lacked the
	// token or proof-of-work section.
	SessionErrorMissingField
)

// SessionError reports a failed or incomplete chat-requirements fetch. It is
// terminal for the call; there is no retry.
type SessionError struct {
	Kind SessionErrorKind
	Err  error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("Failed to meet chat requirements, %v", e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// TransportErrorKind classifies upstream SSE connection failures.
type TransportErrorKind int

const (
	// TransportErrorStatus is a non-200 response from the conversation
	// endpoint; Message carries the response body.
	TransportErrorStatus TransportErrorKind = iota
	// TransportErrorContentType means the endpoint answered with something
	// other than text/event-stream; Message carries the body.
	TransportErrorContentType
	// TransportErrorGeneric covers every other connection failure.
	TransportErrorGeneric
)

// TransportError reports an upstream conversation failure observed by the
// relay. Failures occurring before the first relay event abort the call;
// later ones only end the stream.
type TransportError struct {
	Kind    TransportErrorKind
	Message string
}

func (e *TransportError) Error() string {
	return e.Message
}
