package domain

import "errors"

// Sentinel errors for the relay's error conditions. application.Hub wraps
// these with %w and logs-and-drops; nothing here is ever retried.
var (
	// ErrNotJoined is returned when a connection sends "operation" or
	// "cursor-position" before "join-document".
	ErrNotJoined = errors.New("domain: connection has not joined a document")

	// ErrOutOfRange is returned by Apply when an operation's indices are
	// inconsistent with the current content. Document.Submit clamps before
	// calling Apply, so callers going through Document should rarely see
	// this; Apply itself stays strict so the algebra remains correct on
	// its own.
	ErrOutOfRange = errors.New("domain: operation indices out of range")

	// ErrUnknownOpType guards the two-variant sum's exhaustiveness; it
	// should be unreachable outside of malformed wire input.
	ErrUnknownOpType = errors.New("domain: unknown operation type")

	// ErrUnknownDocument is logged by the hub when an operation arrives for
	// a document the registry does not hold. The HTTP 404 response and the
	// cursor-update path do not use it.
	ErrUnknownDocument = errors.New("domain: unknown document")
)
