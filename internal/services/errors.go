// Package services implements the coordinator state machine: mint request
// lifecycle, callback reconciliation, command dispatch, reply continuations,
// and the query surface.
package services

import "errors"

// Typed errors returned by coordinator invocations. Every error aborts the
// whole invocation; none of its writes commit.
var (
	// ErrValidation reports malformed input or an address that failed
	// validation, including calls against an uninitialized coordinator.
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized reports a caller or controller that is not entitled
	// to the attempted action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrQueueEmpty reports a provisioning callback with no pending mint
	// request. This is a consistency fault, not a user error.
	ErrQueueEmpty = errors.New("mint queue empty")

	// ErrChannelAlreadyOpen reports a duplicate channel-open callback.
	ErrChannelAlreadyOpen = errors.New("channel already open")

	// ErrNotFound reports a missing mapping, history entry, or channel.
	ErrNotFound = errors.New("not found")

	// ErrRemoteQueryFailed wraps a failure querying the ledger.
	ErrRemoteQueryFailed = errors.New("remote query failed")
)
