// Package swaperr defines the error taxonomy shared by every stage of the
// swap pipeline. Each layer classifies its own failures into one of these
// classes before returning; raw provider errors never cross a package
// boundary upward.
package swaperr

import (
	"errors"
	"fmt"
)

type Class string

const (
	// Rejected before any network call.
	ClassPrecondition Class = "precondition"

	// All venues probed, none feasible. Not retryable without a change
	// of amount or pair.
	ClassNoLiquidity Class = "no_liquidity"

	// Wallet cannot cover amount plus gas reserve.
	ClassInsufficientBalance Class = "insufficient_balance"

	// Approval ladder exhausted; no swap transaction was attempted.
	ClassApprovalFailed Class = "approval_failed"

	// Builder invariant violation (would-be empty calldata); indicates a
	// catalog misconfiguration, always fatal.
	ClassEncodingFailed Class = "encoding_failed"

	// On-chain revert classes, discovered at execution time.
	ClassSlippageExceeded        Class = "slippage_exceeded"
	ClassInsufficientLiquidity   Class = "insufficient_liquidity"
	ClassDeadlineExpired         Class = "deadline_expired"
	ClassInsufficientInputAmount Class = "insufficient_input_amount"
	ClassExecutionRevert         Class = "execution_revert"

	// RPC timeout / connection failure. Eligible for exactly one
	// automatic retry with fresh nonce and fees.
	ClassTransport Class = "transport"
)

// Error is a classified pipeline error.
type Error struct {
	Class Class
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

func New(class Class, format string, args ...any) *Error {
	return &Error{Class: class, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The cause is retained for logs but
// callers surface only Class and Msg.
func Wrap(class Class, cause error, format string, args ...any) *Error {
	return &Error{Class: class, Msg: fmt.Sprintf(format, args...), cause: cause}
}

// ClassOf extracts the class from err. Unclassified errors default to
// ClassTransport: anything that escaped per-stage classification came off
// the wire, and the transport class is the only one whose retry is safe
// for an error of unknown provenance.
func ClassOf(err error) Class {
	var se *Error
	if errors.As(err, &se) {
		return se.Class
	}
	return ClassTransport
}

// Is reports whether err carries the given class.
func Is(err error, class Class) bool {
	var se *Error
	return errors.As(err, &se) && se.Class == class
}

// Remediation returns the user-facing hint for a class. Kept here so the
// API surface and any operator tooling agree on wording.
func Remediation(class Class) string {
	switch class {
	case ClassNoLiquidity:
		return "no venue can fill this swap; try a smaller amount or a different pair"
	case ClassSlippageExceeded:
		return "price moved beyond the slippage bound; retry or raise slippage"
	case ClassInsufficientLiquidity:
		return "pool liquidity moved after probing; try a smaller amount"
	case ClassDeadlineExpired:
		return "transaction was not mined before the deadline; retry"
	case ClassInsufficientInputAmount:
		return "input amount too small for this pool"
	case ClassInsufficientBalance:
		return "wallet balance cannot cover the swap plus gas"
	case ClassApprovalFailed:
		return "token approval could not be raised; no swap was attempted"
	default:
		return ""
	}
}
