// Package reverts maps router revert reasons onto the pipeline's failure
// classes. Routers signal failure through error strings rather than typed
// errors, so classification is substring matching against a fixed
// signature table. All matching is case-insensitive.
package reverts

import "strings"

type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonInsufficientLiquidity
	ReasonSlippageExceeded
	ReasonDeadlineExpired
	ReasonInsufficientInputAmount
	ReasonFeeOnTransfer
)

func (r Reason) String() string {
	switch r {
	case ReasonInsufficientLiquidity:
		return "insufficient_liquidity"
	case ReasonSlippageExceeded:
		return "slippage_exceeded"
	case ReasonDeadlineExpired:
		return "deadline_expired"
	case ReasonInsufficientInputAmount:
		return "insufficient_input_amount"
	case ReasonFeeOnTransfer:
		return "fee_on_transfer"
	default:
		return "unknown"
	}
}

// Signature tables. Order matters where signatures overlap: the liquidity
// signatures are checked before the output-amount ones, because
// INSUFFICIENT_LIQUIDITY also contains "INSUFFICIENT".
var (
	liquiditySignatures = []string{
		"insufficient_liquidity",
		"insufficient liquidity",
		"not enough liquidity",
		"ds-math-sub-underflow",
		"arithmetic underflow",
	}

	slippageSignatures = []string{
		"insufficient_output_amount",
		"insufficient output amount",
		"too little received", // concentrated-liquidity routers
		"price slippage check",
		"slippage",
	}

	deadlineSignatures = []string{
		"expired",
		"transaction too old",
		"deadline",
	}

	inputAmountSignatures = []string{
		"insufficient_input_amount",
		"insufficient input amount",
	}

	feeOnTransferSignatures = []string{
		"uniswapv2: k",
		"pancake: k",
		"k invariant",
		"transfer_from_failed",
	}
)

// Classify maps a revert reason string to a Reason. Unrecognized input
// yields ReasonUnknown; callers decide how optimistic to be about that.
func Classify(msg string) Reason {
	if msg == "" {
		return ReasonUnknown
	}
	m := strings.ToLower(msg)

	for _, sig := range liquiditySignatures {
		if strings.Contains(m, sig) {
			return ReasonInsufficientLiquidity
		}
	}
	for _, sig := range inputAmountSignatures {
		if strings.Contains(m, sig) {
			return ReasonInsufficientInputAmount
		}
	}
	for _, sig := range feeOnTransferSignatures {
		if strings.Contains(m, sig) {
			return ReasonFeeOnTransfer
		}
	}
	for _, sig := range deadlineSignatures {
		if strings.Contains(m, sig) {
			return ReasonDeadlineExpired
		}
	}
	for _, sig := range slippageSignatures {
		if strings.Contains(m, sig) {
			return ReasonSlippageExceeded
		}
	}
	return ReasonUnknown
}

// IsTransport reports whether an error string looks like an RPC transport
// failure rather than an EVM revert. Transport failures are eligible for
// one retry with fresh nonce and fees.
func IsTransport(msg string) bool {
	m := strings.ToLower(msg)
	for _, sig := range []string{
		"connection refused",
		"connection reset",
		"i/o timeout",
		"context deadline exceeded",
		"eof",
		"502",
		"503",
		"too many requests",
	} {
		if strings.Contains(m, sig) {
			return true
		}
	}
	return false
}
