// Package probe implements the non-committing liquidity feasibility check:
// a gas estimation of the venue's swap call with synthetic parameters. No
// state is touched; a probe can be repeated freely.
package probe

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/greyfield/swaprouter/internal/helpers"
	"github.com/greyfield/swaprouter/internal/reverts"
	"github.com/greyfield/swaprouter/internal/swaperr"
	"github.com/greyfield/swaprouter/internal/telemetry"
	"github.com/greyfield/swaprouter/internal/token"
	"github.com/greyfield/swaprouter/internal/venue"
)

type FailureClass int

const (
	FailureNone FailureClass = iota
	FailureInsufficientLiquidity
	FailureSelfSwap
	FailureIncompatibleLegs
	FailureUnknown
)

func (f FailureClass) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureInsufficientLiquidity:
		return "insufficient_liquidity"
	case FailureSelfSwap:
		return "self_swap"
	case FailureIncompatibleLegs:
		return "incompatible_legs"
	default:
		return "unknown"
	}
}

// Result of one probe attempt. Transient, never persisted.
type Result struct {
	Feasible     bool
	GasEstimate  uint64
	FailureClass FailureClass
}

// Estimator is the slice of the RPC client the prober needs.
type Estimator interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

const (
	// Probes use a deliberately loose 20% tolerance band, independent of
	// the user's requested slippage. A probe asks "can this venue fill the
	// order at all", not "at this exact price"; the tight bound is applied
	// when the real transaction is built.
	toleranceBps = 2000

	// Estimates get a 20% safety buffer before becoming gas limits.
	gasBufferNum = 120
	gasBufferDen = 100

	probeDeadline = 5 * time.Minute
)

// syntheticRecipient keeps the probe independent of the real recipient's
// balances. Non-zero because some tokens reject the zero address.
var syntheticRecipient = common.HexToAddress("0x0000000000000000000000000000000000000001")

type Prober struct {
	est     Estimator
	limiter *rate.Limiter
}

// New wraps an estimator with a per-second rate limit on probe calls.
// perSecond <= 0 disables throttling.
func New(est Estimator, perSecond float64) *Prober {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &Prober{est: est, limiter: limiter}
}

// Probe checks whether v can plausibly fill the swap. The self-swap and
// leg-compatibility checks run before any network traffic. expectedOut,
// when known from an upstream quote, tightens the probe's minimum-output
// bound to the wide tolerance band; nil probes with a zero bound.
func (p *Prober) Probe(ctx context.Context, v venue.Profile, owner common.Address,
	tokenIn, tokenOut token.Descriptor, amountIn, expectedOut *big.Int) (Result, error) {

	if tokenIn.Address == tokenOut.Address {
		return Result{Feasible: false, FailureClass: FailureSelfSwap}, nil
	}
	if !legsCompatible(v.Convention, tokenIn, tokenOut) {
		return Result{Feasible: false, FailureClass: FailureIncompatibleLegs}, nil
	}

	minOut := big.NewInt(0)
	if expectedOut != nil && expectedOut.Sign() > 0 {
		minOut = helpers.ApplyBps(expectedOut, toleranceBps)
	}

	data, value, err := venue.EncodeCall(v, venue.CallArgs{
		TokenIn:      tokenIn.Address,
		TokenOut:     tokenOut.Address,
		AmountIn:     amountIn,
		AmountOutMin: minOut,
		Recipient:    syntheticRecipient,
		Deadline:     big.NewInt(time.Now().Add(probeDeadline).Unix()),
	})
	if err != nil {
		return Result{}, swaperr.Wrap(swaperr.ClassEncodingFailed, err, "encode probe call")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	router := v.Router
	estimate, err := p.est.EstimateGas(ctx, ethereum.CallMsg{
		From:  owner,
		To:    &router,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return classifyProbeFailure(v, err), nil
	}

	return Result{
		Feasible:     true,
		GasEstimate:  estimate * gasBufferNum / gasBufferDen,
		FailureClass: FailureNone,
	}, nil
}

// legsCompatible rejects venue/leg pairings that can never settle. A
// native-in router takes its input as call value, so anything but the
// wrapper sentinel would be sent as value it does not represent; a
// native-out router unwraps on the way out, so the output leg must be the
// sentinel. The optimism policy must never see these: their estimation
// reverts (INVALID_PATH) are ambiguous and would keep the venue in play.
func legsCompatible(c venue.CallingConvention, in, out token.Descriptor) bool {
	switch c {
	case venue.NativeInFixedOut:
		return in.IsNativeWrapper
	case venue.TokenInNativeOutFixedIn:
		return out.IsNativeWrapper
	default:
		return true
	}
}

// classifyProbeFailure is the prober's optimism policy. Recognized
// liquidity-exhaustion reverts are hard failures. Everything else keeps
// the venue in play with its hardcoded gas budget: routers revert
// estimation for plenty of reasons that do not block the real swap, such
// as a missing approval in the simulation context, and dropping the venue
// on those would starve the selector. Tune or disable the heuristic here,
// nowhere else.
func classifyProbeFailure(v venue.Profile, err error) Result {
	if reverts.Classify(err.Error()) == reverts.ReasonInsufficientLiquidity {
		telemetry.Debugf("[probe] venue=%s liquidity exhausted: %v", v.ID, err)
		return Result{Feasible: false, FailureClass: FailureInsufficientLiquidity}
	}

	telemetry.Debugf("[probe] venue=%s ambiguous estimate failure, using default gas %d: %v",
		v.ID, v.DefaultGas, err)
	return Result{
		Feasible:     true,
		GasEstimate:  v.DefaultGas,
		FailureClass: FailureUnknown,
	}
}
