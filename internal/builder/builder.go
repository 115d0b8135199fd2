// Package builder turns a selected venue into a fully-priced unsigned
// transaction descriptor. Slippage bounds use integer basis-point
// arithmetic throughout; deadlines are computed fresh at build time, never
// reused from the quote that preceded them.
package builder

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/greyfield/swaprouter/internal/helpers"
	"github.com/greyfield/swaprouter/internal/reverts"
	"github.com/greyfield/swaprouter/internal/signer"
	"github.com/greyfield/swaprouter/internal/swaperr"
	"github.com/greyfield/swaprouter/internal/telemetry"
	"github.com/greyfield/swaprouter/internal/token"
	"github.com/greyfield/swaprouter/internal/venue"
)

// Backend is the slice of the RPC client the builder needs.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	helpers.FeeBackend
}

// Plan is the immutable swap blueprint, built once per attempt and
// consumed exactly once.
type Plan struct {
	Venue        venue.Profile
	TokenIn      token.Descriptor
	TokenOut     token.Descriptor
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Deadline     *big.Int
	Recipient    common.Address
	GasLimit     uint64
}

type Builder struct {
	backend Backend
	chainID *big.Int

	deadlineWindow  time.Duration
	tipBoostPercent int
	maxFeeCap       *big.Int
}

func New(backend Backend, chainID *big.Int, deadlineWindow time.Duration, tipBoostPercent int, maxFeeCap *big.Int) *Builder {
	return &Builder{
		backend:         backend,
		chainID:         chainID,
		deadlineWindow:  deadlineWindow,
		tipBoostPercent: tipBoostPercent,
		maxFeeCap:       maxFeeCap,
	}
}

// MakePlan computes the slippage-bounded minimum output and a fresh
// deadline for the selected venue. slippageBps is the user's tolerance in
// basis points; amountOutMin = floor(expected * (10000-bps) / 10000).
func (b *Builder) MakePlan(v venue.Profile, gasLimit uint64,
	tokenIn, tokenOut token.Descriptor, amountIn, amountOutExpected *big.Int,
	slippageBps int64, recipient common.Address) (Plan, error) {

	if err := helpers.ValidateAmount(amountIn); err != nil {
		return Plan{}, swaperr.Wrap(swaperr.ClassPrecondition, err, "input amount")
	}
	if err := helpers.ValidateAmount(amountOutExpected); err != nil {
		return Plan{}, swaperr.Wrap(swaperr.ClassPrecondition, err, "expected output amount")
	}
	if slippageBps < 0 || slippageBps > 10000 {
		return Plan{}, swaperr.New(swaperr.ClassPrecondition,
			"slippage %d bps out of range", slippageBps)
	}
	if recipient == (common.Address{}) {
		return Plan{}, swaperr.New(swaperr.ClassPrecondition, "recipient must be set")
	}
	if gasLimit == 0 {
		return Plan{}, swaperr.New(swaperr.ClassPrecondition, "gas limit must be set")
	}

	return Plan{
		Venue:        v,
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		AmountOutMin: helpers.ApplyBps(amountOutExpected, slippageBps),
		Deadline:     big.NewInt(time.Now().Add(b.deadlineWindow).Unix()),
		Recipient:    recipient,
		GasLimit:     gasLimit,
	}, nil
}

// Build encodes the plan into an unsigned descriptor with a freshly
// fetched nonce and current fee caps. Callers must invoke this only after
// any approval transaction has been mined; the nonce read here assumes
// the account's pending count is settled.
func (b *Builder) Build(ctx context.Context, plan Plan, owner common.Address) (*signer.UnsignedTx, error) {
	data, value, err := b.encode(ctx, plan, owner)
	if err != nil {
		return nil, err
	}

	nonce, err := b.backend.PendingNonceAt(ctx, owner)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.ClassTransport, err, "fetch nonce")
	}
	feeCap, tipCap, err := helpers.SuggestFees(ctx, b.backend, b.tipBoostPercent, b.maxFeeCap)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.ClassTransport, err, "price transaction")
	}

	return &signer.UnsignedTx{
		To:        plan.Venue.Router,
		Value:     value,
		Data:      data,
		Nonce:     nonce,
		GasLimit:  plan.GasLimit,
		GasFeeCap: feeCap,
		GasTipCap: tipCap,
		ChainID:   b.chainID,
	}, nil
}

// encode packs the venue call, falling back to the fee-on-transfer
// sibling when the primary method's simulation reverts with a recognized
// fee-on-transfer signature. The fallback only exists for the token-in
// v2 shapes; the other conventions encode exactly once.
func (b *Builder) encode(ctx context.Context, plan Plan, owner common.Address) ([]byte, *big.Int, error) {
	args := venue.CallArgs{
		TokenIn:      plan.TokenIn.Address,
		TokenOut:     plan.TokenOut.Address,
		AmountIn:     plan.AmountIn,
		AmountOutMin: plan.AmountOutMin,
		Recipient:    plan.Recipient,
		Deadline:     plan.Deadline,
	}

	data, value, err := venue.EncodeCall(plan.Venue, args)
	if err != nil {
		return nil, nil, swaperr.Wrap(swaperr.ClassEncodingFailed, err, "encode %s call", plan.Venue.ID)
	}
	if len(data) == 0 {
		return nil, nil, swaperr.New(swaperr.ClassEncodingFailed,
			"venue %s produced empty calldata", plan.Venue.ID)
	}

	switch plan.Venue.Convention {
	case venue.TokenInNativeOutFixedIn, venue.TokenInTokenOutFixedIn:
	default:
		return data, value, nil
	}

	router := plan.Venue.Router
	_, simErr := b.backend.CallContract(ctx, ethereum.CallMsg{
		From:  owner,
		To:    &router,
		Value: value,
		Data:  data,
	}, nil)
	if simErr == nil || reverts.Classify(simErr.Error()) != reverts.ReasonFeeOnTransfer {
		return data, value, nil
	}

	telemetry.Infof("[builder] venue=%s primary method reverted for fee-on-transfer, using supporting sibling",
		plan.Venue.ID)
	args.FeeOnTransfer = true
	data, value, err = venue.EncodeCall(plan.Venue, args)
	if err != nil {
		return nil, nil, swaperr.Wrap(swaperr.ClassEncodingFailed, err, "encode %s fallback call", plan.Venue.ID)
	}
	if len(data) == 0 {
		return nil, nil, swaperr.New(swaperr.ClassEncodingFailed,
			"venue %s produced empty fallback calldata", plan.Venue.ID)
	}
	return data, value, nil
}
