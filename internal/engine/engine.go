// Package engine runs the swap pipeline end to end: resolve, probe,
// approve, build, sign, broadcast, report. Each stage either advances or
// fails with a classified error; every attempt, won or lost, ends in
// exactly one recorded outcome.
package engine

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/greyfield/swaprouter/internal/approve"
	"github.com/greyfield/swaprouter/internal/builder"
	"github.com/greyfield/swaprouter/internal/helpers"
	"github.com/greyfield/swaprouter/internal/report"
	"github.com/greyfield/swaprouter/internal/selector"
	"github.com/greyfield/swaprouter/internal/signer"
	"github.com/greyfield/swaprouter/internal/swaperr"
	"github.com/greyfield/swaprouter/internal/telemetry"
	"github.com/greyfield/swaprouter/internal/token"
	"github.com/greyfield/swaprouter/internal/venue"
)

// ChainBackend is the slice of the RPC client the engine reads balances
// through. Everything else goes through the stage components.
type ChainBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Stage interfaces, satisfied by the concrete components and by test
// stubs.
type Selector interface {
	Select(ctx context.Context, owner common.Address, tokenIn, tokenOut token.Descriptor,
		amountIn, expectedOut *big.Int, preferredID string) (selector.Seed, error)
}

type Approver interface {
	EnsureAllowance(ctx context.Context, tok token.Descriptor,
		owner, spender common.Address, required *big.Int) (*approve.State, error)
}

type Builder interface {
	MakePlan(v venue.Profile, gasLimit uint64, tokenIn, tokenOut token.Descriptor,
		amountIn, amountOutExpected *big.Int, slippageBps int64, recipient common.Address) (builder.Plan, error)
	Build(ctx context.Context, plan builder.Plan, owner common.Address) (*signer.UnsignedTx, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, blob signer.SignedBlob) (*types.Receipt, error)
}

// Request is one swap order. Tokens are given by symbol or 0x address;
// an explicit address wins over an ambiguous symbol. ExpectedOut is the
// upstream quote the slippage bound is anchored to.
type Request struct {
	TokenIn         string
	TokenInAddress  string
	TokenOut        string
	TokenOutAddress string

	AmountIn    *big.Int
	ExpectedOut *big.Int

	// SlippageBps overrides the configured default when set.
	SlippageBps *int64

	// Recipient defaults to the signing wallet.
	Recipient common.Address

	// PreferredVenue, when it names a catalog entry, is probed first.
	PreferredVenue string
}

type Deps struct {
	Backend     ChainBackend
	Resolver    *token.Resolver
	Selector    Selector
	Approver    Approver
	Builder     Builder
	Signer      signer.Signer
	Broadcaster Broadcaster
	Sink        report.Sink

	DefaultSlippageBps int64
}

type Engine struct {
	deps Deps
}

func New(deps Deps) *Engine {
	return &Engine{deps: deps}
}

// Execute runs one swap to completion. The returned outcome is always
// recorded to the sink first; the error, when non-nil, carries the
// failure class the outcome names.
func (e *Engine) Execute(ctx context.Context, req Request) (report.SwapOutcome, error) {
	outcome := report.SwapOutcome{
		TokenIn:   req.TokenIn,
		TokenOut:  req.TokenOut,
		Timestamp: time.Now(),
	}
	if req.AmountIn != nil {
		outcome.AmountIn = req.AmountIn.String()
	}

	err := e.run(ctx, req, &outcome)
	if err != nil {
		class := swaperr.ClassOf(err)
		outcome.Success = false
		outcome.FailureClass = class
		outcome.FailureDetail = err.Error()
		outcome.Remediation = swaperr.Remediation(class)
	} else {
		outcome.Success = true
	}

	if recErr := e.deps.Sink.Record(ctx, outcome); recErr != nil {
		telemetry.Warnf("[engine] outcome not recorded: %v", recErr)
	}
	return outcome, err
}

func (e *Engine) run(ctx context.Context, req Request, outcome *report.SwapOutcome) error {
	if err := helpers.ValidateAmount(req.AmountIn); err != nil {
		return swaperr.Wrap(swaperr.ClassPrecondition, err, "amount in")
	}
	if req.ExpectedOut == nil || req.ExpectedOut.Sign() <= 0 {
		return swaperr.New(swaperr.ClassPrecondition, "expected output quote is required")
	}

	slippageBps := e.deps.DefaultSlippageBps
	if req.SlippageBps != nil {
		slippageBps = *req.SlippageBps
	}
	if slippageBps < 0 || slippageBps > 10000 {
		return swaperr.New(swaperr.ClassPrecondition, "slippage %d bps out of range", slippageBps)
	}

	tokenIn, err := e.deps.Resolver.Resolve(req.TokenIn, req.TokenInAddress)
	if err != nil {
		return err
	}
	tokenOut, err := e.deps.Resolver.Resolve(req.TokenOut, req.TokenOutAddress)
	if err != nil {
		return err
	}
	outcome.TokenIn = tokenIn.Symbol
	outcome.TokenOut = tokenOut.Symbol

	if tokenIn.Address == tokenOut.Address {
		return swaperr.New(swaperr.ClassPrecondition, "token in and token out are the same asset")
	}

	owner := e.deps.Signer.Address()
	recipient := req.Recipient
	if recipient == (common.Address{}) {
		recipient = owner
	}

	if err := e.checkInputBalance(ctx, tokenIn, owner, req.AmountIn); err != nil {
		return err
	}

	seed, err := e.deps.Selector.Select(ctx, owner, tokenIn, tokenOut,
		req.AmountIn, req.ExpectedOut, req.PreferredVenue)
	if err != nil {
		return err
	}
	outcome.VenueUsed = seed.Venue.ID

	// Approval precedes the swap nonce fetch so the two transactions
	// cannot land out of order. Wrapper input spent as ERC-20 still
	// needs allowance; only a native-value venue skips it.
	if seed.Venue.Convention != venue.NativeInFixedOut {
		approvalTok := tokenIn
		approvalTok.IsNativeWrapper = false
		if _, err := e.deps.Approver.EnsureAllowance(ctx, approvalTok, owner,
			seed.Venue.Router, req.AmountIn); err != nil {
			return err
		}
	}

	plan, err := e.deps.Builder.MakePlan(seed.Venue, seed.GasLimit,
		tokenIn, tokenOut, req.AmountIn, req.ExpectedOut, slippageBps, recipient)
	if err != nil {
		return err
	}

	receipt, err := e.executeWithRetry(ctx, plan, owner, outcome)
	if receipt != nil {
		outcome.TxHash = receipt.TxHash.Hex()
		outcome.GasUsed = receipt.GasUsed
		if receipt.EffectiveGasPrice != nil {
			outcome.EffectiveGasPrice = receipt.EffectiveGasPrice.String()
		}
	}
	return err
}

// executeWithRetry builds, signs, and broadcasts. A transport-class
// failure earns exactly one retry; rebuilding refreshes the nonce and
// fee caps, so a first attempt that secretly landed just bumps the nonce.
func (e *Engine) executeWithRetry(ctx context.Context, plan builder.Plan,
	owner common.Address, outcome *report.SwapOutcome) (*types.Receipt, error) {

	const maxAttempts = 2
	var lastReceipt *types.Receipt

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		unsigned, err := e.deps.Builder.Build(ctx, plan, owner)
		if err != nil {
			if swaperr.Is(err, swaperr.ClassTransport) && attempt < maxAttempts {
				telemetry.Warnf("[engine] build attempt %d failed on transport, retrying: %v", attempt, err)
				continue
			}
			return lastReceipt, err
		}

		if err := e.checkGasFunding(ctx, owner, unsigned); err != nil {
			return lastReceipt, err
		}

		blob, err := e.deps.Signer.Sign(unsigned)
		if err != nil {
			return lastReceipt, swaperr.Wrap(swaperr.ClassEncodingFailed, err, "sign swap transaction")
		}

		receipt, err := e.deps.Broadcaster.Broadcast(ctx, blob)
		if receipt != nil {
			lastReceipt = receipt
		}
		if err != nil {
			if swaperr.Is(err, swaperr.ClassTransport) && attempt < maxAttempts {
				telemetry.Warnf("[engine] broadcast attempt %d failed on transport, retrying: %v", attempt, err)
				continue
			}
			return lastReceipt, err
		}

		telemetry.Infof("[engine] swap mined venue=%s tx=%s gasUsed=%d",
			plan.Venue.ID, receipt.TxHash.Hex(), receipt.GasUsed)
		return receipt, nil
	}
	return lastReceipt, swaperr.New(swaperr.ClassTransport, "retry budget exhausted")
}

// checkInputBalance verifies the wallet holds the input amount before any
// transaction is attempted. Wrapper input is funded from the native
// balance; everything else reads balanceOf.
func (e *Engine) checkInputBalance(ctx context.Context, tok token.Descriptor,
	owner common.Address, amount *big.Int) error {

	var balance *big.Int
	var err error
	if tok.IsNativeWrapper {
		balance, err = e.deps.Backend.BalanceAt(ctx, owner, nil)
	} else {
		balance, err = e.erc20Balance(ctx, tok.Address, owner)
	}
	if err != nil {
		return swaperr.Wrap(swaperr.ClassTransport, err, "read %s balance", tok.Symbol)
	}

	if balance.Cmp(amount) < 0 {
		return swaperr.New(swaperr.ClassInsufficientBalance,
			"%s balance %s below swap amount %s", tok.Symbol, balance, amount)
	}
	return nil
}

// checkGasFunding verifies the native balance covers the worst-case gas
// spend plus any value the transaction carries.
func (e *Engine) checkGasFunding(ctx context.Context, owner common.Address, u *signer.UnsignedTx) error {
	balance, err := e.deps.Backend.BalanceAt(ctx, owner, nil)
	if err != nil {
		return swaperr.Wrap(swaperr.ClassTransport, err, "read native balance")
	}

	required := new(big.Int).Mul(u.GasFeeCap, new(big.Int).SetUint64(u.GasLimit))
	if u.Value != nil {
		required.Add(required, u.Value)
	}
	if balance.Cmp(required) < 0 {
		return swaperr.New(swaperr.ClassInsufficientBalance,
			"native balance %s ETH cannot cover value plus gas (need %s ETH)",
			helpers.FormatEth(balance), helpers.FormatEth(required))
	}
	return nil
}

func (e *Engine) erc20Balance(ctx context.Context, tok, owner common.Address) (*big.Int, error) {
	data, err := venue.ERC20().Pack("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	out, err := e.deps.Backend.CallContract(ctx, ethereum.CallMsg{To: &tok, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}
