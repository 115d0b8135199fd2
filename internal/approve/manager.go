// Package approve raises ERC-20 spending allowances ahead of a swap. The
// ladder goes: no-op when covered with buffer, optional reset to zero,
// buffered approval, max approval. Every transaction the ladder sends is
// awaited to inclusion before the next step or the return: the swap
// transaction's nonce must be read strictly after the last approval is
// mined, and the only structural way to guarantee that is to not return
// until then.
package approve

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/greyfield/swaprouter/internal/helpers"
	"github.com/greyfield/swaprouter/internal/signer"
	"github.com/greyfield/swaprouter/internal/swaperr"
	"github.com/greyfield/swaprouter/internal/telemetry"
	"github.com/greyfield/swaprouter/internal/token"
	"github.com/greyfield/swaprouter/internal/venue"
)

type Stage int

const (
	StageUnchecked Stage = iota
	StageSufficient
	StageResetSent
	StageBufferApproveSent
	StageBufferVerified
	StageMaxApproveSent
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageUnchecked:
		return "unchecked"
	case StageSufficient:
		return "sufficient"
	case StageResetSent:
		return "reset_sent"
	case StageBufferApproveSent:
		return "buffer_approve_sent"
	case StageBufferVerified:
		return "buffer_verified"
	case StageMaxApproveSent:
		return "max_approve_sent"
	case StageDone:
		return "done"
	default:
		return "failed"
	}
}

// State is the per-swap approval state machine instance; discarded when
// the request terminates.
type State struct {
	CurrentAllowance  *big.Int
	RequiredAllowance *big.Int
	Stage             Stage
}

// Backend is the slice of the RPC client the manager needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	helpers.FeeBackend
	helpers.ReceiptBackend
}

const approveGasLimit = 100000

// maxUint256 is the most permissive approval a token can represent.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

type Manager struct {
	backend Backend
	signer  signer.Signer
	chainID *big.Int

	tipBoostPercent int
	maxFeeCap       *big.Int
}

func NewManager(backend Backend, sig signer.Signer, chainID *big.Int, tipBoostPercent int, maxFeeCap *big.Int) *Manager {
	return &Manager{
		backend:         backend,
		signer:          sig,
		chainID:         chainID,
		tipBoostPercent: tipBoostPercent,
		maxFeeCap:       maxFeeCap,
	}
}

// bufferedTarget is required * 1.5. The buffer absorbs small amount
// recalculations between quoting and execution, so a sliver of price
// movement does not force a second approval round trip.
func bufferedTarget(required *big.Int) *big.Int {
	t := new(big.Int).Mul(required, big.NewInt(3))
	return t.Div(t, big.NewInt(2))
}

// EnsureAllowance walks the ladder until spender can move required of tok
// from owner, or fails with ApprovalFailed having attempted the max
// approval exactly once. Native input skips approval entirely: value
// transfer needs no allowance.
func (m *Manager) EnsureAllowance(ctx context.Context, tok token.Descriptor,
	owner, spender common.Address, required *big.Int) (*State, error) {

	st := &State{RequiredAllowance: required, Stage: StageUnchecked}

	if tok.IsNativeWrapper {
		st.Stage = StageSufficient
		return st, nil
	}

	current, err := m.readAllowance(ctx, tok.Address, owner, spender)
	if err != nil {
		return st, swaperr.Wrap(swaperr.ClassTransport, err, "read allowance")
	}
	st.CurrentAllowance = current

	target := bufferedTarget(required)
	if current.Cmp(target) >= 0 {
		st.Stage = StageSufficient
		telemetry.Debugf("[approve] allowance already covers %s with buffer", required)
		return st, nil
	}

	// Legacy tokens reject nonzero -> nonzero approval changes; reset
	// first when there is something to reset. Failure here is tolerated:
	// most tokens do not need it.
	if current.Sign() > 0 {
		st.Stage = StageResetSent
		if err := m.sendApproval(ctx, tok.Address, owner, spender, big.NewInt(0)); err != nil {
			telemetry.Warnf("[approve] reset-to-zero failed (tolerated): %v", err)
		}
	}

	// Buffered approval.
	st.Stage = StageBufferApproveSent
	if err := m.sendApproval(ctx, tok.Address, owner, spender, target); err != nil {
		telemetry.Warnf("[approve] buffered approval failed: %v", err)
	} else if confirmed, err := m.readAllowance(ctx, tok.Address, owner, spender); err == nil && confirmed.Cmp(target) >= 0 {
		st.CurrentAllowance = confirmed
		st.Stage = StageBufferVerified
		telemetry.Debugf("[approve] buffered approval confirmed at %s", confirmed)
		st.Stage = StageDone
		return st, nil
	}

	// Fallback: maximum representable amount, once.
	st.Stage = StageMaxApproveSent
	if err := m.sendApproval(ctx, tok.Address, owner, spender, maxUint256); err != nil {
		st.Stage = StageFailed
		return st, swaperr.Wrap(swaperr.ClassApprovalFailed, err, "max approval for %s", tok.Symbol)
	}
	confirmed, err := m.readAllowance(ctx, tok.Address, owner, spender)
	if err != nil {
		st.Stage = StageFailed
		return st, swaperr.Wrap(swaperr.ClassApprovalFailed, err, "verify max approval for %s", tok.Symbol)
	}
	st.CurrentAllowance = confirmed
	if confirmed.Cmp(required) < 0 {
		st.Stage = StageFailed
		return st, swaperr.New(swaperr.ClassApprovalFailed,
			"allowance %s still below required %s after max approval", confirmed, required)
	}

	st.Stage = StageDone
	return st, nil
}

func (m *Manager) readAllowance(ctx context.Context, tok, owner, spender common.Address) (*big.Int, error) {
	data, err := venue.ERC20().Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	out, err := m.backend.CallContract(ctx, ethereum.CallMsg{To: &tok, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(out), nil
}

// sendApproval signs, broadcasts, and awaits inclusion of one approve
// call. Returning before the receipt would break the nonce ordering the
// swap transaction depends on.
func (m *Manager) sendApproval(ctx context.Context, tok, owner, spender common.Address, amount *big.Int) error {
	data, err := venue.ERC20().Pack("approve", spender, amount)
	if err != nil {
		return err
	}

	nonce, err := m.backend.PendingNonceAt(ctx, owner)
	if err != nil {
		return err
	}
	feeCap, tipCap, err := helpers.SuggestFees(ctx, m.backend, m.tipBoostPercent, m.maxFeeCap)
	if err != nil {
		return err
	}

	blob, err := m.signer.Sign(&signer.UnsignedTx{
		To:        tok,
		Value:     big.NewInt(0),
		Data:      data,
		Nonce:     nonce,
		GasLimit:  approveGasLimit,
		GasFeeCap: feeCap,
		GasTipCap: tipCap,
		ChainID:   m.chainID,
	})
	if err != nil {
		return err
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(blob.Raw()); err != nil {
		return err
	}
	if err := m.backend.SendTransaction(ctx, tx); err != nil {
		return err
	}

	telemetry.Infof("[approve] sent approval tx=%s token=%s amount=%s",
		helpers.ShortHash(blob.Hash()), helpers.ShortAddress(tok), amount)

	rcpt, err := helpers.WaitMined(ctx, m.backend, blob.Hash())
	if err != nil {
		return err
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		return swaperr.New(swaperr.ClassApprovalFailed, "approval tx %s reverted", helpers.ShortHash(blob.Hash()))
	}
	return nil
}
