// Package submit is Phase B of the sign-and-submit handshake. It accepts
// only signer.SignedBlob values, broadcasts the exact bytes it was given,
// and waits for inclusion. Nothing here can re-sign, re-price, or
// otherwise alter a payload.
package submit

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/greyfield/swaprouter/internal/helpers"
	"github.com/greyfield/swaprouter/internal/reverts"
	"github.com/greyfield/swaprouter/internal/signer"
	"github.com/greyfield/swaprouter/internal/swaperr"
	"github.com/greyfield/swaprouter/internal/telemetry"
)

// Backend is the slice of the RPC client Phase B needs.
type Backend interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	helpers.ReceiptBackend
}

type Broadcaster struct {
	backend Backend
}

func New(backend Backend) *Broadcaster {
	return &Broadcaster{backend: backend}
}

// Broadcast sends the blob and blocks until it is mined or ctx expires.
// On a reverted receipt the transaction is replayed as a call at the
// inclusion block to recover the revert reason; the receipt is returned
// alongside the classified error so reporting keeps the gas accounting.
func (b *Broadcaster) Broadcast(ctx context.Context, blob signer.SignedBlob) (*types.Receipt, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(blob.Raw()); err != nil {
		return nil, swaperr.Wrap(swaperr.ClassPrecondition, err, "decode signed transaction")
	}

	telemetry.Infof("[submit] broadcasting tx=%s from=%s nonce=%d",
		helpers.ShortHash(blob.Hash()), helpers.ShortAddress(blob.From()), tx.Nonce())

	if err := b.backend.SendTransaction(ctx, tx); err != nil {
		if reverts.IsTransport(err.Error()) {
			return nil, swaperr.Wrap(swaperr.ClassTransport, err, "send transaction")
		}
		return nil, swaperr.Wrap(classForReason(reverts.Classify(err.Error())), err,
			"transaction rejected at submission")
	}

	receipt, err := helpers.WaitMined(ctx, b.backend, blob.Hash())
	if err != nil {
		return nil, swaperr.Wrap(swaperr.ClassTransport, err, "await inclusion")
	}

	if receipt.Status == types.ReceiptStatusSuccessful {
		telemetry.Infof("[submit] tx=%s mined block=%d gasUsed=%d",
			helpers.ShortHash(blob.Hash()), receipt.BlockNumber.Uint64(), receipt.GasUsed)
		return receipt, nil
	}

	reason := b.revertReason(ctx, tx, blob, receipt)
	telemetry.Warnf("[submit] tx=%s reverted block=%d reason=%q",
		helpers.ShortHash(blob.Hash()), receipt.BlockNumber.Uint64(), reason)

	class := classForReason(reverts.Classify(reason))
	if reason == "" {
		return receipt, swaperr.New(class, "transaction reverted on-chain")
	}
	return receipt, swaperr.New(class, "transaction reverted: %s", reason)
}

// revertReason replays the mined transaction as an eth_call at its
// inclusion block. Best effort: an empty string means the node would not
// reproduce the revert.
func (b *Broadcaster) revertReason(ctx context.Context, tx *types.Transaction, blob signer.SignedBlob, receipt *types.Receipt) string {
	from := blob.From()
	msg := ethereum.CallMsg{
		From:      from,
		To:        tx.To(),
		Gas:       tx.Gas(),
		GasFeeCap: tx.GasFeeCap(),
		GasTipCap: tx.GasTipCap(),
		Value:     tx.Value(),
		Data:      tx.Data(),
	}
	_, err := b.backend.CallContract(ctx, msg, receipt.BlockNumber)
	if err == nil {
		return ""
	}
	return err.Error()
}

func classForReason(r reverts.Reason) swaperr.Class {
	switch r {
	case reverts.ReasonInsufficientLiquidity:
		return swaperr.ClassInsufficientLiquidity
	case reverts.ReasonSlippageExceeded:
		return swaperr.ClassSlippageExceeded
	case reverts.ReasonDeadlineExpired:
		return swaperr.ClassDeadlineExpired
	case reverts.ReasonInsufficientInputAmount:
		return swaperr.ClassInsufficientInputAmount
	default:
		return swaperr.ClassExecutionRevert
	}
}
