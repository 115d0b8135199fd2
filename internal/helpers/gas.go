package helpers

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FeeBackend is the slice of the RPC client needed to price a transaction.
type FeeBackend interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

// ReceiptBackend is the slice needed to await inclusion.
type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// SuggestFees computes EIP-1559 fee caps: suggested tip boosted by
// tipBoostPercent, fee cap at twice the current base fee plus the tip so a
// few base-fee bumps cannot strand the transaction. maxFeeCap, when set,
// is a hard ceiling.
func SuggestFees(ctx context.Context, b FeeBackend, tipBoostPercent int, maxFeeCap *big.Int) (feeCap, tipCap *big.Int, err error) {
	tipCap, err = b.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	if tipBoostPercent > 0 {
		tipCap = new(big.Int).Mul(tipCap, big.NewInt(100+int64(tipBoostPercent)))
		tipCap.Div(tipCap, big.NewInt(100))
	}

	head, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch head: %w", err)
	}
	if head.BaseFee == nil {
		// Pre-1559 chain: legacy pricing, fee cap equals the tip.
		feeCap = new(big.Int).Set(tipCap)
	} else {
		feeCap = new(big.Int).Mul(head.BaseFee, big.NewInt(2))
		feeCap.Add(feeCap, tipCap)
	}

	if err := ValidateGasFeeCap(feeCap, maxFeeCap); err != nil {
		return nil, nil, err
	}
	return feeCap, tipCap, nil
}

// WaitMined polls for a transaction receipt until the context expires.
// "not found" responses are expected while the transaction is pending and
// are not surfaced.
func WaitMined(ctx context.Context, b ReceiptBackend, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		rcpt, err := b.TransactionReceipt(ctx, txHash)
		if err == nil && rcpt != nil {
			return rcpt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for tx %s: %w", ShortHash(txHash), ctx.Err())
		case <-ticker.C:
		}
	}
}
