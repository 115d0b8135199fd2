package submit

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greyfield/swaprouter/internal/signer"
	"github.com/greyfield/swaprouter/internal/swaperr"
)

const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func signedBlob(t *testing.T, nonce uint64) signer.SignedBlob {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	s := signer.NewLocalSigner(key)
	blob, err := s.Sign(&signer.UnsignedTx{
		To:        common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		Value:     big.NewInt(0),
		Data:      []byte{0x38, 0xed, 0x17, 0x39, 0x01},
		Nonce:     nonce,
		GasLimit:  300_000,
		GasFeeCap: big.NewInt(30_000_000_000),
		GasTipCap: big.NewInt(2_000_000_000),
		ChainID:   big.NewInt(1),
	})
	require.NoError(t, err)
	return blob
}

type stubBackend struct {
	sendErr error
	sent    []*types.Transaction

	receiptStatus uint64
	receiptErr    error

	replayErr   error
	replayCalls int
}

func (s *stubBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, tx)
	return nil
}

func (s *stubBackend) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	if s.receiptErr != nil {
		return nil, s.receiptErr
	}
	return &types.Receipt{
		Status:            s.receiptStatus,
		TxHash:            txHash,
		BlockNumber:       big.NewInt(19_000_000),
		GasUsed:           182_411,
		EffectiveGasPrice: big.NewInt(21_000_000_000),
	}, nil
}

func (s *stubBackend) CallContract(_ context.Context, _ ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	s.replayCalls++
	if blockNumber == nil {
		return nil, errors.New("replay must pin the inclusion block")
	}
	return nil, s.replayErr
}

func TestBroadcastSuccess(t *testing.T) {
	backend := &stubBackend{receiptStatus: types.ReceiptStatusSuccessful}
	blob := signedBlob(t, 7)

	receipt, err := New(backend).Broadcast(context.Background(), blob)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(182_411), receipt.GasUsed)

	// The broadcast bytes are exactly the signed payload.
	require.Len(t, backend.sent, 1)
	assert.Equal(t, blob.Hash(), backend.sent[0].Hash())
	assert.Equal(t, uint64(7), backend.sent[0].Nonce())
	assert.Zero(t, backend.replayCalls)
}

func TestBroadcastRevertedReceiptClassified(t *testing.T) {
	backend := &stubBackend{
		receiptStatus: types.ReceiptStatusFailed,
		replayErr:     errors.New("execution reverted: UniswapV2: INSUFFICIENT_OUTPUT_AMOUNT"),
	}

	receipt, err := New(backend).Broadcast(context.Background(), signedBlob(t, 1))
	require.Error(t, err)
	assert.Equal(t, swaperr.ClassSlippageExceeded, swaperr.ClassOf(err))
	require.NotNil(t, receipt, "gas accounting must survive a revert")
	assert.Equal(t, 1, backend.replayCalls)
}

func TestBroadcastRevertWithoutReason(t *testing.T) {
	backend := &stubBackend{receiptStatus: types.ReceiptStatusFailed}

	receipt, err := New(backend).Broadcast(context.Background(), signedBlob(t, 1))
	require.Error(t, err)
	assert.Equal(t, swaperr.ClassExecutionRevert, swaperr.ClassOf(err))
	assert.NotNil(t, receipt)
}

func TestBroadcastDeadlineRevert(t *testing.T) {
	backend := &stubBackend{
		receiptStatus: types.ReceiptStatusFailed,
		replayErr:     errors.New("execution reverted: UniswapV2Router: EXPIRED"),
	}

	_, err := New(backend).Broadcast(context.Background(), signedBlob(t, 1))
	assert.Equal(t, swaperr.ClassDeadlineExpired, swaperr.ClassOf(err))
}

func TestBroadcastTransportFailure(t *testing.T) {
	backend := &stubBackend{sendErr: errors.New("dial tcp: connection refused")}

	receipt, err := New(backend).Broadcast(context.Background(), signedBlob(t, 1))
	assert.Nil(t, receipt)
	assert.Equal(t, swaperr.ClassTransport, swaperr.ClassOf(err))
}

func TestBroadcastSubmissionRevertNotRetryable(t *testing.T) {
	backend := &stubBackend{sendErr: errors.New("execution reverted: UniswapV2: INSUFFICIENT_LIQUIDITY")}

	_, err := New(backend).Broadcast(context.Background(), signedBlob(t, 1))
	assert.Equal(t, swaperr.ClassInsufficientLiquidity, swaperr.ClassOf(err))
}
