package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greyfield/swaprouter/internal/approve"
	"github.com/greyfield/swaprouter/internal/builder"
	"github.com/greyfield/swaprouter/internal/signer"
	"github.com/greyfield/swaprouter/internal/token"
	"github.com/greyfield/swaprouter/internal/venue"
)

// sequencedChain is a single simulated account view shared by the
// approval manager and the builder. The transaction count advances only
// when a sent transaction is mined, so a nonce read that happens before
// the approval's inclusion is visible as a duplicate nonce.
type sequencedChain struct {
	tokenAddr common.Address

	txCount   uint64 // confirmed transaction count
	allowance *big.Int

	pending map[common.Hash]*types.Transaction
	mined   []*types.Transaction
}

func newSequencedChain(tokenAddr common.Address) *sequencedChain {
	return &sequencedChain{
		tokenAddr: tokenAddr,
		allowance: big.NewInt(0),
		pending:   make(map[common.Hash]*types.Transaction),
	}
}

func (c *sequencedChain) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	return c.txCount, nil
}

func (c *sequencedChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.pending[tx.Hash()] = tx
	return nil
}

// TransactionReceipt mines the transaction on its first poll: the count
// advances and approve calldata takes effect.
func (c *sequencedChain) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	tx, ok := c.pending[txHash]
	if !ok {
		return nil, errors.New("not found")
	}
	delete(c.pending, txHash)
	c.mined = append(c.mined, tx)
	c.txCount++

	if data := tx.Data(); len(data) >= 4+64 && *tx.To() == c.tokenAddr {
		// approve(spender, amount): amount is the trailing word.
		c.allowance = new(big.Int).SetBytes(data[len(data)-32:])
	}
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      txHash,
		BlockNumber: big.NewInt(19_000_000),
		GasUsed:     46_000,
	}, nil
}

func (c *sequencedChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To != nil && *msg.To == c.tokenAddr {
		return common.LeftPadBytes(c.allowance.Bytes(), 32), nil
	}
	// Router simulation during the build succeeds.
	return nil, nil
}

func (c *sequencedChain) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(10_000_000_000)}, nil
}

func (c *sequencedChain) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

// The approval's inclusion must strictly precede the swap's nonce fetch:
// with a zero starting allowance, the approval takes nonce 0 and the
// swap built afterwards must read nonce 1, never a duplicate of the
// approval's.
func TestApprovalInclusionPrecedesSwapNonce(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	sig := signer.NewLocalSigner(key)

	usdc := token.Descriptor{
		Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		Symbol:   "USDC",
		Decimals: 6,
	}
	dai := token.Descriptor{
		Address:  common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
		Symbol:   "DAI",
		Decimals: 18,
	}
	v := venue.Profile{
		ID:         "uniswap-v2",
		Router:     routerAddr,
		Convention: venue.TokenInTokenOutFixedIn,
		DefaultGas: 300_000,
	}

	chain := newSequencedChain(usdc.Address)
	mgr := approve.NewManager(chain, sig, big.NewInt(1), 10, nil)
	bld := builder.New(chain, big.NewInt(1), 5*time.Minute, 10, nil)

	ctx := context.Background()
	amountIn := big.NewInt(500)

	st, err := mgr.EnsureAllowance(ctx, usdc, sig.Address(), v.Router, amountIn)
	require.NoError(t, err)
	assert.Equal(t, approve.StageDone, st.Stage)

	// The approval is already mined when EnsureAllowance returns.
	require.Len(t, chain.mined, 1)
	assert.Equal(t, uint64(0), chain.mined[0].Nonce())
	assert.Equal(t, usdc.Address, *chain.mined[0].To())
	assert.Empty(t, chain.pending)

	plan, err := bld.MakePlan(v, 216_000, usdc, dai, amountIn, big.NewInt(490), 50, sig.Address())
	require.NoError(t, err)
	unsigned, err := bld.Build(ctx, plan, sig.Address())
	require.NoError(t, err)

	// Swap nonce equals the account's transaction count after inclusion.
	assert.Equal(t, uint64(1), unsigned.Nonce)
	assert.NotEqual(t, chain.mined[0].Nonce(), unsigned.Nonce)
}
