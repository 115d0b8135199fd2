package report

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greyfield/swaprouter/internal/swaperr"
)

func outcome(i int) SwapOutcome {
	return SwapOutcome{
		Success:   true,
		TxHash:    fmt.Sprintf("0x%064x", i),
		VenueUsed: "uniswap-v2",
		TokenIn:   "WETH",
		TokenOut:  "USDC",
		AmountIn:  "1000000000000000000",
		GasUsed:   180_000,
		Timestamp: time.Unix(int64(1_700_000_000+i), 0),
	}
}

func TestMemorySinkNewestFirst(t *testing.T) {
	sink := NewMemorySink(10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Record(ctx, outcome(i)))
	}

	got, err := sink.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, outcome(2).TxHash, got[0].TxHash)
	assert.Equal(t, outcome(1).TxHash, got[1].TxHash)
}

func TestMemorySinkCapacity(t *testing.T) {
	sink := NewMemorySink(3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, sink.Record(ctx, outcome(i)))
	}

	got, err := sink.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, outcome(9).TxHash, got[0].TxHash)
	assert.Equal(t, outcome(7).TxHash, got[2].TxHash)
}

func TestMemorySinkEmpty(t *testing.T) {
	sink := NewMemorySink(0)
	got, err := sink.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFailureOutcomeCarriesClassAndHint(t *testing.T) {
	sink := NewMemorySink(4)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, SwapOutcome{
		Success:       false,
		TokenIn:       "WETH",
		TokenOut:      "USDC",
		AmountIn:      "5000000000000000000",
		FailureClass:  swaperr.ClassNoLiquidity,
		FailureDetail: "all 4 venues infeasible",
		Remediation:   swaperr.Remediation(swaperr.ClassNoLiquidity),
		Timestamp:     time.Now(),
	}))

	got, err := sink.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Success)
	assert.Equal(t, swaperr.ClassNoLiquidity, got[0].FailureClass)
	assert.NotEmpty(t, got[0].Remediation)
	assert.Empty(t, got[0].TxHash)
}
