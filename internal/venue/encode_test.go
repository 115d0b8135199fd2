package venue

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testArgs() CallArgs {
	return CallArgs{
		TokenIn:      common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		TokenOut:     common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		AmountIn:     big.NewInt(1e18),
		AmountOutMin: big.NewInt(995),
		Recipient:    common.HexToAddress("0x0000000000000000000000000000000000000001"),
		Deadline:     big.NewInt(1900000000),
	}
}

func profileFor(conv CallingConvention) Profile {
	p := Profile{
		ID:         "test",
		Router:     common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		Convention: conv,
		DefaultGas: 300000,
	}
	if conv == ConcentratedSingleHop {
		p.FeeTier = 3000
	}
	return p
}

// Every convention must produce non-empty calldata with the right selector.
func TestEncodeCallAllConventions(t *testing.T) {
	selectors := map[CallingConvention]string{
		NativeInFixedOut:        "swapExactETHForTokens",
		TokenInNativeOutFixedIn: "swapExactTokensForETH",
		TokenInTokenOutFixedIn:  "swapExactTokensForTokens",
		ConcentratedSingleHop:   "exactInputSingle",
		GenericTwoSidedSwap:     "swap",
	}

	for conv, method := range selectors {
		data, value, err := EncodeCall(profileFor(conv), testArgs())
		require.NoError(t, err, conv.String())
		require.NotEmpty(t, data, conv.String())

		wantSel := RouterABIFor(conv).Methods[method].ID
		require.Equal(t, wantSel, data[:4], conv.String())

		if conv == NativeInFixedOut {
			require.Equal(t, big.NewInt(1e18), value, "native-in carries amountIn as tx value")
		} else {
			require.EqualValues(t, 0, value.Sign(), conv.String())
		}
	}
}

func TestEncodeCallFeeOnTransferSibling(t *testing.T) {
	args := testArgs()
	args.FeeOnTransfer = true

	for conv, method := range map[CallingConvention]string{
		TokenInNativeOutFixedIn: "swapExactTokensForETHSupportingFeeOnTransferTokens",
		TokenInTokenOutFixedIn:  "swapExactTokensForTokensSupportingFeeOnTransferTokens",
	} {
		data, _, err := EncodeCall(profileFor(conv), args)
		require.NoError(t, err)
		require.Equal(t, RouterV2().Methods[method].ID, data[:4])
	}

	// Native-in has no sibling; the flag must be ignored.
	data, _, err := EncodeCall(profileFor(NativeInFixedOut), args)
	require.NoError(t, err)
	require.Equal(t, RouterV2().Methods["swapExactETHForTokens"].ID, data[:4])
}

func TestEncodeCallNilArgs(t *testing.T) {
	args := testArgs()
	args.Deadline = nil
	_, _, err := EncodeCall(profileFor(TokenInTokenOutFixedIn), args)
	require.Error(t, err)

	args = testArgs()
	args.AmountIn = nil
	_, _, err = EncodeCall(profileFor(NativeInFixedOut), args)
	require.Error(t, err)
}

func TestEncodeCallUnknownConvention(t *testing.T) {
	p := profileFor(TokenInTokenOutFixedIn)
	p.Convention = CallingConvention(99)
	_, _, err := EncodeCall(p, testArgs())
	require.Error(t, err)
}
