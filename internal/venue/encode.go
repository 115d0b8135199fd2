package venue

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallArgs carries the leg-independent parameters of a swap call. Token
// addresses are already wrapper-substituted by the resolver; the native
// leg only surfaces here through the returned transaction value.
type CallArgs struct {
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Recipient    common.Address
	Deadline     *big.Int

	// FeeOnTransfer selects the fee-on-transfer-supporting sibling method
	// for the token-in v2 shapes. Ignored by the other conventions.
	FeeOnTransfer bool
}

// exactInputSingleParams mirrors the concentrated router's tuple argument.
// Field names must match the ABI component names for reflection packing.
type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// EncodeCall packs the venue-specific swap call. The second return value
// is the transaction value: amountIn for native-in venues, zero otherwise.
// A packed payload of zero length is a hard error, never returned as data:
// an empty call against a router silently transfers value and does nothing.
func EncodeCall(p Profile, a CallArgs) ([]byte, *big.Int, error) {
	if a.AmountIn == nil || a.AmountOutMin == nil || a.Deadline == nil {
		return nil, nil, fmt.Errorf("venue %s: nil call argument", p.ID)
	}

	var (
		data  []byte
		value = big.NewInt(0)
		err   error
	)

	switch p.Convention {
	case NativeInFixedOut:
		path := []common.Address{a.TokenIn, a.TokenOut}
		data, err = RouterV2().Pack("swapExactETHForTokens",
			a.AmountOutMin, path, a.Recipient, a.Deadline)
		value = a.AmountIn

	case TokenInNativeOutFixedIn:
		path := []common.Address{a.TokenIn, a.TokenOut}
		method := "swapExactTokensForETH"
		if a.FeeOnTransfer {
			method = "swapExactTokensForETHSupportingFeeOnTransferTokens"
		}
		data, err = RouterV2().Pack(method,
			a.AmountIn, a.AmountOutMin, path, a.Recipient, a.Deadline)

	case TokenInTokenOutFixedIn:
		path := []common.Address{a.TokenIn, a.TokenOut}
		method := "swapExactTokensForTokens"
		if a.FeeOnTransfer {
			method = "swapExactTokensForTokensSupportingFeeOnTransferTokens"
		}
		data, err = RouterV2().Pack(method,
			a.AmountIn, a.AmountOutMin, path, a.Recipient, a.Deadline)

	case ConcentratedSingleHop:
		data, err = RouterV3().Pack("exactInputSingle", exactInputSingleParams{
			TokenIn:           a.TokenIn,
			TokenOut:          a.TokenOut,
			Fee:               big.NewInt(p.FeeTier),
			Recipient:         a.Recipient,
			Deadline:          a.Deadline,
			AmountIn:          a.AmountIn,
			AmountOutMinimum:  a.AmountOutMin,
			SqrtPriceLimitX96: big.NewInt(0),
		})

	case GenericTwoSidedSwap:
		data, err = RouterGeneric().Pack("swap",
			a.TokenIn, a.TokenOut, a.AmountIn, a.AmountOutMin, a.Recipient, a.Deadline)

	default:
		return nil, nil, fmt.Errorf("venue %s: unhandled calling convention %d", p.ID, p.Convention)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("venue %s: pack %s call: %w", p.ID, p.Convention, err)
	}
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("venue %s: packed empty calldata", p.ID)
	}
	return data, value, nil
}
