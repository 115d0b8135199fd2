package venue

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABIs (minimal fragments)
const (
	// V2-family router: exact-in swap methods plus the fee-on-transfer
	// siblings used as a fallback when a token skims transfer amounts.
	RouterV2ABI = `[
		{"inputs":[
			{"internalType":"uint256","name":"amountOutMin","type":"uint256"},
			{"internalType":"address[]","name":"path","type":"address[]"},
			{"internalType":"address","name":"to","type":"address"},
			{"internalType":"uint256","name":"deadline","type":"uint256"}],
		 "name":"swapExactETHForTokens",
		 "outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],
		 "stateMutability":"payable","type":"function"},

		{"inputs":[
			{"internalType":"uint256","name":"amountOutMin","type":"uint256"},
			{"internalType":"address[]","name":"path","type":"address[]"},
			{"internalType":"address","name":"to","type":"address"},
			{"internalType":"uint256","name":"deadline","type":"uint256"}],
		 "name":"swapExactETHForTokensSupportingFeeOnTransferTokens",
		 "outputs":[],
		 "stateMutability":"payable","type":"function"},

		{"inputs":[
			{"internalType":"uint256","name":"amountIn","type":"uint256"},
			{"internalType":"uint256","name":"amountOutMin","type":"uint256"},
			{"internalType":"address[]","name":"path","type":"address[]"},
			{"internalType":"address","name":"to","type":"address"},
			{"internalType":"uint256","name":"deadline","type":"uint256"}],
		 "name":"swapExactTokensForETH",
		 "outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],
		 "stateMutability":"nonpayable","type":"function"},

		{"inputs":[
			{"internalType":"uint256","name":"amountIn","type":"uint256"},
			{"internalType":"uint256","name":"amountOutMin","type":"uint256"},
			{"internalType":"address[]","name":"path","type":"address[]"},
			{"internalType":"address","name":"to","type":"address"},
			{"internalType":"uint256","name":"deadline","type":"uint256"}],
		 "name":"swapExactTokensForETHSupportingFeeOnTransferTokens",
		 "outputs":[],
		 "stateMutability":"nonpayable","type":"function"},

		{"inputs":[
			{"internalType":"uint256","name":"amountIn","type":"uint256"},
			{"internalType":"uint256","name":"amountOutMin","type":"uint256"},
			{"internalType":"address[]","name":"path","type":"address[]"},
			{"internalType":"address","name":"to","type":"address"},
			{"internalType":"uint256","name":"deadline","type":"uint256"}],
		 "name":"swapExactTokensForTokens",
		 "outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],
		 "stateMutability":"nonpayable","type":"function"},

		{"inputs":[
			{"internalType":"uint256","name":"amountIn","type":"uint256"},
			{"internalType":"uint256","name":"amountOutMin","type":"uint256"},
			{"internalType":"address[]","name":"path","type":"address[]"},
			{"internalType":"address","name":"to","type":"address"},
			{"internalType":"uint256","name":"deadline","type":"uint256"}],
		 "name":"swapExactTokensForTokensSupportingFeeOnTransferTokens",
		 "outputs":[],
		 "stateMutability":"nonpayable","type":"function"}
	]`

	// Concentrated-liquidity router: single-hop exact-in struct call.
	RouterV3ABI = `[
		{"inputs":[{"components":[
			{"internalType":"address","name":"tokenIn","type":"address"},
			{"internalType":"address","name":"tokenOut","type":"address"},
			{"internalType":"uint24","name":"fee","type":"uint24"},
			{"internalType":"address","name":"recipient","type":"address"},
			{"internalType":"uint256","name":"deadline","type":"uint256"},
			{"internalType":"uint256","name":"amountIn","type":"uint256"},
			{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"},
			{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],
			"internalType":"struct ISwapRouter.ExactInputSingleParams","name":"params","type":"tuple"}],
		 "name":"exactInputSingle",
		 "outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],
		 "stateMutability":"payable","type":"function"}
	]`

	// Flat two-sided swap shape used by aggregator-style routers.
	RouterGenericABI = `[
		{"inputs":[
			{"internalType":"address","name":"tokenIn","type":"address"},
			{"internalType":"address","name":"tokenOut","type":"address"},
			{"internalType":"uint256","name":"amountIn","type":"uint256"},
			{"internalType":"uint256","name":"amountOutMin","type":"uint256"},
			{"internalType":"address","name":"to","type":"address"},
			{"internalType":"uint256","name":"deadline","type":"uint256"}],
		 "name":"swap",
		 "outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],
		 "stateMutability":"nonpayable","type":"function"}
	]`

	ERC20ABI = `[
		{"constant":true,"inputs":[{"name":"_owner","type":"address"}],
		 "name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
		{"constant":false,"inputs":[
			{"name":"_spender","type":"address"},
			{"name":"_value","type":"uint256"}],
		 "name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
		{"constant":true,"inputs":[
			{"name":"_owner","type":"address"},
			{"name":"_spender","type":"address"}],
		 "name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
		{"constant":true,"inputs":[],
		 "name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
	]`
)

var (
	parseOnce sync.Once

	routerV2      abi.ABI
	routerV3      abi.ABI
	routerGeneric abi.ABI
	erc20         abi.ABI
)

func parseAll() {
	parseOnce.Do(func() {
		// The fragments are compile-time constants; a parse failure is a
		// programming error, not a runtime condition.
		mustParse := func(raw string) abi.ABI {
			parsed, err := abi.JSON(strings.NewReader(raw))
			if err != nil {
				panic("venue: bad ABI fragment: " + err.Error())
			}
			return parsed
		}
		routerV2 = mustParse(RouterV2ABI)
		routerV3 = mustParse(RouterV3ABI)
		routerGeneric = mustParse(RouterGenericABI)
		erc20 = mustParse(ERC20ABI)
	})
}

func RouterV2() abi.ABI      { parseAll(); return routerV2 }
func RouterV3() abi.ABI      { parseAll(); return routerV3 }
func RouterGeneric() abi.ABI { parseAll(); return routerGeneric }
func ERC20() abi.ABI         { parseAll(); return erc20 }

// RouterABIFor maps a calling convention to its parsed router ABI.
func RouterABIFor(c CallingConvention) abi.ABI {
	switch c {
	case ConcentratedSingleHop:
		return RouterV3()
	case GenericTwoSidedSwap:
		return RouterGeneric()
	default:
		return RouterV2()
	}
}
