// Package venue holds the static registry of swap venues. A venue is a
// router contract plus the calling convention its swap method expects. The
// catalog is a value passed into the selector and builder, never global
// state: tests and per-network deployments swap it wholesale.
package venue

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type Network string

const (
	Ethereum Network = "ethereum"
	Base     Network = "base"
	BSC      Network = "bsc"
)

// CallingConvention is the closed set of router call shapes the builder
// knows how to encode. One encoder per variant, selected by a single
// switch, so an unhandled shape is caught at compile time rather than by a
// runtime string lookup.
type CallingConvention int

const (
	NativeInFixedOut CallingConvention = iota
	TokenInNativeOutFixedIn
	TokenInTokenOutFixedIn
	ConcentratedSingleHop
	GenericTwoSidedSwap
)

func (c CallingConvention) String() string {
	switch c {
	case NativeInFixedOut:
		return "nativeInFixedOut"
	case TokenInNativeOutFixedIn:
		return "tokenInNativeOutFixedIn"
	case TokenInTokenOutFixedIn:
		return "tokenInTokenOutFixedIn"
	case ConcentratedSingleHop:
		return "concentratedSingleHop"
	case GenericTwoSidedSwap:
		return "genericTwoSidedSwap"
	default:
		return "unknown"
	}
}

// Profile describes one venue. Static, loaded at process start.
type Profile struct {
	ID         string
	Router     common.Address
	Factory    common.Address // optional, zero when the venue has none
	Convention CallingConvention

	// FeeTier applies to ConcentratedSingleHop venues (e.g. 3000 = 0.30%).
	FeeTier int64

	// DefaultGas is the hardcoded budget used when gas estimation reverts
	// for a reason that is not a recognized liquidity failure.
	DefaultGas uint64
}

func (p Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("venue: empty ID")
	}
	if p.Router == (common.Address{}) {
		return fmt.Errorf("venue %s: router must be set", p.ID)
	}
	if p.Convention == ConcentratedSingleHop && p.FeeTier <= 0 {
		return fmt.Errorf("venue %s: concentrated venue needs a fee tier", p.ID)
	}
	if p.DefaultGas == 0 {
		return fmt.Errorf("venue %s: default gas must be set", p.ID)
	}
	return nil
}

// Catalog is a priority-ordered, read-only venue table. The order of All()
// is a deliberate preference (historically deepest liquidity first), not
// derived data.
type Catalog struct {
	ordered []Profile
	byID    map[string]Profile
	wrapped common.Address
}

// NewCatalog builds a catalog from a priority-ordered profile list and the
// network's wrapped-native token address.
func NewCatalog(wrappedNative common.Address, profiles []Profile) (*Catalog, error) {
	if wrappedNative == (common.Address{}) {
		return nil, fmt.Errorf("venue: wrapped-native address must be set")
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("venue: catalog cannot be empty")
	}
	c := &Catalog{
		ordered: make([]Profile, 0, len(profiles)),
		byID:    make(map[string]Profile, len(profiles)),
		wrapped: wrappedNative,
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("venue: duplicate ID %q", p.ID)
		}
		c.ordered = append(c.ordered, p)
		c.byID[p.ID] = p
	}
	return c, nil
}

// All returns the profiles in probing priority order.
func (c *Catalog) All() []Profile {
	out := make([]Profile, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// ByID looks up a venue; ok is false for unknown IDs.
func (c *Catalog) ByID(id string) (Profile, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// WrappedNative is the chain's wrapped-native token address. The native
// asset never appears as a swap leg directly.
func (c *Catalog) WrappedNative() common.Address {
	return c.wrapped
}

// DefaultCatalog returns the built-in catalog for a network preset.
func DefaultCatalog(network Network) (*Catalog, error) {
	switch network {
	case Ethereum:
		return NewCatalog(
			common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
			[]Profile{
				{
					ID:         "uniswap-v3",
					Router:     common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
					Factory:    common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
					Convention: ConcentratedSingleHop,
					FeeTier:    3000,
					DefaultGas: 350000,
				},
				{
					ID:         "uniswap-v2",
					Router:     common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
					Factory:    common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
					Convention: TokenInTokenOutFixedIn,
					DefaultGas: 300000,
				},
				{
					ID:         "sushiswap",
					Router:     common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"),
					Factory:    common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"),
					Convention: TokenInNativeOutFixedIn,
					DefaultGas: 300000,
				},
				{
					ID:         "shibaswap",
					Router:     common.HexToAddress("0x03f7724180AA6b939894B5Ca4314783B0b36b329"),
					Factory:    common.HexToAddress("0x115934131916C8b277DD010Ee02de363c09d037c"),
					Convention: NativeInFixedOut,
					DefaultGas: 280000,
				},
			})
	case Base:
		return NewCatalog(
			common.HexToAddress("0x4200000000000000000000000000000000000006"),
			[]Profile{
				{
					ID:         "uniswap-v3",
					Router:     common.HexToAddress("0x2626664c2603336E57B271c5C0b26F421741e481"),
					Factory:    common.HexToAddress("0x33128a8fC17869897dcE68Ed026d694621f6FDfD"),
					Convention: ConcentratedSingleHop,
					FeeTier:    3000,
					DefaultGas: 350000,
				},
				{
					ID:         "baseswap",
					Router:     common.HexToAddress("0x327Df1E6de05895d2ab08513aaDD9313Fe505d86"),
					Factory:    common.HexToAddress("0xFDa619b6d20975be80A10332cD39b9a4b0FAa8BB"),
					Convention: TokenInTokenOutFixedIn,
					DefaultGas: 300000,
				},
				{
					ID:         "rocketswap",
					Router:     common.HexToAddress("0x4cf76043B3f97ba06917cBd90F9e3A2AAC1B306e"),
					Convention: GenericTwoSidedSwap,
					DefaultGas: 400000,
				},
			})
	case BSC:
		return NewCatalog(
			common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"),
			[]Profile{
				{
					ID:         "pancakeswap",
					Router:     common.HexToAddress("0x10ED43C718714eb63d5aA57B78B54704E256024E"),
					Factory:    common.HexToAddress("0xcA143Ce32Fe78f1f7019d7d551a6402fC5350c73"),
					Convention: TokenInTokenOutFixedIn,
					DefaultGas: 300000,
				},
				{
					ID:         "biswap",
					Router:     common.HexToAddress("0x3a6d8cA21D1CF76F653A67577FA0D27453350dD8"),
					Factory:    common.HexToAddress("0x858E3312ed3A876947EA49d572A7C42DE08af7EE"),
					Convention: NativeInFixedOut,
					DefaultGas: 280000,
				},
			})
	default:
		return nil, fmt.Errorf("venue: unknown network preset %q", network)
	}
}
