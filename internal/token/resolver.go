// Package token maps user-facing symbols and addresses to on-chain token
// descriptors. Resolution is pure: table lookup plus syntax validation,
// no network calls.
package token

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/greyfield/swaprouter/internal/swaperr"
)

// NativeSymbol is the pseudo-symbol for the chain's native asset. It is
// always substituted by the wrapped token internally; value transfer at
// the transaction level substitutes it back.
const NativeSymbol = "ETH"

// Descriptor is an immutable resolved token.
type Descriptor struct {
	Address         common.Address
	Symbol          string
	Decimals        uint8
	IsNativeWrapper bool
}

// Resolver validates swap legs against a per-network symbol table.
type Resolver struct {
	wrappedNative common.Address
	known         map[string]Descriptor // upper-case symbol -> descriptor
}

// NewResolver builds a resolver around the network's wrapped-native
// address and an optional table of well-known tokens.
func NewResolver(wrappedNative common.Address, known []Descriptor) *Resolver {
	r := &Resolver{
		wrappedNative: wrappedNative,
		known:         make(map[string]Descriptor, len(known)),
	}
	for _, d := range known {
		r.known[strings.ToUpper(d.Symbol)] = d
	}
	return r
}

// Resolve turns a symbol or 0x-address into a Descriptor. explicitAddress,
// when non-empty, wins over any table entry for the symbol: callers that
// already hold the contract address are trusted on it, the symbol then
// only labels the leg. The native symbol maps to the wrapped token with 18
// decimals. Unknown symbols without an explicit address fail as
// unsupported; malformed addresses fail before any other work.
func (r *Resolver) Resolve(symbolOrAddress, explicitAddress string) (Descriptor, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbolOrAddress))

	if sym == NativeSymbol || sym == "W"+NativeSymbol {
		return Descriptor{
			Address:         r.wrappedNative,
			Symbol:          NativeSymbol,
			Decimals:        18,
			IsNativeWrapper: true,
		}, nil
	}

	if explicitAddress != "" {
		addr, err := parseAddress(explicitAddress)
		if err != nil {
			return Descriptor{}, err
		}
		d := Descriptor{Address: addr, Symbol: sym, Decimals: 18}
		if known, ok := r.known[sym]; ok && known.Address == addr {
			d.Decimals = known.Decimals
		}
		return d, nil
	}

	if d, ok := r.known[sym]; ok {
		return d, nil
	}

	// Not a known symbol: the input itself must be an address.
	if strings.HasPrefix(symbolOrAddress, "0x") || strings.HasPrefix(symbolOrAddress, "0X") {
		addr, err := parseAddress(symbolOrAddress)
		if err != nil {
			return Descriptor{}, err
		}
		return Descriptor{Address: addr, Symbol: "", Decimals: 18}, nil
	}

	return Descriptor{}, swaperr.New(swaperr.ClassPrecondition,
		"unsupported token %q: unknown symbol and no address given", symbolOrAddress)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, swaperr.New(swaperr.ClassPrecondition,
			"invalid token address %q", s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, swaperr.New(swaperr.ClassPrecondition,
			"zero address is not a token")
	}
	return addr, nil
}

// MainnetTokens is the built-in symbol table for Ethereum mainnet.
func MainnetTokens() []Descriptor {
	return []Descriptor{
		{Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Symbol: "USDC", Decimals: 6},
		{Address: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), Symbol: "USDT", Decimals: 6},
		{Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Symbol: "DAI", Decimals: 18},
		{Address: common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"), Symbol: "WBTC", Decimals: 8},
	}
}
