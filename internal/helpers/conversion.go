package helpers

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseUnits converts a decimal string ("1.5", "0.000042") into the token's
// smallest unit. Pure integer string arithmetic: token amounts with up to
// 18 decimal places do not survive a float64 round trip.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount: %s", s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", s, decimals)
	}
	// Right-pad the fractional part to the full precision.
	frac += strings.Repeat("0", int(decimals)-len(frac))

	out, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}
	return out, nil
}

// FormatUnits renders a smallest-unit amount for logs and API responses.
// Display only; never feed the result back into arithmetic.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	divisor := new(big.Float).SetInt(new(big.Int).Exp(
		big.NewInt(10), big.NewInt(int64(decimals)), nil))
	v := new(big.Float).SetInt(amount)
	v.Quo(v, divisor)

	f, _ := v.Float64()
	switch {
	case f != 0 && f < 0.0001:
		return fmt.Sprintf("%.8f", f)
	case f < 1:
		return fmt.Sprintf("%.6f", f)
	case f < 100:
		return fmt.Sprintf("%.4f", f)
	default:
		return fmt.Sprintf("%.2f", f)
	}
}

// FormatEth renders wei as ETH.
func FormatEth(wei *big.Int) string {
	return FormatUnits(wei, 18)
}

// GweiToWei parses a gwei string (integer or fractional) into wei.
func GweiToWei(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty gwei amount")
	}
	// Gwei has 9 decimal places of wei.
	return ParseUnits(s, 9)
}

func WeiToGwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return new(big.Int).Div(wei, big.NewInt(1_000_000_000)).String()
}

// SlippageToBps converts a percentage (0.5 means 0.5%) into basis points.
// Two decimal places of a percent are representable exactly.
func SlippageToBps(percent float64) (int64, error) {
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("slippage must be within [0,100], got %v", percent)
	}
	bps := int64(percent*100 + 0.5)
	if bps > 10000 {
		bps = 10000
	}
	return bps, nil
}

// ApplyBps scales amount by (10000-bps)/10000 with floor semantics.
func ApplyBps(amount *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(amount, big.NewInt(10000-bps))
	return out.Div(out, big.NewInt(10000))
}

// ShortAddress renders 0xabcd...1234 for logs.
func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}

// ShortHash renders a truncated transaction hash for logs.
func ShortHash(hash common.Hash) string {
	hex := hash.Hex()
	return hex[:10] + "..." + hex[len(hex)-6:]
}
