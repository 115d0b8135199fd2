package helpers

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ValidateAddress parses and sanity-checks a hex address. The zero address
// is rejected; it is a burn target, never a counterparty.
func ValidateAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address format: %s", address)
	}
	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address not allowed")
	}
	return addr, nil
}

// ValidateAmount rejects nil, zero, and negative amounts.
func ValidateAmount(amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("amount is nil")
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

// ValidatePrivateKey parses a hex-encoded secp256k1 key and derives its
// address.
func ValidatePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, common.Address, error) {
	if privateKeyHex == "" {
		return nil, common.Address{}, fmt.Errorf("private key is empty")
	}
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	if len(privateKeyHex) != 64 {
		return nil, common.Address{}, fmt.Errorf("invalid private key length")
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("invalid private key: %w", err)
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, common.Address{}, fmt.Errorf("invalid public key type")
	}
	return key, crypto.PubkeyToAddress(*pub), nil
}

// SameAddress compares two addresses case-insensitively. common.Address is
// already canonical; this exists for call sites holding raw hex strings.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(a, "0x"), strings.TrimPrefix(b, "0x"))
}

// ValidateGasFeeCap enforces the configured ceiling on the fee cap.
func ValidateGasFeeCap(feeCap, maxFeeCap *big.Int) error {
	if feeCap == nil || feeCap.Sign() <= 0 {
		return fmt.Errorf("gas fee cap must be positive")
	}
	if maxFeeCap != nil && feeCap.Cmp(maxFeeCap) > 0 {
		return fmt.Errorf("gas fee cap %s gwei exceeds maximum %s gwei",
			WeiToGwei(feeCap), WeiToGwei(maxFeeCap))
	}
	return nil
}
