// Package signer holds Phase A of the sign-and-submit handshake: the only
// code that touches the private key. It turns an UnsignedTx descriptor
// into an opaque SignedBlob; the key itself never crosses the package
// boundary. SignedBlob is a distinct type from UnsignedTx so broadcasting
// an unsigned descriptor is a compile error, not a runtime surprise.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// UnsignedTx is the full transaction descriptor handed to the key holder.
// Immutable by convention: the signer signs exactly these fields.
type UnsignedTx struct {
	To        common.Address
	Value     *big.Int
	Data      []byte
	Nonce     uint64
	GasLimit  uint64
	GasFeeCap *big.Int
	GasTipCap *big.Int
	ChainID   *big.Int
}

func (u *UnsignedTx) validate() error {
	if u.ChainID == nil || u.ChainID.Sign() <= 0 {
		return fmt.Errorf("unsigned tx: chain ID must be set")
	}
	if u.GasFeeCap == nil || u.GasTipCap == nil {
		return fmt.Errorf("unsigned tx: fee caps must be set")
	}
	if u.GasLimit == 0 {
		return fmt.Errorf("unsigned tx: gas limit must be set")
	}
	// Every transaction in this subsystem is a contract call; empty
	// calldata against a router is the silent-failure class.
	if len(u.Data) == 0 {
		return fmt.Errorf("unsigned tx: empty calldata")
	}
	return nil
}

// SignedBlob is the broadcast-ready artifact. Construction happens only
// through Sign and ParseRaw; holders can read the wire bytes and identity
// but cannot alter the payload.
type SignedBlob struct {
	raw  []byte
	hash common.Hash
	from common.Address
}

func (b SignedBlob) Raw() []byte          { return b.raw }
func (b SignedBlob) Hash() common.Hash    { return b.hash }
func (b SignedBlob) From() common.Address { return b.from }

// Signer is Phase A seen from the pipeline.
type Signer interface {
	Address() common.Address
	Sign(u *UnsignedTx) (SignedBlob, error)
}

// LocalSigner keeps the key in process memory. The custody model: the key
// is loaded once at startup, used here, exported nowhere.
type LocalSigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (s *LocalSigner) Address() common.Address { return s.addr }

// Sign produces the signed wire encoding of u as a dynamic-fee
// transaction.
func (s *LocalSigner) Sign(u *UnsignedTx) (SignedBlob, error) {
	if err := u.validate(); err != nil {
		return SignedBlob{}, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   u.ChainID,
		Nonce:     u.Nonce,
		GasTipCap: u.GasTipCap,
		GasFeeCap: u.GasFeeCap,
		Gas:       u.GasLimit,
		To:        &u.To,
		Value:     u.Value,
		Data:      u.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(u.ChainID), s.key)
	if err != nil {
		return SignedBlob{}, fmt.Errorf("sign tx: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return SignedBlob{}, fmt.Errorf("marshal signed tx: %w", err)
	}

	return SignedBlob{raw: raw, hash: signed.Hash(), from: s.addr}, nil
}

// ParseRaw admits an externally signed transaction into the Phase B
// surface. The sender is recovered from the signature, nothing else is
// re-derived, and the payload is never modified.
func ParseRaw(raw []byte) (SignedBlob, error) {
	if len(raw) == 0 {
		return SignedBlob{}, fmt.Errorf("empty signed transaction")
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return SignedBlob{}, fmt.Errorf("decode signed tx: %w", err)
	}
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return SignedBlob{}, fmt.Errorf("recover sender: %w", err)
	}
	return SignedBlob{raw: raw, hash: tx.Hash(), from: from}, nil
}
