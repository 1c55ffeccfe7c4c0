// Package cipher provides the secp256k1 identity and cipher primitives the
// commit engine is built on: keccak-256 hashing, recoverable ECDSA
// signatures, key derivation, and ECIES envelopes for private messages.
package cipher

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// SignatureSize is [R || S || V].
	SignatureSize = 65

	// PublicKeySize is the uncompressed point without the 0x04 tag.
	PublicKeySize = 64

	// recoveryOffset is added to V on the wire, as in Ethereum.
	recoveryOffset = 27
)

var errBadSignature = errors.New("malformed signature")

// Secp256k1 implements commit.Provider with go-ethereum's secp256k1 and
// keccak-256. The zero value is ready to use.
type Secp256k1 struct{}

// Hash returns the keccak-256 digest of data.
func (Secp256k1) Hash(data []byte) []byte {
	return crypto.Keccak256(data)
}

// Sign produces a 65-byte recoverable signature with V in {27, 28}.
func (Secp256k1) Sign(privateKey, digest []byte) ([]byte, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, err
	}
	sig[64] += recoveryOffset
	return sig, nil
}

// RecoverPublicKey returns the 64-byte public key that produced signature
// over digest. V must be 27 or 28 and S must be in the lower half order.
func (Secp256k1) RecoverPublicKey(signature, digest []byte) ([]byte, error) {
	if len(signature) != SignatureSize {
		return nil, fmt.Errorf("%w: length %d, want %d", errBadSignature, len(signature), SignatureSize)
	}
	sig := bytes.Clone(signature)
	if sig[64] != recoveryOffset && sig[64] != recoveryOffset+1 {
		return nil, fmt.Errorf("%w: recovery id %d", errBadSignature, sig[64])
	}
	sig[64] -= recoveryOffset
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[64], r, s, true) {
		return nil, fmt.Errorf("%w: r/s out of range", errBadSignature)
	}

	pub, err := crypto.Ecrecover(digest, sig)
	if err != nil {
		return nil, err
	}
	return pub[1:], nil
}

// PrivateKeyToPublicKey derives the 64-byte public key of a 32-byte secret.
func (Secp256k1) PrivateKeyToPublicKey(privateKey []byte) ([]byte, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	return crypto.FromECDSAPub(&key.PublicKey)[1:], nil
}

// DecodePublicKey parses a hex public key, with or without 0x, in either
// the 64-byte form or the 65-byte 0x04-tagged form.
func DecodePublicKey(s string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) == PublicKeySize {
		raw = append([]byte{0x04}, raw...)
	}
	pub, err := crypto.UnmarshalPubkey(raw)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return pub, nil
}

// EncodePublicKey renders pub in the commit's publicKey form.
func EncodePublicKey(pub *ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(pub)[1:])
}
