package commit

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Provider is the identity and cipher primitive set the engine is built on.
// Keys and signatures are raw bytes in the provider's own encoding.
type Provider interface {
	Hasher
	Sign(privateKey, digest []byte) ([]byte, error)
	RecoverPublicKey(signature, digest []byte) ([]byte, error)
	PrivateKeyToPublicKey(privateKey []byte) ([]byte, error)
}

// Sign signs digest and returns the signature in its 0x-prefixed hex wire form.
// It never sees payload bytes, only the digest.
func Sign(p Provider, privateKey, digest []byte) (string, error) {
	sig, err := p.Sign(privateKey, digest)
	if err != nil {
		return "", fmt.Errorf("%w: sign: %v", ErrCommitCreationFailed, err)
	}
	return hexutil.Encode(sig), nil
}

// RecoverSigner returns the hex public key that produced signature over digest.
// signature must be in the form Sign produces.
func RecoverSigner(p Provider, signature string, digest []byte) (string, error) {
	raw, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrInvalidSignature, err)
	}
	// One signature, one wire string: the commit id covers these bytes.
	if hexutil.Encode(raw) != signature {
		return "", fmt.Errorf("%w: not lowercase 0x hex", ErrInvalidSignature)
	}
	pub, err := p.RecoverPublicKey(raw, digest)
	if err != nil {
		return "", fmt.Errorf("%w: recover: %v", ErrInvalidSignature, err)
	}
	return hex.EncodeToString(pub), nil
}

// PublicKeyHex derives the hex public key for privateKey.
func PublicKeyHex(p Provider, privateKey []byte) (string, error) {
	pub, err := p.PrivateKeyToPublicKey(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: derive public key: %v", ErrCommitCreationFailed, err)
	}
	return hex.EncodeToString(pub), nil
}
