package cipher

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
)

// ephemKeySize is the length of the uncompressed ephemeral key ecies
// prepends to its output.
const ephemKeySize = 65

var errShortCiphertext = errors.New("ecies ciphertext too short")

// Envelope is an ECIES ciphertext split into its hex-encoded parts. It is
// the blob carried in a message payload.
type Envelope struct {
	IV             string `json:"iv"`
	EphemPublicKey string `json:"ephemPublicKey"`
	Ciphertext     string `json:"ciphertext"`
	MAC            string `json:"mac"`
}

// Encrypt seals plaintext to the holder of recipient, a hex public key or
// did:key.
func Encrypt(plaintext []byte, recipient string) (*Envelope, error) {
	pubHex, err := ResolvePublicKey(recipient)
	if err != nil {
		return nil, err
	}
	pub, err := DecodePublicKey(pubHex)
	if err != nil {
		return nil, err
	}
	eciesPub := ecies.ImportECDSAPublic(pub)
	sealed, err := ecies.Encrypt(rand.Reader, eciesPub, plaintext, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ecies encrypt: %w", err)
	}
	return splitSealed(sealed, eciesPub.Params)
}

// Decrypt opens env with the 32-byte private key.
func Decrypt(env *Envelope, privateKey []byte) ([]byte, error) {
	if env == nil {
		return nil, errors.New("nil envelope")
	}
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	sealed, err := env.join()
	if err != nil {
		return nil, err
	}
	plaintext, err := ecies.ImportECDSA(key).Decrypt(sealed, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ecies decrypt: %w", err)
	}
	return plaintext, nil
}

// sealed layout: ephemeral key || iv || body || mac
func splitSealed(sealed []byte, params *ecies.ECIESParams) (*Envelope, error) {
	ivLen := params.BlockSize
	macLen := params.Hash().Size()
	if len(sealed) < ephemKeySize+ivLen+macLen {
		return nil, errShortCiphertext
	}
	bodyEnd := len(sealed) - macLen
	return &Envelope{
		EphemPublicKey: hex.EncodeToString(sealed[:ephemKeySize]),
		IV:             hex.EncodeToString(sealed[ephemKeySize : ephemKeySize+ivLen]),
		Ciphertext:     hex.EncodeToString(sealed[ephemKeySize+ivLen : bodyEnd]),
		MAC:            hex.EncodeToString(sealed[bodyEnd:]),
	}, nil
}

func (e *Envelope) join() ([]byte, error) {
	var out []byte
	for _, part := range []struct{ name, hex string }{
		{"ephemPublicKey", e.EphemPublicKey},
		{"iv", e.IV},
		{"ciphertext", e.Ciphertext},
		{"mac", e.MAC},
	} {
		b, err := hex.DecodeString(part.hex)
		if err != nil {
			return nil, fmt.Errorf("envelope %s: %w", part.name, err)
		}
		out = append(out, b...)
	}
	if len(out) < ephemKeySize {
		return nil, errShortCiphertext
	}
	return out, nil
}
