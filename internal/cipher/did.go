package cipher

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/multiformats/go-multibase"
)

const didKeyPrefix = "did:key:"

// secp256k1Multicodec is the varint multicodec prefix for compressed
// secp256k1 public keys (0xe7).
var secp256k1Multicodec = []byte{0xe7, 0x01}

// EncodeDIDKey turns a hex public key into did:key:z... using the secp256k1
// multicodec and base58btc.
func EncodeDIDKey(publicKey string) (string, error) {
	pub, err := DecodePublicKey(publicKey)
	if err != nil {
		return "", err
	}
	prefixed := append(bytes.Clone(secp256k1Multicodec), crypto.CompressPubkey(pub)...)
	encoded, err := multibase.Encode(multibase.Base58BTC, prefixed)
	if err != nil {
		return "", fmt.Errorf("base58 encode: %w", err)
	}
	return didKeyPrefix + encoded, nil
}

// DecodeDIDKey returns the hex public key named by a secp256k1 did:key.
func DecodeDIDKey(did string) (string, error) {
	if !strings.HasPrefix(did, didKeyPrefix+"z") {
		return "", fmt.Errorf("invalid did:key prefix: %q", did)
	}
	enc, data, err := multibase.Decode(strings.TrimPrefix(did, didKeyPrefix))
	if err != nil {
		return "", fmt.Errorf("decode did:key: %w", err)
	}
	if enc != multibase.Base58BTC {
		return "", fmt.Errorf("did:key must be base58btc")
	}
	if !bytes.HasPrefix(data, secp256k1Multicodec) {
		return "", fmt.Errorf("did:key is not a secp256k1 key")
	}
	pub, err := crypto.DecompressPubkey(data[len(secp256k1Multicodec):])
	if err != nil {
		return "", fmt.Errorf("decompress did:key: %w", err)
	}
	return EncodePublicKey(pub), nil
}

// ResolvePublicKey accepts either a did:key or a hex public key and returns
// the hex public key.
func ResolvePublicKey(s string) (string, error) {
	if strings.HasPrefix(s, didKeyPrefix) {
		return DecodeDIDKey(s)
	}
	pub, err := DecodePublicKey(s)
	if err != nil {
		return "", err
	}
	return EncodePublicKey(pub), nil
}
