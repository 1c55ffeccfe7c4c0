package cipher

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// secret 1 maps to the generator point G.
const (
	oneSecret = "0000000000000000000000000000000000000000000000000000000000000001"
	generator = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798" +
		"483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestHashKeccakVector(t *testing.T) {
	got := hex.EncodeToString(Secp256k1{}.Hash(nil))
	require.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", got)
}

func TestPrivateKeyToPublicKeyVector(t *testing.T) {
	pub, err := Secp256k1{}.PrivateKeyToPublicKey(mustHex(t, oneSecret))
	require.NoError(t, err)
	require.Len(t, pub, PublicKeySize)
	require.Equal(t, generator, hex.EncodeToString(pub))
}

func TestPrivateKeyToPublicKeyRejectsBadKeys(t *testing.T) {
	p := Secp256k1{}
	for _, k := range [][]byte{nil, make([]byte, 31), make([]byte, 32)} {
		_, err := p.PrivateKeyToPublicKey(k)
		require.Error(t, err, "key %x", k)
	}
}

func TestSignRecoverRoundTrip(t *testing.T) {
	p := Secp256k1{}
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	secret := crypto.FromECDSA(key)
	digest := p.Hash([]byte("hello"))

	sig, err := p.Sign(secret, digest)
	require.NoError(t, err)
	require.Len(t, sig, SignatureSize)
	require.Contains(t, []byte{27, 28}, sig[64])

	pub, err := p.RecoverPublicKey(sig, digest)
	require.NoError(t, err)
	want, err := p.PrivateKeyToPublicKey(secret)
	require.NoError(t, err)
	require.Equal(t, want, pub)

	// Raw 0/1 recovery ids would give the same signature a second encoding.
	raw := append([]byte(nil), sig...)
	raw[64] -= recoveryOffset
	_, err = p.RecoverPublicKey(raw, digest)
	require.Error(t, err)
}

func TestRecoverRejectsMalformed(t *testing.T) {
	p := Secp256k1{}
	secret := mustHex(t, oneSecret)
	digest := p.Hash([]byte("x"))
	sig, err := p.Sign(secret, digest)
	require.NoError(t, err)

	_, err = p.RecoverPublicKey(sig[:64], digest)
	require.Error(t, err)

	bad := append([]byte(nil), sig...)
	bad[64] = 31
	_, err = p.RecoverPublicKey(bad, digest)
	require.Error(t, err)

	zero := make([]byte, SignatureSize)
	zero[64] = 27
	_, err = p.RecoverPublicKey(zero, digest)
	require.Error(t, err)
}

func TestRecoverOtherDigestYieldsOtherKey(t *testing.T) {
	p := Secp256k1{}
	secret := mustHex(t, oneSecret)
	sig, err := p.Sign(secret, p.Hash([]byte("a")))
	require.NoError(t, err)

	pub, err := p.RecoverPublicKey(sig, p.Hash([]byte("b")))
	if err == nil {
		require.NotEqual(t, generator, hex.EncodeToString(pub))
	}
}

func TestDecodePublicKeyForms(t *testing.T) {
	for _, s := range []string{generator, "0x" + generator, "04" + generator, strings.ToUpper(generator)} {
		pub, err := DecodePublicKey(s)
		require.NoError(t, err, s)
		require.Equal(t, generator, EncodePublicKey(pub))
	}
	for _, s := range []string{"", "zz", generator[:100], strings.Repeat("00", PublicKeySize)} {
		_, err := DecodePublicKey(s)
		require.Error(t, err, s)
	}
}
