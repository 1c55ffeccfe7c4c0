package cipher

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/systemshift/memex-commit/internal/fsutil"
)

const identityRelPath = ".config/memex/commit-identity.json"

// Identity holds a secp256k1 keypair and the derived DID.
type Identity struct {
	DID        string `json:"did"`
	PublicKey  string `json:"public_key"`  // hex, 64-byte uncompressed point
	PrivateKey string `json:"private_key"` // hex, 32-byte secret
}

// DefaultIdentityPath returns ~/.config/memex/commit-identity.json, or ""
// when the home directory is unknown.
func DefaultIdentityPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, identityRelPath)
}

// CreateIdentity generates a fresh keypair. Nothing is written to disk.
func CreateIdentity() (*Identity, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return identityFromSecret(crypto.FromECDSA(key))
}

// IdentityFromPrivateKey rebuilds an identity from a 32-byte secret.
func IdentityFromPrivateKey(secret []byte) (*Identity, error) {
	return identityFromSecret(secret)
}

func identityFromSecret(secret []byte) (*Identity, error) {
	pub, err := Secp256k1{}.PrivateKeyToPublicKey(secret)
	if err != nil {
		return nil, err
	}
	pubHex := hex.EncodeToString(pub)
	did, err := EncodeDIDKey(pubHex)
	if err != nil {
		return nil, err
	}
	return &Identity{
		DID:        did,
		PublicKey:  pubHex,
		PrivateKey: hex.EncodeToString(secret),
	}, nil
}

// LoadIdentity reads the identity file at path and checks that its public
// key matches its private key.
func LoadIdentity(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}
	var stored Identity
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	secret, err := stored.SigningKey()
	if err != nil {
		return nil, err
	}
	id, err := identityFromSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("identity %s: %w", path, err)
	}
	if id.PublicKey != stored.PublicKey {
		return nil, fmt.Errorf("identity %s: public key does not match private key", path)
	}
	return id, nil
}

// LoadOrCreateIdentity loads the identity at path, generating and saving a
// new one if the file does not exist. created reports which happened.
func LoadOrCreateIdentity(path string) (id *Identity, created bool, err error) {
	id, err = LoadIdentity(path)
	if err == nil {
		return id, false, nil
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		return nil, false, err
	}

	id, err = CreateIdentity()
	if err != nil {
		return nil, false, err
	}
	if err := id.Save(path); err != nil {
		return nil, false, err
	}
	return id, true, nil
}

// Save writes the identity to path with owner-only permissions.
func (id *Identity) Save(path string) error {
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := fsutil.SafeWrite(path, data, 0600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}

// SigningKey returns the raw 32-byte secret.
func (id *Identity) SigningKey() ([]byte, error) {
	secret, err := hex.DecodeString(id.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return secret, nil
}
