package commit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Commit binds a payload to a public key and a timestamp with a
// proof-of-work nonce and a signature over the resulting digest.
// Commits are produced whole by Engine.CreateCommit and are not modified
// afterwards.
type Commit struct {
	CommitAt  time.Time
	Data      Payload
	PublicKey string
	Signature string
	Type      Type
	Nonce     uint64
}

// wireCommit is the six-field JSON form.
type wireCommit struct {
	CommitAt  string          `json:"commitAt"`
	Data      json.RawMessage `json:"data"`
	PublicKey string          `json:"publicKey"`
	Signature string          `json:"signature"`
	Type      Type            `json:"type"`
	Nonce     uint64          `json:"nonce"`
}

var wireFields = []string{"commitAt", "data", "publicKey", "signature", "type", "nonce"}

// MarshalJSON encodes the commit with its data in canonical form.
func (c *Commit) MarshalJSON() ([]byte, error) {
	data, err := Serialize(c.Data)
	if err != nil {
		return nil, err
	}
	return CanonicalJSON(wireCommit{
		CommitAt:  FormatTimestamp(c.CommitAt),
		Data:      data,
		PublicKey: c.PublicKey,
		Signature: c.Signature,
		Type:      c.Type,
		Nonce:     c.Nonce,
	})
}

// UnmarshalJSON decodes the wire form. The object must carry exactly the six
// commit fields and its data must match the schema for its type.
func (c *Commit) UnmarshalJSON(b []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCommit, err)
	}
	if len(obj) != len(wireFields) {
		return fmt.Errorf("%w: got %d fields, want %d", ErrMalformedCommit, len(obj), len(wireFields))
	}
	for _, key := range wireFields {
		if _, ok := obj[key]; !ok {
			return fmt.Errorf("%w: missing %q", ErrMalformedCommit, key)
		}
	}

	var w wireCommit
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCommit, err)
	}
	commitAt, err := ParseTimestamp(w.CommitAt)
	if err != nil {
		return fmt.Errorf("%w: commitAt: %v", ErrMalformedCommit, err)
	}
	data, err := DecodePayload(w.Type, w.Data)
	if err != nil {
		return err
	}

	*c = Commit{
		CommitAt:  commitAt,
		Data:      data,
		PublicKey: w.PublicKey,
		Signature: w.Signature,
		Type:      w.Type,
		Nonce:     w.Nonce,
	}
	return nil
}
