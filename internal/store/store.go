// Package store keeps commits on disk addressed by CommitId, a CIDv1 of the
// commit's canonical JSON.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"

	"github.com/systemshift/memex-commit/internal/commit"
	"github.com/systemshift/memex-commit/internal/fsutil"
)

// ErrNotFound is returned by Get for an id the store does not hold.
var ErrNotFound = errors.New("commit not found")

// CommitStore manages CID-addressed commit files in one directory.
type CommitStore struct {
	dir string
}

// Open creates dir if needed and returns a store over it.
func Open(dir string) (*CommitStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &CommitStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *CommitStore) Dir() string { return s.dir }

// ComputeID computes a CIDv1 (raw codec, SHA2-256) for encoded commit bytes.
func ComputeID(data []byte) (gocid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return gocid.Undef, fmt.Errorf("multihash: %w", err)
	}
	return gocid.NewCidV1(gocid.Raw, mh), nil
}

// CommitID returns the id c is stored under.
func CommitID(c *commit.Commit) (gocid.Cid, error) {
	if c == nil {
		return gocid.Undef, errors.New("nil commit")
	}
	data, err := c.MarshalJSON()
	if err != nil {
		return gocid.Undef, err
	}
	return ComputeID(data)
}

// ParseID decodes a CommitId in any multibase form.
func ParseID(s string) (gocid.Cid, error) {
	c, err := gocid.Decode(s)
	if err != nil {
		return gocid.Undef, fmt.Errorf("parse commit id %q: %w", s, err)
	}
	return c, nil
}

// filename is the base32lower encoding of id.
func filename(id gocid.Cid) string {
	encoded, _ := multibase.Encode(multibase.Base32, id.Bytes())
	return encoded
}

func (s *CommitStore) path(id gocid.Cid) string {
	return filepath.Join(s.dir, filename(id))
}

// Put writes c in its canonical wire form and returns its id. Storing a
// commit that is already present is a no-op.
func (s *CommitStore) Put(c *commit.Commit) (gocid.Cid, error) {
	if c == nil {
		return gocid.Undef, errors.New("put nil commit")
	}
	data, err := c.MarshalJSON()
	if err != nil {
		return gocid.Undef, fmt.Errorf("encode commit: %w", err)
	}
	id, err := ComputeID(data)
	if err != nil {
		return gocid.Undef, err
	}
	if _, err := fsutil.WriteOnce(s.path(id), data, 0644); err != nil {
		return gocid.Undef, fmt.Errorf("write commit: %w", err)
	}
	return id, nil
}

// GetRaw reads the stored bytes for id.
func (s *CommitStore) GetRaw(id gocid.Cid) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", id, err)
	}
	return data, nil
}

// Get reads and decodes the commit stored under id. The bytes are checked
// against id before decoding.
func (s *CommitStore) Get(id gocid.Cid) (*commit.Commit, error) {
	data, err := s.GetRaw(id)
	if err != nil {
		return nil, err
	}
	got, err := ComputeID(data)
	if err != nil {
		return nil, err
	}
	if !got.Equals(id) {
		return nil, fmt.Errorf("commit %s: content hashes to %s", id, got)
	}
	var c commit.Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode commit %s: %w", id, err)
	}
	return &c, nil
}

// Has reports whether id is stored.
func (s *CommitStore) Has(id gocid.Cid) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// List returns the ids of all stored commits in filename order. Files that
// are not commit ids, such as leftover temp files, are skipped.
func (s *CommitStore) List() ([]gocid.Cid, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	ids := make([]gocid.Cid, 0, len(names))
	for _, name := range names {
		id, err := gocid.Decode(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
