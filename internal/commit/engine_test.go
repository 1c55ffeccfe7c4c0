package commit

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/memex-commit/internal/cipher"
	"github.com/systemshift/memex-commit/internal/metrics"
)

var testNow = time.Date(2024, 3, 14, 15, 9, 26, 535_897_932, time.UTC)

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return testNow }
	}
	return NewEngine(cipher.Secp256k1{}, cfg, nil)
}

func testKey(t *testing.T) []byte {
	t.Helper()
	id, err := cipher.CreateIdentity()
	require.NoError(t, err)
	secret, err := id.SigningKey()
	require.NoError(t, err)
	return secret
}

func commitDigest(t *testing.T, c *Commit) []byte {
	t.Helper()
	serialized, err := Serialize(c.Data)
	require.NoError(t, err)
	return Digest(cipher.Secp256k1{}, serialized, c.CommitAt, c.Nonce)
}

func TestCreateVerifyRoundTrip(t *testing.T) {
	eng := testEngine(t, Config{})
	key := testKey(t)
	pub, err := PublicKeyHex(cipher.Secp256k1{}, key)
	require.NoError(t, err)

	for d := 0; d <= 4; d++ {
		c, err := eng.CreateCommit(context.Background(), key, NewPost("", "round trip", []string{"test"}), d)
		require.NoError(t, err, "difficulty %d", d)

		require.Equal(t, TypePost, c.Type)
		require.Equal(t, pub, c.PublicKey)
		require.True(t, strings.HasPrefix(c.Signature, "0x"))
		require.Equal(t, testNow.Truncate(time.Millisecond), c.CommitAt)
		require.True(t, eng.VerifyCommit(c, d), "difficulty %d", d)
		require.NoError(t, eng.Check(c, d))

		// Soundness and minimality of the stored nonce.
		digest := commitDigest(t, c)
		require.True(t, strings.HasPrefix(hex.EncodeToString(digest), strings.Repeat("0", d)))
		if c.Nonce > 1 {
			prev := *c
			prev.Nonce--
			require.False(t, SatisfiesDifficulty(commitDigest(t, &prev), d))
		}
	}
}

func TestHelloBoyScenario(t *testing.T) {
	eng := testEngine(t, Config{})
	payload := &Post{Content: "Hello Boy", Hashtags: []string{"news"}, Attachments: []Attachment{}}

	c, err := eng.CreateCommit(context.Background(), testKey(t), payload, 4)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hex.EncodeToString(commitDigest(t, c)), "0000"))
	require.True(t, eng.VerifyCommit(c, 4))

	fifth := SatisfiesDifficulty(commitDigest(t, c), 5)
	require.Equal(t, fifth, eng.VerifyCommit(c, 5))
}

func TestTamperDetection(t *testing.T) {
	eng := testEngine(t, Config{})
	key := testKey(t)
	const d = 2

	fresh := func() *Commit {
		c, err := eng.CreateCommit(context.Background(), key, NewPost("", "original", []string{"a"}), d)
		require.NoError(t, err)
		return c
	}
	other, err := PublicKeyHex(cipher.Secp256k1{}, testKey(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Commit)
	}{
		{"data", func(c *Commit) { c.Data.(*Post).Content = "forged" }},
		{"data hashtags", func(c *Commit) { c.Data.(*Post).Hashtags = append(c.Data.(*Post).Hashtags, "b") }},
		{"commitAt", func(c *Commit) { c.CommitAt = c.CommitAt.Add(time.Millisecond) }},
		{"nonce", func(c *Commit) { c.Nonce++ }},
		{"signature", func(c *Commit) {
			b := []byte(c.Signature)
			if b[10] == 'a' {
				b[10] = 'b'
			} else {
				b[10] = 'a'
			}
			c.Signature = string(b)
		}},
		{"signature truncated", func(c *Commit) { c.Signature = c.Signature[:len(c.Signature)-2] }},
		{"publicKey", func(c *Commit) { c.PublicKey = other }},
		{"type", func(c *Commit) { c.Type = TypeMeta }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fresh()
			require.True(t, eng.VerifyCommit(c, d))
			tt.mutate(c)
			require.False(t, eng.VerifyCommit(c, d))
		})
	}
}

func TestCheckErrorKinds(t *testing.T) {
	eng := testEngine(t, Config{})
	key := testKey(t)
	c, err := eng.CreateCommit(context.Background(), key, NewPost("", "kinds", nil), 1)
	require.NoError(t, err)

	mut := *c
	mut.PublicKey = strings.Repeat("ab", 64)
	require.ErrorIs(t, eng.Check(&mut, 1), ErrSignerMismatch)

	mut = *c
	mut.Signature = "0xzz"
	require.ErrorIs(t, eng.Check(&mut, 1), ErrInvalidSignature)

	mut = *c
	mut.Nonce = 0
	require.ErrorIs(t, eng.Check(&mut, 0), ErrDifficultyNotMet)

	mut = *c
	mut.Data = NewPost("", "x", []string{"no spaces allowed"})
	require.ErrorIs(t, eng.Check(&mut, 1), ErrInvalidPayloadSchema)

	mut = *c
	mut.Type = Type("poll")
	require.ErrorIs(t, eng.Check(&mut, 1), ErrInvalidPayloadSchema)

	require.ErrorIs(t, eng.Check(nil, 1), ErrMalformedCommit)
	require.ErrorIs(t, eng.Check(c, -1), ErrInvalidDifficulty)
	require.False(t, eng.VerifyCommit(nil, 1))
}

func TestDifficultyMonotonicity(t *testing.T) {
	eng := testEngine(t, Config{})
	key := testKey(t)

	for d := 0; d < 3; d++ {
		c, err := eng.CreateCommit(context.Background(), key, NewPost("", "mono", nil), d)
		require.NoError(t, err)

		// Anything accepted at d+1 is accepted at d.
		if eng.VerifyCommit(c, d+1) {
			require.True(t, eng.VerifyCommit(c, d))
		}
		// A nonce that meets only d is rejected at d+1.
		digest := commitDigest(t, c)
		if !SatisfiesDifficulty(digest, d+1) {
			require.False(t, eng.VerifyCommit(c, d+1))
		}
	}
}

func TestMessageVariant(t *testing.T) {
	eng := testEngine(t, Config{})
	key := testKey(t)
	receiver, err := cipher.CreateIdentity()
	require.NoError(t, err)

	env, err := cipher.Encrypt([]byte("psst"), receiver.PublicKey)
	require.NoError(t, err)
	msg, err := NewMessage(receiver.PublicKey, env)
	require.NoError(t, err)

	c, err := eng.CreateCommit(context.Background(), key, msg, 1)
	require.NoError(t, err)
	require.Equal(t, TypeMessage, c.Type)
	require.True(t, eng.VerifyCommit(c, 1))

	// Any blob is accepted.
	opaque, err := NewMessage(receiver.PublicKey, []int{1, 2, 3})
	require.NoError(t, err)
	_, err = eng.CreateCommit(context.Background(), key, opaque, 0)
	require.NoError(t, err)

	// A missing receiver is not.
	_, err = eng.CreateCommit(context.Background(), key, &Message{Message: []byte(`"x"`)}, 0)
	require.ErrorIs(t, err, ErrInvalidPayloadSchema)
}

func TestCreateCommitErrors(t *testing.T) {
	eng := testEngine(t, Config{})

	_, err := eng.CreateCommit(context.Background(), []byte{1, 2, 3}, NewPost("", "x", nil), 0)
	require.ErrorIs(t, err, ErrCommitCreationFailed)

	_, err = eng.CreateCommit(context.Background(), testKey(t), nil, 0)
	require.ErrorIs(t, err, ErrInvalidPayloadSchema)

	_, err = eng.CreateCommit(context.Background(), testKey(t), NewPost("", "x", nil), MaxDifficulty+1)
	require.ErrorIs(t, err, ErrInvalidDifficulty)
}

func TestCreateCommitGuardRails(t *testing.T) {
	key := testKey(t)

	eng := testEngine(t, Config{MaxAttempts: 10})
	_, err := eng.CreateCommit(context.Background(), key, NewPost("", "x", nil), MaxDifficulty)
	require.ErrorIs(t, err, ErrMaxAttempts)

	eng = testEngine(t, Config{Timeout: 20 * time.Millisecond})
	_, err = eng.CreateCommit(context.Background(), key, NewPost("", "x", nil), MaxDifficulty)
	require.ErrorIs(t, err, ErrMiningCancelled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = testEngine(t, Config{}).CreateCommit(ctx, key, NewPost("", "x", nil), 1)
	require.ErrorIs(t, err, ErrMiningCancelled)
}

func TestCreateCommitsKeepsOrder(t *testing.T) {
	eng := testEngine(t, Config{Workers: 3})
	key := testKey(t)

	payloads := make([]Payload, 8)
	for i := range payloads {
		payloads[i] = NewPost("", strings.Repeat("x", i+1), nil)
	}
	commits, err := eng.CreateCommits(context.Background(), key, payloads, 1)
	require.NoError(t, err)
	require.Len(t, commits, len(payloads))
	for i, c := range commits {
		require.Equal(t, payloads[i].(*Post).Content, c.Data.(*Post).Content)
		require.True(t, eng.VerifyCommit(c, 1))
	}
}

func TestCreateCommitsFailsFast(t *testing.T) {
	eng := testEngine(t, Config{Workers: 2})
	payloads := []Payload{
		NewPost("", "ok", nil),
		NewPost("", "bad", []string{"#bad"}),
	}
	_, err := eng.CreateCommits(context.Background(), testKey(t), payloads, 1)
	require.ErrorIs(t, err, ErrInvalidPayloadSchema)
	require.Contains(t, err.Error(), "payload 1")
}

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	eng := testEngine(t, Config{Metrics: metrics.NewCommitMetrics(reg)})
	key := testKey(t)

	c, err := eng.CreateCommit(context.Background(), key, NewPost("", "m", nil), 1)
	require.NoError(t, err)
	require.True(t, eng.VerifyCommit(c, 1))
	c.Nonce = 0
	require.False(t, eng.VerifyCommit(c, 1))

	n, err := testutil.GatherAndCount(reg, "commit_verifications_total")
	require.NoError(t, err)
	require.Equal(t, 2, n) // ok and difficulty series

	n, err = testutil.GatherAndCount(reg, "commit_created_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestSignatureHasOneEncoding(t *testing.T) {
	eng := testEngine(t, Config{})
	c, err := eng.CreateCommit(context.Background(), testKey(t), NewPost("", "one encoding", nil), 1)
	require.NoError(t, err)
	require.NoError(t, eng.Check(c, 1))

	body, v := c.Signature[2:len(c.Signature)-2], c.Signature[len(c.Signature)-2:]
	require.Contains(t, []string{"1b", "1c"}, v)
	shifted := map[string]string{"1b": "00", "1c": "01"}[v]

	variants := map[string]string{
		"raw recovery id": "0x" + body + shifted,
		"uppercase hex":   "0x" + strings.ToUpper(body+v),
		"uppercase 0X":    "0X" + body + v,
	}
	for name, sig := range variants {
		require.NotEqual(t, c.Signature, sig, name)
		mut := *c
		mut.Signature = sig
		require.ErrorIs(t, eng.Check(&mut, 1), ErrInvalidSignature, name)
	}
}

func TestCommitIndependentOfCallerPayload(t *testing.T) {
	eng := testEngine(t, Config{})
	key := testKey(t)

	tags := []string{"before"}
	post := NewPost("", "before", tags, NewCIDAttachment(AttachmentImage, "bafkimage"))
	c, err := eng.CreateCommit(context.Background(), key, post, 1)
	require.NoError(t, err)

	post.Content = "after"
	tags[0] = "after"
	post.Attachments[0].Type = AttachmentVideo
	*post.Attachments[0].CID = "bafkother"

	got := c.Data.(*Post)
	require.Equal(t, "before", got.Content)
	require.Equal(t, []string{"before"}, got.Hashtags)
	require.Equal(t, AttachmentImage, got.Attachments[0].Type)
	require.Equal(t, "bafkimage", *got.Attachments[0].CID)
	require.True(t, eng.VerifyCommit(c, 1))

	meta := &Meta{Name: "alice", Followed: []string{"ab"}}
	mc, err := eng.CreateCommit(context.Background(), key, meta, 0)
	require.NoError(t, err)
	meta.Followed[0] = "cd"
	require.Equal(t, []string{"ab"}, mc.Data.(*Meta).Followed)
	require.True(t, eng.VerifyCommit(mc, 0))
}
