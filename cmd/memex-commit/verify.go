package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/systemshift/memex-commit/internal/cipher"
	"github.com/systemshift/memex-commit/internal/commit"
	"github.com/systemshift/memex-commit/internal/store"
)

// readRef loads raw commit bytes from stdin ("-"), a file, or the store.
func readRef(cmd *cobra.Command, e *env, ref string) ([]byte, error) {
	if ref == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	if _, err := os.Stat(ref); err == nil {
		return os.ReadFile(ref)
	}
	id, err := store.ParseID(ref)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a file nor a commit id", ref)
	}
	return e.store.GetRaw(id)
}

func loadCommit(cmd *cobra.Command, e *env, ref string) (*commit.Commit, error) {
	raw, err := readRef(cmd, e, ref)
	if err != nil {
		return nil, err
	}
	var c commit.Commit
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

var errVerifyFailed = errors.New("verification failed")

func newVerifyCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "verify [commit-id|file|-]...",
		Short: "Verify commits against the configured difficulty",
		RunE: runEnv(func(cmd *cobra.Command, e *env, args []string) error {
			refs := args
			if all {
				ids, err := e.store.List()
				if err != nil {
					return err
				}
				for _, id := range ids {
					refs = append(refs, id.String())
				}
			}
			if len(refs) == 0 {
				return errors.New("nothing to verify: pass commit ids, files, - or --all")
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, ref := range refs {
				if err := verifyRef(cmd, e, ref); err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", ref, err)
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", ref)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errVerifyFailed, failed, len(refs))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "verify every commit in the store")
	return cmd
}

func verifyRef(cmd *cobra.Command, e *env, ref string) error {
	c, err := loadCommit(cmd, e, ref)
	if err != nil {
		return err
	}
	if err := e.engine.Verify(c, e.cfg.Mining.Difficulty); err != nil {
		return err
	}
	e.logger.Debug("verified commit",
		"ref", ref,
		"type", c.Type,
		"signer", cipher.Petname(c.PublicKey),
	)
	return nil
}

func newDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <commit-id|file|->",
		Short: "Decrypt a message commit addressed to the local identity",
		Args:  cobra.ExactArgs(1),
		RunE: runEnv(func(cmd *cobra.Command, e *env, args []string) error {
			c, err := loadCommit(cmd, e, args[0])
			if err != nil {
				return err
			}
			if err := e.engine.Verify(c, e.cfg.Mining.Difficulty); err != nil {
				return err
			}
			msg, ok := c.Data.(*commit.Message)
			if !ok {
				return fmt.Errorf("commit is a %s, not a message", c.Type)
			}

			id, err := cipher.LoadIdentity(e.cfg.Identity.Path)
			if err != nil {
				return err
			}
			if msg.Receiver != id.PublicKey {
				return fmt.Errorf("message is addressed to %s, not to this identity", cipher.Petname(msg.Receiver))
			}
			var sealed cipher.Envelope
			if err := json.Unmarshal(msg.Message, &sealed); err != nil {
				return fmt.Errorf("message blob: %w", err)
			}
			secret, err := id.SigningKey()
			if err != nil {
				return err
			}
			plaintext, err := cipher.Decrypt(&sealed, secret)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(plaintext)
			return err
		}),
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <commit-id|file|->",
		Short: "Print a commit",
		Args:  cobra.ExactArgs(1),
		RunE: runEnv(func(cmd *cobra.Command, e *env, args []string) error {
			c, err := loadCommit(cmd, e, args[0])
			if err != nil {
				return err
			}
			return printCommit(cmd.OutOrStdout(), c)
		}),
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored commits",
		Args:  cobra.NoArgs,
		RunE: runEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			ids, err := e.store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				c, err := e.store.Get(id)
				if err != nil {
					e.logger.Warn("skipping unreadable commit", "id", id.String(), "err", err)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n",
					id, commit.FormatTimestamp(c.CommitAt), c.Type, cipher.Petname(c.PublicKey))
			}
			return nil
		}),
	}
}
