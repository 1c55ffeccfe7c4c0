package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systemshift/memex-commit/internal/cipher"
	"github.com/systemshift/memex-commit/internal/commit"
	"github.com/systemshift/memex-commit/internal/store"
)

// publish mines, signs and stores payload with the local identity, then
// prints the new commit id (and the commit itself with --json).
func publish(cmd *cobra.Command, e *env, payload commit.Payload) error {
	id, err := e.identity()
	if err != nil {
		return err
	}
	secret, err := id.SigningKey()
	if err != nil {
		return err
	}

	e.logger.Info("mining commit",
		"type", payload.Type(),
		"difficulty", e.cfg.Mining.Difficulty,
	)
	c, err := e.engine.CreateCommit(cmd.Context(), secret, payload, e.cfg.Mining.Difficulty)
	if err != nil {
		return err
	}
	cid, err := e.store.Put(c)
	if err != nil {
		return err
	}
	e.logger.Info("stored commit",
		"id", cid.String(),
		"type", c.Type,
		"nonce", c.Nonce,
	)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cid.String())
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printCommit(out, c)
	}
	return nil
}

func printCommit(w io.Writer, c *commit.Commit) error {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}

func newPostCmd() *cobra.Command {
	var (
		parent      string
		content     string
		hashtags    []string
		attachments []string
	)
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish a post",
		Args:  cobra.NoArgs,
		RunE: runEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			atts := make([]commit.Attachment, 0, len(attachments))
			for _, s := range attachments {
				a, err := parseAttachment(s)
				if err != nil {
					return err
				}
				atts = append(atts, a)
			}
			if parent != "" {
				id, err := store.ParseID(parent)
				if err != nil {
					return fmt.Errorf("--parent: %w", err)
				}
				parent = id.String()
			}
			return publish(cmd, e, commit.NewPost(parent, content, hashtags, atts...))
		}),
	}
	cmd.Flags().StringVar(&parent, "parent", "", "commit id this post replies to")
	cmd.Flags().StringVar(&content, "content", "", "post body")
	cmd.Flags().StringSliceVar(&hashtags, "hashtag", nil, "hashtag (alphanumeric, up to 32 characters); repeatable")
	cmd.Flags().StringArrayVar(&attachments, "attach", nil, "attachment as kind:cid:<cid> or kind:url:<url>, kind one of image, video, others; repeatable")
	cmd.Flags().Bool("json", false, "also print the commit")
	return cmd
}

// parseAttachment reads kind:cid:<value> or kind:url:<value>.
func parseAttachment(s string) (commit.Attachment, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return commit.Attachment{}, fmt.Errorf("attachment %q: want kind:cid:<cid> or kind:url:<url>", s)
	}
	kind := commit.AttachmentType(parts[0])
	switch parts[1] {
	case "cid":
		return commit.NewCIDAttachment(kind, parts[2]), nil
	case "url":
		return commit.NewURLAttachment(kind, parts[2]), nil
	default:
		return commit.Attachment{}, fmt.Errorf("attachment %q: unknown reference %q", s, parts[1])
	}
}

func newMetaCmd() *cobra.Command {
	var meta commit.Meta
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Publish a profile update",
		Args:  cobra.NoArgs,
		RunE: runEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			for i, ref := range meta.Bookmarks {
				id, err := store.ParseID(ref)
				if err != nil {
					return fmt.Errorf("--bookmark: %w", err)
				}
				meta.Bookmarks[i] = id.String()
			}
			for i, key := range meta.Followed {
				pub, err := cipher.ResolvePublicKey(key)
				if err != nil {
					return fmt.Errorf("--follow %q: %w", key, err)
				}
				meta.Followed[i] = pub
			}
			return publish(cmd, e, &meta)
		}),
	}
	f := cmd.Flags()
	f.StringVar(&meta.Name, "name", "", "display name")
	f.StringVar(&meta.About, "about", "", "profile description")
	f.StringVar(&meta.Image, "image", "", "avatar reference")
	f.StringVar(&meta.Website, "website", "", "website URL")
	f.StringSliceVar(&meta.Followed, "follow", nil, "public key or did:key of a followed identity; repeatable")
	f.StringSliceVar(&meta.Hashtags, "hashtag", nil, "followed hashtag; repeatable")
	f.StringSliceVar(&meta.Bookmarks, "bookmark", nil, "bookmarked commit id; repeatable")
	f.Bool("json", false, "also print the commit")
	return cmd
}

func newMessageCmd() *cobra.Command {
	var (
		to   string
		text string
	)
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Publish a message encrypted to one receiver",
		Long:  "Publish a message encrypted to one receiver. The text is read from stdin when --text is not given.",
		Args:  cobra.NoArgs,
		RunE: runEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			receiver, err := cipher.ResolvePublicKey(to)
			if err != nil {
				return fmt.Errorf("receiver: %w", err)
			}
			plaintext := []byte(text)
			if !cmd.Flags().Changed("text") {
				if plaintext, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read message: %w", err)
				}
			}
			sealed, err := cipher.Encrypt(plaintext, receiver)
			if err != nil {
				return err
			}
			msg, err := commit.NewMessage(receiver, sealed)
			if err != nil {
				return err
			}
			return publish(cmd, e, msg)
		}),
	}
	cmd.Flags().StringVar(&to, "to", "", "receiver public key or did:key")
	cmd.Flags().StringVar(&text, "text", "", "message text")
	cmd.Flags().Bool("json", false, "also print the commit")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
