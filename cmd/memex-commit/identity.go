package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systemshift/memex-commit/internal/cipher"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the local signing identity",
	}

	var force bool
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a new identity",
		Args:  cobra.NoArgs,
		RunE: runEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			path := e.cfg.Identity.Path
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("identity already exists at %s (use --force to replace it)", path)
			}
			id, err := cipher.CreateIdentity()
			if err != nil {
				return err
			}
			if err := id.Save(path); err != nil {
				return err
			}
			e.logger.Info("saved identity", "path", path)
			printIdentity(cmd, id)
			return nil
		}),
	}
	newCmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the identity, generating one if none exists",
		Args:  cobra.NoArgs,
		RunE: runEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			id, err := e.identity()
			if err != nil {
				return err
			}
			printIdentity(cmd, id)
			return nil
		}),
	}

	cmd.AddCommand(newCmd, showCmd)
	return cmd
}

func printIdentity(cmd *cobra.Command, id *cipher.Identity) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "did:        %s\n", id.DID)
	fmt.Fprintf(out, "public key: %s\n", id.PublicKey)
	fmt.Fprintf(out, "petname:    %s\n", cipher.Petname(id.PublicKey))
}
