// Command memex-commit creates, stores and verifies signed proof-of-work
// commits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/systemshift/memex-commit/internal/config"
	"github.com/systemshift/memex-commit/internal/log"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "memex-commit",
		Short:         "Create and verify signed proof-of-work commits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	def := config.Default()
	level, format := log.LevelInfo, log.FmtJSON
	flags := root.PersistentFlags()
	flags.String("config", "", "path to a config.yml file")
	flags.Int("difficulty", def.Mining.Difficulty, "leading zero hex digits required of each commit digest")
	flags.String("data", def.Store.Dir, "commit store directory")
	flags.String("identity", def.Identity.Path, "identity file")
	flags.Var(&level, "log.level", "log level")
	flags.Var(&format, "log.format", "log format [json,logfmt]")

	root.AddCommand(
		newIdentityCmd(),
		newPostCmd(),
		newMetaCmd(),
		newMessageCmd(),
		newVerifyCmd(),
		newDecryptCmd(),
		newShowCmd(),
		newListCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "memex-commit:", err)
		stop()
		os.Exit(1)
	}
}
