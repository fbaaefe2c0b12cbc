// Command studbot is an interactive study companion. With no subcommand it
// starts a REPL; subcommands inspect and edit the stored user context.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stupiduntilnot/studbot/internal/config"
)

// cli carries the streams and settings shared by every command.
type cli struct {
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
	loadConfig func() (config.Config, error)

	cfg    config.Config
	logger *zap.Logger
}

func main() {
	c := &cli{in: os.Stdin, out: os.Stdout, errOut: os.Stderr, loadConfig: config.Load}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(c).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "studbot: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "studbot",
		Short:         "studbot - AI study companion",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			c.cfg, c.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(c.cfg, c.logger, c.errOut)
			if err != nil {
				return err
			}
			defer a.Close()
			return runREPL(cmd.Context(), a, c.in, c.out)
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.AddCommand(
		newAskCmd(c),
		newProfileCmd(c),
		newTopicsCmd(c),
		newPreferencesCmd(c),
		newToolsCmd(c),
		newJournalCmd(c),
	)
	return root
}
