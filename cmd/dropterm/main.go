package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		var exit exitCodeError
		if errors.As(err, &exit) {
			return exit.code
		}
		pslog.Ctx(ctx).With("err", err).Error("dropterm command failed")
		return 1
	}
	return 0
}

// exitCodeError carries the exit status of a mirrored run.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return "exit status " + strconv.Itoa(e.code)
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "dropterm",
		Short:         "Drop-down terminal command runner",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ~/.dropterm/config.yaml)")

	root.AddCommand(newTUICmd(&cfgPath))
	root.AddCommand(newExecCmd(&cfgPath))
	root.AddCommand(newCompleteCmd(&cfgPath))
	root.AddCommand(newConfigCmd(&cfgPath))
	root.AddCommand(newVersionCmd())

	return root
}
