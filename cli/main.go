package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=..." by release builds.
var version = "dev"

const (
	exitFailed    = 1
	exitCancelled = 130
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	var exit *exitError
	switch {
	case err == nil:
	case errors.As(err, &exit):
		os.Exit(exit.code)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailed)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "benchlab",
		Short:         "Benchmark the disk, CPU, memory and GPU of this machine",
		Long:          "BenchLab runs a suite of disk, CPU, memory and GPU benchmarks on the local host and reports throughput, scores and host details.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setUpLogging(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list, _ := cmd.Flags().GetBool("list-tests"); list {
				return runList(cmd)
			}
			return runSession(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("config", "c", "", "Path to a YAML configuration file. ./benchlab.yaml or ~/.benchlab/benchlab.yaml by default.")
	pf.String("log-level", "warn", "Log level: debug, info, warn or error.")
	addSessionFlags(pf)
	cmd.Flags().Bool("list-tests", false, "List the available tests and exit.")

	cmd.AddCommand(newRunCmd(), newListCmd(), newInfoCmd(), newVersionCmd())
	return cmd
}

func setUpLogging(cmd *cobra.Command) error {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return err
	}
	level, err := parseLogLevel(v.GetString("log_level"))
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
