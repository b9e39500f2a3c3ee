package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/etftools/etf/internal/cli"
	"github.com/etftools/etf/pkg/errors"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stderr, cli.LogInfo)
	err := c.RootCommand().ExecuteContext(ctx)
	switch {
	case err == nil:
		return errors.ExitOK
	case ctx.Err() != nil:
		return errors.ExitInterrupted // Standard shell convention for SIGINT
	}
	return c.ReportError(err)
}
