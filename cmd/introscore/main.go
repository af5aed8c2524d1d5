package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZanzyTHEbar/introscore/internal/cmd"
	"github.com/ZanzyTHEbar/introscore/internal/version"
	"github.com/charmbracelet/fang"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, cmd.NewRootCmd(), fang.WithVersion(version.Short())); err != nil {
		stop()
		os.Exit(1)
	}
}
