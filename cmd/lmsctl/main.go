package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ministrylearn/ministrylearn/internal/lmsctl/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "lmsctl: %v\n", err)
		return 2
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lmsctl: failed to initialize: %v\n", err)
		return 1
	}
	defer func() {
		if err := application.Close(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "lmsctl: %v\n", err)
		}
	}()

	if err := application.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lmsctl: %v\n", err)
		if errors.Is(err, app.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
