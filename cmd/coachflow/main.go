package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/apper-apps/coachflow-optimal/pkg/coachflow"
)

func main() {
	// Interrupt and SIGTERM cancel ctx, which shuts the server down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := coachflow.Main(ctx, os.Args[1:]); err != nil {
		stop()
		log.Fatal().Err(err).Msg("coachflow failed")
	}
}
