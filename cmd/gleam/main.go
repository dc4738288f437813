package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/brightly-salty/gleam/cmd/gleam/commands"
	"github.com/brightly-salty/gleam/pkg/config"
	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	env, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := telemetry.SetupLogging(telemetry.FromEnvironment(env, Version).Logging); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	info := commands.BuildInfo{Version: Version, Commit: Commit, BuildDate: BuildDate}
	if err := commands.Execute(ctx, env, info, os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("Failed")
		engine.NewPrinter(os.Stderr, !env.NoColour).Print(err)
		cancel()
		os.Exit(1)
	}

	log.Info().Msg("Successfully completed")
}
