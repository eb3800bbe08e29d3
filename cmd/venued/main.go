package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"venue/internal/config"
	"venue/internal/netserver"
	"venue/internal/repository"
	"venue/internal/tradingsystem"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional, defaults used otherwise)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("loading config")
		}
		cfg = loaded
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	repo := repository.NewInMemory()
	system := tradingsystem.New(repo)

	srv := netserver.New(cfg.ListenAddress, system)

	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("netserver exited")
		}
	}()

	log.Info().Str("address", cfg.ListenAddress).Msg("venued running")
	<-ctx.Done()
}
