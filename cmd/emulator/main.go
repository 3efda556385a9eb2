package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raywall/nfse-gateway/pkg/config"
	"github.com/raywall/nfse-gateway/pkg/logger"
	emulator "github.com/raywall/nfse-gateway/tools/emulator/config"
	"github.com/rs/zerolog/log"
)

// Injetável para testes
var serverStarter = func(ctx context.Context, s *emulator.Server) error {
	return s.Start(ctx)
}

func main() {
	logger.Configure(config.LoggingConf{Level: "info", Format: "console"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Emulador encerrado com erro")
	}
}

// run carrega a configuração (EMULATOR_CONFIG_PATH) e sobe o emulador
func run(ctx context.Context) error {
	cfg := emulator.Load()
	return serverStarter(ctx, emulator.NewServer(cfg))
}
