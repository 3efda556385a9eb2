package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/raywall/nfse-gateway/pkg/config"
	"github.com/raywall/nfse-gateway/pkg/engine"
	"github.com/raywall/nfse-gateway/pkg/transport"
	"github.com/rs/zerolog/log"
)

var (
	configPath string
	// Variáveis injetáveis para mocking
	serverStarter = transport.StartHTTPServer
	lambdaStarter = func(handler interface{}) { lambda.Start(handler) }
)

func init() {
	// Opcional: sem arquivo a configuração vem só do ambiente
	configPath = os.Getenv("CONFIG_FILE_PATH")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configPath); err != nil {
		log.Fatal().Err(err).Msg("FATAL: gateway não iniciou")
	}
}

// run contém a lógica principal testável
func run(ctx context.Context, cfgPath string) error {
	// 1. Carrega e valida a configuração (falha sem token)
	cfg, err := config.NewLoader().Load(ctx, cfgPath)
	if err != nil {
		return err
	}

	// 2. Inicializa dependências (Boot Time)
	svcEngine, err := engine.NewServiceEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcEngine.Close()

	// 3. Webhooks da Focus NFe (opcional)
	listener, err := svcEngine.WebhookListener(ctx)
	if err != nil {
		return err
	}
	if listener != nil {
		go listener.Start(ctx)
	}

	// 4. Seleciona Runtime Strategy
	switch cfg.Service.Runtime {
	case config.RuntimeLocal:
		return serverStarter(ctx, cfg.Service.Port, svcEngine.Handler)
	case config.RuntimeLambda:
		handler := transport.NewLambdaHandler(svcEngine.Handler)
		lambdaStarter(handler.Handle)
		return nil
	default:
		return fmt.Errorf("runtime desconhecido: %s", cfg.Service.Runtime)
	}
}

