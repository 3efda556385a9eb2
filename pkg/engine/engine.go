package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/raywall/nfse-gateway/pkg/awsx"
	"github.com/raywall/nfse-gateway/pkg/cache"
	"github.com/raywall/nfse-gateway/pkg/config"
	"github.com/raywall/nfse-gateway/pkg/credential"
	"github.com/raywall/nfse-gateway/pkg/gateway"
	"github.com/raywall/nfse-gateway/pkg/logger"
	"github.com/raywall/nfse-gateway/pkg/metrics"
	"github.com/raywall/nfse-gateway/pkg/observability"
	"github.com/raywall/nfse-gateway/pkg/proxy"
	"github.com/raywall/nfse-gateway/pkg/transport"
	"github.com/rs/zerolog"
)

// ServiceEngine agrupa as dependências montadas na inicialização do gateway.
type ServiceEngine struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics metrics.Provider
	Store   cache.Store
	Service *gateway.Service
	Handler http.Handler
}

// NewServiceEngine resolve a credencial, cria cache e métricas e monta o router.
// Falha se nenhum token puder ser obtido.
func NewServiceEngine(ctx context.Context, cfg *config.Config) (*ServiceEngine, error) {
	log := logger.Configure(cfg.Logging)

	// 1. Credencial (obrigatória)
	cred, err := credential.Resolve(ctx, cfg.Upstream, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("falha ao obter token da Focus NFe: %w", err)
	}

	// 2. Métricas
	provider, err := observability.SetupMetrics(cfg.Metrics, cfg.Service.Name)
	if err != nil {
		return nil, fmt.Errorf("falha métricas: %w", err)
	}

	// 3. Cache
	store, err := cache.New(ctx, cfg.Cache, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("falha cache (%s): %w", cfg.Cache.Backend, err)
	}

	// 4. Serviço e transporte
	svc := gateway.NewService(
		proxy.NewClient(cfg.Upstream.BaseURL, cred),
		store,
		provider,
		gateway.OptionsFromConfig(cfg),
	)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("runtime", cfg.Service.Runtime).
		Str("upstream", cfg.Upstream.BaseURL).
		Str("cache_backend", cfg.Cache.Backend).
		Dur("cache_ttl", cfg.Cache.TTL).
		Bool("dev_mode", cfg.Service.DevMode).
		Msg("Gateway NFSe inicializado")

	return &ServiceEngine{
		Config:  cfg,
		Logger:  log,
		Metrics: provider,
		Store:   store,
		Service: svc,
		Handler: transport.NewRouter(svc),
	}, nil
}

// WebhookListener cria o consumidor da fila de webhooks, ou nil se não houver fila.
func (se *ServiceEngine) WebhookListener(ctx context.Context) (*transport.WebhookListener, error) {
	if se.Config.Webhook.QueueURL == "" {
		return nil, nil
	}
	awsCfg, err := awsx.Load(ctx, se.Config.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar config AWS: %w", err)
	}
	return transport.NewWebhookListener(sqs.NewFromConfig(awsCfg), se.Config.Webhook.QueueURL, se.Service), nil
}

// Close libera cache e cliente de métricas.
func (se *ServiceEngine) Close() error {
	var firstErr error
	if se.Store != nil {
		firstErr = se.Store.Close()
	}
	if c, ok := se.Metrics.(io.Closer); ok {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
