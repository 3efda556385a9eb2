package cache

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/raywall/nfse-gateway/pkg/awsx"
	"github.com/raywall/nfse-gateway/pkg/config"
)

// New cria o backend escolhido na configuração.
func New(ctx context.Context, cfg config.CacheConf, region string) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		mem := NewMemory(cfg.Capacity, cfg.TTL)
		mem.StartSweeper(ctx, cfg.SweepInterval)
		return mem, nil

	case config.BackendRedis:
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.TTL), nil

	case config.BackendDynamoDB:
		awsCfg, err := awsx.Load(ctx, region)
		if err != nil {
			return nil, fmt.Errorf("falha ao carregar config AWS: %w", err)
		}
		return NewDynamoDB(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable, cfg.TTL), nil

	case config.BackendSQLite:
		return NewSQLite(cfg.SQLitePath, cfg.Capacity)

	default:
		return nil, fmt.Errorf("backend de cache desconhecido: %s", cfg.Backend)
	}
}
