package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Service: ServiceConf{Name: "nfse-gateway", Runtime: RuntimeLocal, Port: 8080},
		Upstream: UpstreamConf{
			BaseURL:           DefaultBaseURL,
			Token:             "token-teste",
			ConsultTimeout:    15 * time.Second,
			ManagementTimeout: 30 * time.Second,
		},
		Cache:   CacheConf{Backend: BackendMemory, TTL: 30 * time.Second, Capacity: 10},
		Logging: LoggingConf{Level: "info", Format: "json"},
	}
}

func TestValidator_Validate(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Config válida", mutate: func(c *Config) {}},
		{
			name:   "Token via Secrets Manager",
			mutate: func(c *Config) { c.Upstream.Token = ""; c.Upstream.TokenSecretID = "focus/token" },
		},
		{
			name:    "Sem origem de token",
			mutate:  func(c *Config) { c.Upstream.Token = "" },
			wantErr: "nenhuma origem de token",
		},
		{
			name:    "Runtime desconhecido",
			mutate:  func(c *Config) { c.Service.Runtime = "k8s" },
			wantErr: "Runtime",
		},
		{
			name:    "Porta obrigatória no runtime local",
			mutate:  func(c *Config) { c.Service.Port = 0 },
			wantErr: "Port",
		},
		{
			name:   "Lambda dispensa porta",
			mutate: func(c *Config) { c.Service.Runtime = RuntimeLambda; c.Service.Port = 0 },
		},
		{
			name:    "Base URL sem esquema http",
			mutate:  func(c *Config) { c.Upstream.BaseURL = "ftp://focus" },
			wantErr: "base_url inválida",
		},
		{
			name:    "Redis sem endereço",
			mutate:  func(c *Config) { c.Cache.Backend = BackendRedis },
			wantErr: "RedisAddr",
		},
		{
			name:    "DynamoDB sem tabela",
			mutate:  func(c *Config) { c.Cache.Backend = BackendDynamoDB },
			wantErr: "DynamoTable",
		},
		{
			name:    "TTL zerado",
			mutate:  func(c *Config) { c.Cache.TTL = 0 },
			wantErr: "TTL",
		},
		{
			name:    "Consulta mais lenta que gerenciamento",
			mutate:  func(c *Config) { c.Upstream.ConsultTimeout = time.Minute },
			wantErr: "consult_timeout",
		},
		{
			name:    "Datadog habilitado sem endereço",
			mutate:  func(c *Config) { c.Metrics.Datadog.Enabled = true },
			wantErr: "Addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validator.Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
