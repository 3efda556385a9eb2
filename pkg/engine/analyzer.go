package engine

import (
	"fmt"
	"net/url"

	"github.com/raywall/nfse-gateway/pkg/config"
)

// ValidationReport contém o resultado detalhado da análise.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Analyze inspeciona uma configuração já validada estruturalmente e aponta
// combinações que funcionam mas costumam dar problema em produção.
func Analyze(cfg *config.Config) *ValidationReport {
	report := &ValidationReport{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	// 1. Upstream
	if u, err := url.Parse(cfg.Upstream.BaseURL); err == nil && u.Scheme == "http" {
		report.Warnings = append(report.Warnings, fmt.Sprintf("Upstream.BaseURL usa http sem TLS (%s): o token trafega em texto claro", cfg.Upstream.BaseURL))
	}
	if cfg.Upstream.ConsultTimeout > cfg.Upstream.ManagementTimeout {
		report.Errors = append(report.Errors, "Upstream.ConsultTimeout maior que ManagementTimeout")
	}
	if cfg.Upstream.Token != "" && (cfg.Upstream.TokenSecretID != "" || cfg.Upstream.TokenParameter != "") {
		report.Warnings = append(report.Warnings, "Upstream.Token definido junto com Secrets Manager/SSM: o token inline tem precedência")
	}

	// 2. Cache
	if cfg.Service.Runtime == config.RuntimeLambda {
		switch cfg.Cache.Backend {
		case config.BackendMemory:
			report.Warnings = append(report.Warnings, "Cache em memória na Lambda não é compartilhado entre instâncias: considere redis ou dynamodb")
		case config.BackendSQLite:
			report.Errors = append(report.Errors, "Cache sqlite não é suportado no runtime lambda (sistema de arquivos efêmero)")
		}
	}
	if cfg.Cache.Backend == config.BackendMemory && cfg.Cache.SweepInterval == 0 && cfg.Cache.Capacity > 10000 {
		report.Warnings = append(report.Warnings, "Cache.Capacity alto sem SweepInterval: entradas vencidas só saem por LRU")
	}

	// 3. Diversos
	if cfg.Service.DevMode {
		report.Warnings = append(report.Warnings, "Service.DevMode ativo: detalhes internos aparecem nas respostas de erro")
	}
	if cfg.Webhook.QueueURL != "" && cfg.AWS.Region == "" {
		report.Warnings = append(report.Warnings, "Webhook.QueueURL configurada sem AWS.Region: a região virá da cadeia padrão da AWS")
	}

	if len(report.Errors) > 0 {
		report.Valid = false
	}
	return report
}
