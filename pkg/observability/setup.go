package observability

import (
	"fmt"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/raywall/nfse-gateway/pkg/config"
	"github.com/raywall/nfse-gateway/pkg/metrics"
)

// sampleRate fixo: o gateway emite poucas métricas por requisição.
const sampleRate = 1

// NoopProvider descarta tudo; usado quando DD_ENABLED não está ativo.
type NoopProvider struct{}

func (*NoopProvider) Count(string, float64, []string) error     { return nil }
func (*NoopProvider) Gauge(string, float64, []string) error     { return nil }
func (*NoopProvider) Histogram(string, float64, []string) error { return nil }

// DatadogProvider envia upstream.*, cache.*, document.pending e errors para o agente via DogStatsD.
type DatadogProvider struct {
	client statsd.ClientInterface
}

// NewDatadogProvider embrulha um cliente statsd já criado (útil para testes).
func NewDatadogProvider(client statsd.ClientInterface) *DatadogProvider {
	return &DatadogProvider{client: client}
}

// Count arredonda o valor: contadores do DogStatsD são inteiros.
func (d *DatadogProvider) Count(name string, value float64, tags []string) error {
	return d.client.Count(name, int64(value), tags, sampleRate)
}

func (d *DatadogProvider) Gauge(name string, value float64, tags []string) error {
	return d.client.Gauge(name, value, tags, sampleRate)
}

// Histogram é usado para a latência do upstream em milissegundos.
func (d *DatadogProvider) Histogram(name string, value float64, tags []string) error {
	return d.client.Histogram(name, value, tags, sampleRate)
}

// Close descarrega o buffer pendente; chamado pelo engine no desligamento.
func (d *DatadogProvider) Close() error {
	return d.client.Close()
}

// SetupMetrics escolhe o provider a partir de cfg.Datadog. Toda métrica sai com a tag service:<nome>.
func SetupMetrics(cfg config.MetricsConf, serviceName string) (metrics.Provider, error) {
	dd := cfg.Datadog
	if !dd.Enabled {
		return &NoopProvider{}, nil
	}

	client, err := statsd.New(dd.Addr,
		statsd.WithNamespace(dd.Namespace),
		statsd.WithTags([]string{"service:" + serviceName}),
		statsd.WithoutTelemetry(),
	)
	if err != nil {
		return nil, fmt.Errorf("datadog statsd (%s): %w", dd.Addr, err)
	}
	return NewDatadogProvider(client), nil
}
