package metrics

import "sync"

// Provider define o contrato para envio de métricas.
// Isso permite trocar Datadog por Prometheus ou Logging sem alterar o gateway.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// Nomes das métricas emitidas pelo gateway (o namespace é prefixado pelo provider).
const (
	UpstreamRequests = "upstream.requests"
	UpstreamLatency  = "upstream.latency_ms"
	CacheHit         = "cache.hit"
	CacheMiss        = "cache.miss"
	DocumentPending  = "document.pending"
	Errors           = "errors"
)

// Recorder implementa Provider guardando as chamadas em memória (usado em testes).
type Recorder struct {
	mu    sync.Mutex
	Calls []Call
}

// Call é uma métrica registrada pelo Recorder.
type Call struct {
	Type  string
	Name  string
	Value float64
	Tags  []string
}

func (r *Recorder) Count(name string, value float64, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, Call{Type: "count", Name: name, Value: value, Tags: tags})
	return nil
}

func (r *Recorder) Gauge(name string, value float64, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, Call{Type: "gauge", Name: name, Value: value, Tags: tags})
	return nil
}

func (r *Recorder) Histogram(name string, value float64, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, Call{Type: "histogram", Name: name, Value: value, Tags: tags})
	return nil
}

// Total soma os valores registrados para uma métrica.
func (r *Recorder) Total(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total float64
	for _, c := range r.Calls {
		if c.Name == name {
			total += c.Value
		}
	}
	return total
}
