package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/raywall/nfse-gateway/pkg/cache"
	"github.com/raywall/nfse-gateway/pkg/config"
	"github.com/raywall/nfse-gateway/pkg/metrics"
	"github.com/raywall/nfse-gateway/pkg/proxy"
	"github.com/rs/zerolog/log"
)

const (
	statusPending      = "processando"
	documentPathPrefix = "v2/nfse/"
	managementPrefix   = "v2/empresas"
)

// Upstream é o forwarder usado pelo serviço (permite Mocking).
type Upstream interface {
	Forward(ctx context.Context, call proxy.Call) (*proxy.Response, error)
}

// ProxyRequest é a chamada de entrada já normalizada pela camada de transporte.
type ProxyRequest struct {
	Method       string
	UpstreamPath string
	Query        map[string]string
	Body         json.RawMessage
	Reference    string
}

// UpstreamResponse é o que volta para o cliente.
// Payload é preenchido quando o conteúdo é JSON; caso contrário Text.
type UpstreamResponse struct {
	StatusCode  int
	ContentType string
	Payload     json.RawMessage
	Text        string
	Cached      bool
	CacheAge    time.Duration
	Pending     bool
}

// Options agrupa os parâmetros de comportamento do serviço.
type Options struct {
	ConsultTimeout    time.Duration
	ManagementTimeout time.Duration
	CacheTTL          time.Duration
	DevMode           bool
}

// OptionsFromConfig extrai as opções do serviço da configuração carregada.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ConsultTimeout:    cfg.Upstream.ConsultTimeout,
		ManagementTimeout: cfg.Upstream.ManagementTimeout,
		CacheTTL:          cfg.Cache.TTL,
		DevMode:           cfg.Service.DevMode,
	}
}

// Service implementa o repasse para a Focus NFe e a consulta de status com cache.
type Service struct {
	upstream Upstream
	store    cache.Store
	metrics  metrics.Provider
	opts     Options
	now      func() time.Time
}

// NewService monta o serviço. store e provider podem ser nil.
func NewService(upstream Upstream, store cache.Store, provider metrics.Provider, opts Options) *Service {
	if opts.ConsultTimeout <= 0 {
		opts.ConsultTimeout = 15 * time.Second
	}
	if opts.ManagementTimeout <= 0 {
		opts.ManagementTimeout = 30 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	return &Service{
		upstream: upstream,
		store:    store,
		metrics:  provider,
		opts:     opts,
		now:      time.Now,
	}
}

// WithClock troca o relógio do serviço (usado nos testes de TTL).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Envelope converte um erro no corpo padrão, respeitando o modo de desenvolvimento.
func (s *Service) Envelope(err error) (int, Envelope) {
	return NewEnvelope(err, s.opts.DevMode, s.now())
}

// Forward repassa uma chamada arbitrária ao upstream.
// Status e content-type voltam sem remapeamento, inclusive em respostas não-2xx.
func (s *Service) Forward(ctx context.Context, req ProxyRequest) (*UpstreamResponse, error) {
	path := strings.TrimSpace(req.UpstreamPath)
	if path == "" {
		return nil, NewError(KindMissingPath, nil)
	}
	if err := proxy.CheckPath(path); err != nil {
		return nil, NewError(KindInvalidPath, err)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, NewError(KindMethodNotAllowed, nil)
	}

	body := bytes.TrimSpace(req.Body)
	if len(body) > 0 && (method == http.MethodPost || method == http.MethodPut) && !json.Valid(body) {
		return nil, NewError(KindInvalidBody, errors.New("corpo da requisição não é JSON válido"))
	}

	resp, err := s.exchange(ctx, proxy.Call{
		Method:  method,
		Path:    path,
		Query:   req.Query,
		Body:    body,
		Timeout: s.timeoutFor(method, path),
	})
	if err != nil {
		return nil, err
	}

	return decode(resp)
}

// DocumentStatus consulta o status de uma NFSe pela referência, usando o cache.
func (s *Service) DocumentStatus(ctx context.Context, reference string) (*UpstreamResponse, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, NewError(KindMissingReference, nil)
	}
	logger := log.Ctx(ctx).With().Str("referencia", reference).Logger()
	key := cache.Key(reference)

	// 1. Cache
	if hit := s.lookup(ctx, key); hit != nil {
		age := hit.Age(s.now())
		payload, err := mergeFields(hit.Payload, map[string]interface{}{
			"cached":   true,
			"cacheAge": age.Milliseconds(),
		})
		if err == nil {
			s.count(metrics.CacheHit)
			logger.Debug().Int64("cache_age_ms", age.Milliseconds()).Msg("status servido do cache")
			return &UpstreamResponse{
				StatusCode:  http.StatusOK,
				ContentType: "application/json",
				Payload:     payload,
				Cached:      true,
				CacheAge:    age,
			}, nil
		}
		logger.Warn().Err(err).Msg("entrada de cache ilegível, consultando upstream")
	}
	s.count(metrics.CacheMiss)

	// 2. Upstream
	resp, err := s.exchange(ctx, proxy.Call{
		Method:  http.MethodGet,
		Path:    documentPathPrefix + url.PathEscape(reference),
		Timeout: s.opts.ConsultTimeout,
	})
	if err != nil {
		return nil, err
	}

	// 3. 404 significa documento ainda em processamento
	if resp.StatusCode == http.StatusNotFound {
		s.count(metrics.DocumentPending)
		logger.Info().Msg("documento ainda em processamento")
		payload, _ := json.Marshal(map[string]interface{}{
			"status":     statusPending,
			"referencia": reference,
			"success":    false,
		})
		return &UpstreamResponse{
			StatusCode:  http.StatusOK,
			ContentType: "application/json",
			Payload:     payload,
			Pending:     true,
		}, nil
	}

	out, err := decode(resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, rejected(out.StatusCode, out.Payload, out.Text)
	}

	// 4. Sucesso: anota e grava no cache
	payload, err := s.remember(ctx, key, out)
	if err != nil {
		return nil, NewError(KindInternal, err)
	}

	return &UpstreamResponse{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Payload:     payload,
	}, nil
}

// Remember grava no cache um status recebido por outra via (webhook),
// substituindo a entrada da referência.
func (s *Service) Remember(ctx context.Context, reference string, status json.RawMessage) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return NewError(KindMissingReference, nil)
	}
	if !json.Valid(status) {
		return NewError(KindInvalidBody, errors.New("status não é JSON válido"))
	}
	_, err := s.remember(ctx, cache.Key(reference), &UpstreamResponse{Payload: status})
	return err
}

func (s *Service) remember(ctx context.Context, key string, out *UpstreamResponse) (json.RawMessage, error) {
	now := s.now()

	source := out.Payload
	if source == nil {
		text, _ := json.Marshal(out.Text)
		source = text
	}

	payload, err := mergeFields(source, map[string]interface{}{
		"consultadoEm": now.UTC().Format(timestampLayout),
		"success":      true,
	})
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.Put(ctx, cache.Entry{Key: key, Payload: payload, StoredAt: now}); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("falha ao gravar no cache")
		}
	}
	return payload, nil
}

// lookup devolve a entrada fresca da chave, ou nil. Falhas do cache nunca interrompem a consulta.
func (s *Service) lookup(ctx context.Context, key string) *cache.Entry {
	if s.store == nil {
		return nil
	}
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("falha ao ler o cache")
		return nil
	}
	if entry == nil || !entry.Fresh(s.now(), s.opts.CacheTTL) {
		return nil
	}
	return entry
}

// exchange executa a chamada desacoplada do cancelamento da requisição de entrada:
// uma vez emitida, só termina por resposta ou pelo próprio timeout.
func (s *Service) exchange(ctx context.Context, call proxy.Call) (*proxy.Response, error) {
	start := time.Now()
	resp, err := s.upstream.Forward(context.WithoutCancel(ctx), call)
	latency := float64(time.Since(start).Milliseconds())

	if err != nil {
		var terr *proxy.TransportError
		var perr *proxy.InvalidPathError
		switch {
		case errors.As(err, &perr):
			return nil, NewError(KindInvalidPath, err)
		case errors.As(err, &terr) && terr.Timeout:
			s.failure(KindUpstreamTimeout, call.Method)
			return nil, NewError(KindUpstreamTimeout, err)
		case errors.As(err, &terr):
			s.failure(KindUpstreamUnreachable, call.Method)
			return nil, NewError(KindUpstreamUnreachable, err)
		default:
			s.failure(KindInternal, call.Method)
			return nil, NewError(KindInternal, err)
		}
	}

	tags := []string{"method:" + call.Method, "status:" + strconv.Itoa(resp.StatusCode)}
	if s.metrics != nil {
		_ = s.metrics.Count(metrics.UpstreamRequests, 1, tags)
		_ = s.metrics.Histogram(metrics.UpstreamLatency, latency, tags)
	}
	return resp, nil
}

func (s *Service) timeoutFor(method, path string) time.Duration {
	if method != http.MethodGet || strings.HasPrefix(strings.TrimLeft(path, "/"), managementPrefix) {
		return s.opts.ManagementTimeout
	}
	return s.opts.ConsultTimeout
}

func (s *Service) count(name string) {
	if s.metrics != nil {
		_ = s.metrics.Count(name, 1, nil)
	}
}

func (s *Service) failure(kind ErrorKind, method string) {
	if s.metrics != nil {
		_ = s.metrics.Count(metrics.Errors, 1, []string{"kind:" + string(kind), "method:" + method})
	}
}

// decode interpreta o corpo conforme o content-type declarado.
func decode(resp *proxy.Response) (*UpstreamResponse, error) {
	out := &UpstreamResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType,
	}

	body := bytes.TrimSpace(resp.Body)
	if resp.IsJSON() && len(body) > 0 {
		if !json.Valid(body) {
			return nil, NewError(KindUpstreamMalformedResponse, errors.New("upstream declarou JSON mas o corpo não é JSON válido"))
		}
		out.Payload = json.RawMessage(body)
		return out, nil
	}

	out.Text = string(resp.Body)
	return out, nil
}

// mergeFields adiciona campos a um objeto JSON. Valores que não são objeto
// ficam sob a chave "data".
func mergeFields(payload json.RawMessage, fields map[string]interface{}) (json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	trimmed := bytes.TrimSpace(payload)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}
	} else if len(trimmed) > 0 {
		obj["data"] = json.RawMessage(trimmed)
	}

	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}
