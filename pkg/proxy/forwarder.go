package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raywall/nfse-gateway/pkg/credential"
	"github.com/raywall/nfse-gateway/pkg/logger"
	"github.com/rs/zerolog/log"
)

// RoutingParam é o parâmetro de query usado apenas para roteamento; nunca é repassado.
const RoutingParam = "path"

const userAgent = "nfse-gateway/1.0"

// Call descreve uma chamada à API upstream.
type Call struct {
	Method  string
	Path    string
	Query   map[string]string
	Body    json.RawMessage
	Timeout time.Duration
}

// Response representa a resposta da API upstream.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsJSON indica se a resposta declarou conteúdo JSON.
func (r *Response) IsJSON() bool {
	return isJSONContentType(r.ContentType)
}

// Success indica status 2xx.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// TransportError é uma falha de rede ao falar com o upstream (conexão, DNS ou timeout).
type TransportError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("proxy: timeout chamando %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("proxy: falha de conexão com %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidPathError indica um caminho upstream que não forma uma URL válida.
type InvalidPathError struct {
	Path string
	Err  error
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("proxy: caminho upstream inválido %q: %v", e.Path, e.Err)
}

func (e *InvalidPathError) Unwrap() error {
	return e.Err
}

// Client é o forwarder único usado pelo servidor HTTP, pela Lambda e pela CLI.
type Client struct {
	BaseURL    string
	Credential credential.Credential
	HTTPClient *http.Client
}

// NewClient cria um Client com um http.Client reutilizável (pooling de conexões).
// O timeout é controlado por chamada via contexto.
func NewClient(baseURL string, cred credential.Credential) *Client {
	return &Client{
		BaseURL:    baseURL,
		Credential: cred,
		HTTPClient: &http.Client{},
	}
}

// Forward envia a chamada para a API upstream e devolve a resposta sem remapear status.
func (c *Client) Forward(ctx context.Context, call Call) (*Response, error) {
	method := strings.ToUpper(call.Method)
	if method == "" {
		method = http.MethodGet
	}

	// 1. Monta a URL (o parâmetro de roteamento fica de fora)
	target, err := BuildURL(c.BaseURL, call.Path, call.Query)
	if err != nil {
		return nil, err
	}

	// 2. Timeout específico da chamada
	reqCtx := ctx
	if call.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, call.Timeout)
		defer cancel()
	}

	// 3. Corpo apenas em POST/PUT
	var body io.Reader
	sendBody := (method == http.MethodPost || method == http.MethodPut) && len(bytes.TrimSpace(call.Body)) > 0
	if sendBody {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar request upstream: %w", err)
	}

	// 4. Headers
	req.Header.Set("Authorization", c.Credential.AuthorizationHeader())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if sendBody {
		req.Header.Set("Content-Type", "application/json")
	}

	// 5. Executa
	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		terr := &TransportError{URL: target, Timeout: isTimeout(err), Err: err}
		log.Ctx(ctx).Error().
			Err(err).
			Str("method", method).
			Str("url", target).
			Bool("timeout", terr.Timeout).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Msg("falha ao chamar upstream")
		return nil, terr
	}
	defer resp.Body.Close()

	// 6. Lê a resposta
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: target, Timeout: isTimeout(err), Err: err}
	}

	out := &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}

	log.Ctx(ctx).Info().
		Str("method", method).
		Str("url", target).
		Int("status", out.StatusCode).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Str("preview", logger.Preview(respBody)).
		Msg("resposta do upstream")

	return out, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// BuildURL concatena a base com o caminho upstream e anexa a query,
// descartando o parâmetro de roteamento.
func BuildURL(base, path string, query map[string]string) (string, error) {
	if err := CheckPath(path); err != nil {
		return "", err
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("URL upstream inválida: %w", err)
	}

	values := u.Query()
	for k, v := range query {
		if k == RoutingParam {
			continue
		}
		values.Set(k, v)
	}
	// o caminho pode carregar sua própria query
	values.Del(RoutingParam)

	u.RawQuery = values.Encode()
	return u.String(), nil
}

// CheckPath valida o caminho upstream (escapes e caracteres de controle) sem depender da base.
func CheckPath(path string) error {
	if _, err := url.Parse("/" + strings.TrimLeft(path, "/")); err != nil {
		return &InvalidPathError{Path: path, Err: err}
	}
	return nil
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
