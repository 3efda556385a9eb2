package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/raywall/nfse-gateway/pkg/gateway"
)

// LambdaHandler adapta eventos do API Gateway para o mesmo router do servidor HTTP.
type LambdaHandler struct {
	handler http.Handler
}

// NewLambdaHandler cria o adaptador a partir do handler montado por NewRouter.
func NewLambdaHandler(handler http.Handler) *LambdaHandler {
	return &LambdaHandler{handler: handler}
}

// Handle converte o evento em *http.Request, executa o router e devolve a resposta acumulada.
func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	httpReq, err := toHTTPRequest(ctx, req)
	if err != nil {
		return errorEvent(gateway.NewError(gateway.KindInvalidBody, err)), nil
	}

	rw := newBufferedWriter()
	h.handler.ServeHTTP(rw, httpReq)

	return rw.toEvent(), nil
}

func toHTTPRequest(ctx context.Context, req events.APIGatewayProxyRequest) (*http.Request, error) {
	// 1. Corpo (o API Gateway codifica binários em base64)
	var body io.Reader = strings.NewReader(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			// a falha aparece na leitura do corpo e o router responde com o envelope padrão
			body = failingBody{err: fmt.Errorf("corpo base64 inválido: %w", err)}
		} else {
			body = bytes.NewReader(decoded)
		}
	}

	// 2. Query string (multi-valor tem precedência)
	query := url.Values{}
	for k, v := range req.QueryStringParameters {
		query.Set(k, v)
	}
	for k, vs := range req.MultiValueQueryStringParameters {
		query[k] = vs
	}

	path := req.Path
	if path == "" {
		path = "/"
	}
	target := (&url.URL{Path: path, RawQuery: query.Encode()}).String()

	method := strings.ToUpper(req.HTTPMethod)
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	// 3. Headers
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, vs := range req.MultiValueHeaders {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.RequestContext.Identity.SourceIP != "" {
		httpReq.RemoteAddr = req.RequestContext.Identity.SourceIP
	}

	return httpReq, nil
}

// errorEvent monta a resposta de erro para eventos que nem chegam ao router.
func errorEvent(err error) events.APIGatewayProxyResponse {
	status, env := gateway.NewEnvelope(err, false, time.Now())
	body, _ := json.Marshal(env)

	rw := newBufferedWriter()
	for k, v := range corsHeaders {
		rw.Header().Set(k, v)
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	rw.Write(body)
	return rw.toEvent()
}

// failingBody devolve sempre o erro de decodificação do evento.
type failingBody struct {
	err error
}

func (f failingBody) Read([]byte) (int, error) {
	return 0, f.err
}

// bufferedWriter acumula a resposta do router para devolvê-la ao runtime da Lambda.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: http.Header{}}
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) toEvent() events.APIGatewayProxyResponse {
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}

	headers := make(map[string]string, len(b.header))
	for k, v := range b.header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           headers,
		MultiValueHeaders: map[string][]string(b.header),
		Body:              b.body.String(),
	}
}
