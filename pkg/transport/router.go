package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/raywall/nfse-gateway/pkg/gateway"
	"github.com/raywall/nfse-gateway/pkg/proxy"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes limita o corpo aceito em /proxy.
const maxBodyBytes = 5 << 20

// NewRouter monta o handler HTTP do gateway.
// CORS e observabilidade envolvem o router por fora, pois o mux só executa
// middlewares em rotas que casaram.
func NewRouter(svc *gateway.Service) http.Handler {
	h := &handlers{svc: svc}

	r := mux.NewRouter()
	r.HandleFunc("/proxy", h.proxy)
	r.HandleFunc("/document-status", h.documentStatus)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	var handler http.Handler = r
	handler = RecoveryMiddleware(svc)(handler)
	handler = CORSMiddleware(handler)
	handler = ObservabilityMiddleware(handler)
	return handler
}

type handlers struct {
	svc *gateway.Service
}

func (h *handlers) proxy(w http.ResponseWriter, r *http.Request) {
	query := firstValues(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, h.svc, gateway.NewError(gateway.KindInvalidBody, err))
		return
	}

	resp, err := h.svc.Forward(r.Context(), gateway.ProxyRequest{
		Method:       r.Method,
		UpstreamPath: query[proxy.RoutingParam],
		Query:        query,
		Body:         body,
	})
	if err != nil {
		writeError(w, r, h.svc, err)
		return
	}
	writeUpstream(w, resp)
}

func (h *handlers) documentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, h.svc, gateway.NewError(gateway.KindMethodNotAllowed, nil))
		return
	}

	resp, err := h.svc.DocumentStatus(r.Context(), r.URL.Query().Get("referencia"))
	if err != nil {
		writeError(w, r, h.svc, err)
		return
	}
	writeUpstream(w, resp)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, h.svc, gateway.NewError(gateway.KindRouteNotFound, nil))
}

func (h *handlers) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, h.svc, gateway.NewError(gateway.KindMethodNotAllowed, nil))
}

// firstValues achata a query mantendo o primeiro valor de cada chave.
func firstValues(r *http.Request) map[string]string {
	out := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func writeUpstream(w http.ResponseWriter, resp *gateway.UpstreamResponse) {
	if resp.Payload != nil {
		ct := resp.ContentType
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(resp.StatusCode)
		w.Write(resp.Payload)
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	io.WriteString(w, resp.Text)
}

func writeError(w http.ResponseWriter, r *http.Request, svc *gateway.Service, err error) {
	status, env := svc.Envelope(err)

	event := log.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = log.Ctx(r.Context()).Error()
	}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		event = event.Str("kind", string(gwErr.Kind))
	}
	event.Err(err).Int("status", status).Str("path", r.URL.Path).Msg("requisição falhou")

	writeJSON(w, status, env)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
