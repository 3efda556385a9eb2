package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/raywall/nfse-gateway/tools/emulator/types"
	"github.com/rs/zerolog/log"
)

const (
	StatusProcessando = "processando_autorizacao"
	StatusAutorizado  = "autorizado"
	StatusCancelado   = "cancelado"
)

// Server emula os endpoints de NFSe e empresas da Focus NFe.
type Server struct {
	cfg Config

	mu        sync.Mutex
	documents map[string]*document
	sequence  int
	now       func() time.Time
}

type document struct {
	types.Document
	polls int
}

// NewServer cria o emulador a partir da configuração.
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:       cfg,
		documents: make(map[string]*document),
		now:       time.Now,
	}
}

// Handler monta o router com autenticação e latência simulada.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/v2/nfse", s.submit).Methods(http.MethodPost)
	router.HandleFunc("/v2/nfse/{ref}", s.status).Methods(http.MethodGet)
	router.HandleFunc("/v2/nfse/{ref}", s.cancel).Methods(http.MethodDelete)

	for _, route := range s.cfg.Routes {
		router.HandleFunc(route.Path, NewHandler(route)).Methods(strings.ToUpper(route.Method))
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendResponse(w, http.StatusNotFound, types.FocusError{Codigo: "nao_encontrado", Mensagem: "Endpoint não encontrado"})
	})

	router.Use(s.latency, s.auth)
	return router
}

// Start sobe o servidor e bloqueia até o contexto ser cancelado.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", s.cfg.Port).Int("pending_polls", s.cfg.PendingPolls).Msg("Emulador Focus NFe iniciado")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// auth exige Basic Auth com o token como usuário.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user == "" || (s.cfg.Token != "" && user != s.cfg.Token) {
			sendResponse(w, http.StatusUnauthorized, types.FocusError{
				Codigo:   "nao_autorizado",
				Mensagem: "Token de acesso inválido ou ausente",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) latency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.LatencyMs > 0 {
			select {
			case <-time.After(time.Duration(s.cfg.LatencyMs) * time.Millisecond):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// submit registra uma NFSe para processamento assíncrono (POST /v2/nfse?ref=X).
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		sendResponse(w, http.StatusBadRequest, types.FocusError{Codigo: "requisicao_invalida", Mensagem: "Parâmetro ref não informado"})
		return
	}

	payload := map[string]interface{}{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendResponse(w, http.StatusBadRequest, types.FocusError{Codigo: "requisicao_invalida", Mensagem: "JSON inválido"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.documents[ref]; ok && doc.Status != StatusCancelado {
		sendResponse(w, http.StatusUnprocessableEntity, types.FocusError{Codigo: "nfe_autorizada", Mensagem: "Já existe nota com a referência " + ref})
		return
	}

	doc := &document{Document: types.Document{Ref: ref, Status: StatusProcessando, Payload: payload}}
	s.documents[ref] = doc
	log.Info().Str("ref", ref).Msg("NFSe recebida")

	sendResponse(w, http.StatusAccepted, doc.Document)
}

// status responde 404 enquanto a nota está pendente e depois a devolve autorizada.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[ref]
	if !ok {
		sendResponse(w, http.StatusNotFound, types.FocusError{Codigo: "nao_encontrado", Mensagem: "Nota fiscal não encontrada"})
		return
	}

	if doc.Status == StatusProcessando {
		if doc.polls < s.cfg.PendingPolls {
			doc.polls++
			sendResponse(w, http.StatusNotFound, types.FocusError{Codigo: "nao_encontrado", Mensagem: "Nota fiscal em processamento"})
			return
		}
		s.authorize(doc)
	}

	sendResponse(w, http.StatusOK, doc.Document)
}

func (s *Server) authorize(doc *document) {
	s.sequence++
	doc.Status = StatusAutorizado
	doc.Numero = strconv.Itoa(s.sequence)
	doc.CodigoVerificacao = fmt.Sprintf("%08X", s.sequence*7919)
	doc.DataEmissao = s.now().Format(time.RFC3339)
}

// cancel cancela uma NFSe (DELETE /v2/nfse/{ref}).
func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[ref]
	if !ok {
		sendResponse(w, http.StatusNotFound, types.FocusError{Codigo: "nao_encontrado", Mensagem: "Nota fiscal não encontrada"})
		return
	}
	doc.Status = StatusCancelado
	sendResponse(w, http.StatusOK, map[string]string{"status": StatusCancelado})
}
