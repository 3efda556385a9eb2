package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifica as falhas do gateway.
type ErrorKind string

const (
	KindMissingPath               ErrorKind = "MissingPath"
	KindInvalidPath               ErrorKind = "InvalidPath"
	KindMissingReference          ErrorKind = "MissingReference"
	KindMethodNotAllowed          ErrorKind = "MethodNotAllowed"
	KindInvalidBody               ErrorKind = "InvalidBody"
	KindRouteNotFound             ErrorKind = "RouteNotFound"
	KindUpstreamTimeout           ErrorKind = "UpstreamTimeout"
	KindUpstreamUnreachable       ErrorKind = "UpstreamUnreachable"
	KindUpstreamMalformedResponse ErrorKind = "UpstreamMalformedResponse"
	KindUpstreamRejected          ErrorKind = "UpstreamRejected"
	KindInternal                  ErrorKind = "Internal"
)

// timestampLayout segue o formato ISO-8601 com milissegundos em UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type kindInfo struct {
	status  int
	message string
	// diagnostic indica que details só sai em modo de desenvolvimento
	diagnostic bool
}

var kinds = map[ErrorKind]kindInfo{
	KindMissingPath:               {http.StatusBadRequest, "path required", false},
	KindInvalidPath:               {http.StatusBadRequest, "invalid path", true},
	KindMissingReference:          {http.StatusBadRequest, "reference required", false},
	KindMethodNotAllowed:          {http.StatusMethodNotAllowed, "method not allowed", false},
	KindInvalidBody:               {http.StatusBadRequest, "invalid request body", true},
	KindRouteNotFound:             {http.StatusNotFound, "route not found", false},
	KindUpstreamTimeout:           {http.StatusRequestTimeout, "timeout contacting upstream", true},
	KindUpstreamUnreachable:       {http.StatusBadGateway, "connection error", true},
	KindUpstreamMalformedResponse: {http.StatusBadGateway, "invalid upstream response", true},
	KindUpstreamRejected:          {http.StatusBadGateway, "upstream rejected request", false},
	KindInternal:                  {http.StatusInternalServerError, "internal server error", true},
}

// Error é o erro classificado devolvido pelas operações do gateway.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	// Details carrega o payload do upstream em UpstreamRejected.
	Details interface{}
	Err     error
}

// NewError cria um erro com o status e a mensagem padrão do tipo.
func NewError(kind ErrorKind, err error) *Error {
	info, ok := kinds[kind]
	if !ok {
		info = kinds[KindInternal]
	}
	return &Error{Kind: kind, Status: info.status, Message: info.message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Envelope é o corpo JSON estável de toda resposta de erro.
type Envelope struct {
	Error     bool        `json:"error"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewEnvelope classifica err e monta o corpo de erro.
// Erros não classificados viram Internal.
func NewEnvelope(err error, devMode bool, now time.Time) (int, Envelope) {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		gwErr = NewError(KindInternal, err)
	}

	env := Envelope{
		Error:     true,
		Message:   gwErr.Message,
		Timestamp: now.UTC().Format(timestampLayout),
	}

	switch {
	case gwErr.Details != nil:
		env.Details = gwErr.Details
	case devMode && kinds[gwErr.Kind].diagnostic && gwErr.Err != nil:
		env.Details = gwErr.Err.Error()
	}

	status := gwErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, env
}

// rejected monta o erro de status não-2xx preservando o payload do upstream.
func rejected(status int, payload json.RawMessage, text string) *Error {
	e := NewError(KindUpstreamRejected, nil)
	e.Status = status
	if payload != nil {
		e.Details = payload
	} else {
		e.Details = text
	}
	return e
}
