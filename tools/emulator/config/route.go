package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/raywall/nfse-gateway/tools/emulator/types"
	"github.com/rs/zerolog/log"
)

// RouteConfig é uma rota de fixture (ex: /v2/empresas/{cnpj}).
type RouteConfig struct {
	Path              string               `json:"path"`
	Method            string               `json:"method"`
	Response          *types.Response      `json:"response,omitempty"` // Para respostas estáticas
	Data              []interface{}        `json:"data,omitempty"`     // Para dados dinâmicos
	QueryParams       []types.ParamMapping `json:"query_params,omitempty"`
	PathParams        []types.ParamMapping `json:"path_params,omitempty"`
	ResponseOnMatch   *types.Response      `json:"response_on_match,omitempty"`
	ResponseOnNoMatch *types.Response      `json:"response_on_no_match,omitempty"`
}

func (route RouteConfig) static() bool {
	return route.Response != nil && len(route.Data) == 0 && len(route.QueryParams) == 0 && len(route.PathParams) == 0
}

// NewHandler cria o handler da fixture: resposta estática ou filtro sobre Data.
func NewHandler(route RouteConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if route.static() {
			sendResponse(w, route.Response.Status, route.Response.Body)
			return
		}

		// 1. Coleta os filtros de path e query
		params := make(map[string]string)
		vars := mux.Vars(r)
		for _, p := range route.PathParams {
			if value, ok := vars[p.Name]; ok {
				params[p.MapsTo] = value
			}
		}
		query := r.URL.Query()
		for _, p := range route.QueryParams {
			if value := query.Get(p.Name); value != "" {
				params[p.MapsTo] = value
			}
		}

		// 2. Filtra o dataset
		matches := filter(route.Data, params)

		if len(matches) == 0 {
			resp := route.ResponseOnNoMatch
			if resp == nil {
				resp = &types.Response{Status: http.StatusNotFound, Body: types.FocusError{Codigo: "nao_encontrado", Mensagem: "Registro não encontrado"}}
			}
			sendResponse(w, resp.Status, resp.Body)
			return
		}

		status := http.StatusOK
		if route.ResponseOnMatch != nil && route.ResponseOnMatch.Status != 0 {
			status = route.ResponseOnMatch.Status
		}

		// com filtro por path o cliente espera um objeto, sem filtro uma lista
		if len(route.PathParams) > 0 && len(matches) == 1 {
			sendResponse(w, status, matches[0])
			return
		}
		sendResponse(w, status, matches)
	}
}

func filter(data []interface{}, params map[string]string) []interface{} {
	matches := make([]interface{}, 0)
	for _, item := range data {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		match := true
		for field, value := range params {
			itemValue, exists := itemMap[field]
			if !exists || !valuesMatch(itemValue, value) {
				match = false
				break
			}
		}
		if match {
			matches = append(matches, item)
		}
	}
	return matches
}

func sendResponse(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Error().Err(err).Msg("Erro ao encode response")
		}
	}
}

func valuesMatch(a interface{}, b string) bool {
	switch v := a.(type) {
	case string:
		return v == b
	case float64:
		f, err := strconv.ParseFloat(b, 64)
		return err == nil && v == f
	case bool:
		return strings.ToLower(b) == fmt.Sprintf("%v", v)
	default:
		return false
	}
}
