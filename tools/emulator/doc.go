// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Package emulator fornece um sandbox local da API da Focus NFe, configurável via JSON,
// para desenvolver e testar o gateway sem credenciais reais.
//
// Visão Geral:
// O emulador implementa o ciclo assíncrono de uma NFSe: a nota enviada com
// POST /v2/nfse?ref=X fica em processamento e as consultas em GET /v2/nfse/{ref}
// respondem 404 pelas primeiras `pending_polls` vezes, exatamente como a API real
// faz enquanto a prefeitura não devolve o retorno. Depois disso a nota aparece
// autorizada, com número e código de verificação.
//
// Funcionalidades Principais:
//   - Ciclo de vida da NFSe: envio, consulta pendente, autorização e cancelamento.
//   - Autenticação: exige Basic Auth com o token como usuário (401 quando ausente).
//   - Fixtures: rotas extras (ex: /v2/empresas/{cnpj}) com filtro de dados por
//     `path_params` e `query_params`.
//   - Latência simulada: `latency_ms` atrasa todas as respostas, útil para testar timeouts.
//
// Exemplo de Configuração (emulator.json):
//
//	{
//	  "port": 9090,
//	  "token": "token-sandbox",
//	  "pending_polls": 2,
//	  "routes": [
//	    {
//	      "path": "/v2/empresas/{cnpj}",
//	      "method": "GET",
//	      "path_params": [{ "name": "cnpj", "maps_to": "cnpj" }],
//	      "data": [
//	        { "cnpj": "07504505000132", "nome": "Acme Ltda", "habilita_nfse": true }
//	      ]
//	    }
//	  ]
//	}
//
// Exemplo de Inicialização Programática (Go):
//
//	cfg, err := config.LoadFromFile("emulator.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := config.NewServer(cfg)
//	_ = srv.Start(ctx)
//
// O gateway é apontado para o emulador com FOCUS_NFE_BASE_URL=http://localhost:9090/.
package emulator
