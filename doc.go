// Package nfsegateway é um gateway HTTP fino entre aplicações internas e a API
// de NFSe da Focus NFe.
//
// O gateway guarda o token da Focus NFe no servidor, repassa chamadas
// arbitrárias (/proxy) e oferece uma consulta de status de NFSe com cache
// (/document-status). Todas as falhas do upstream são traduzidas para um
// envelope JSON padrão.
//
// Sub-Pacotes Principais:
//
// 1. pkg/proxy:
//   - Forwarder canônico: montagem de URL, filtro do parâmetro "path",
//     autenticação Basic e timeout por chamada.
//
// 2. pkg/gateway:
//   - Regras de negócio: classificação de erros, envelope, consulta de status
//     com cache e tratamento do 404 como "processando".
//
// 3. pkg/cache:
//   - Store de respostas com TTL (memória LRU, Redis, DynamoDB ou SQLite).
//
// 4. pkg/transport:
//   - Servidor HTTP (gorilla/mux), adaptador API Gateway/Lambda, CORS,
//     correlação de requisições e consumidor SQS de webhooks.
//
// 5. pkg/config, pkg/credential e envloader:
//   - Configuração via YAML opcional e variáveis de ambiente, e resolução do
//     token (inline, Secrets Manager ou SSM).
//
// Binários: cmd/server (local ou lambda), cmd/toolkit (CLI) e cmd/emulator
// (sandbox da Focus NFe para testes locais).
package nfsegateway
