// Package cache guarda, por um curto período, o último status consultado de cada
// documento fiscal (NFSe) para evitar chamadas repetidas à Focus NFe.
//
// Todas as implementações seguem o mesmo contrato:
//   - uma entrada é fresca enquanto now - StoredAt < TTL;
//   - Put sobrescreve a entrada anterior da mesma chave;
//   - Get de chave ausente devolve (nil, nil);
//   - o cache é best-effort: o gateway nunca falha uma consulta por erro de cache.
//
// Backends disponíveis:
//   - Memory: LRU com capacidade fixa (um processo / uma instância Lambda);
//   - Redis e DynamoDB: compartilhados entre instâncias, expiração nativa;
//   - SQLite: persistente em disco para execuções locais.
package cache
