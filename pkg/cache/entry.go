package cache

import (
	"context"
	"encoding/json"
	"time"
)

const keyPrefix = "nfse:"

// Entry é o status de um documento armazenado em cache.
type Entry struct {
	Key      string          `json:"key"`
	Payload  json.RawMessage `json:"payload"`
	StoredAt time.Time       `json:"storedAt"`
}

// Fresh indica se a entrada ainda está dentro da janela de validade.
func (e *Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) < ttl
}

// Age devolve há quanto tempo a entrada foi gravada (nunca negativo).
func (e *Entry) Age(now time.Time) time.Duration {
	age := now.Sub(e.StoredAt)
	if age < 0 {
		return 0
	}
	return age
}

// Store é o contrato comum dos backends de cache.
type Store interface {
	// Get devolve a entrada da chave, fresca ou não, ou nil quando ausente.
	Get(ctx context.Context, key string) (*Entry, error)
	// Put grava a entrada, sobrescrevendo a anterior.
	Put(ctx context.Context, entry Entry) error
	Close() error
}

// Key deriva a chave de cache a partir da referência do documento.
func Key(reference string) string {
	return keyPrefix + reference
}
