package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Memory é um cache LRU em memória com capacidade fixa.
// Entradas vencidas continuam ocupando espaço até serem sobrescritas,
// expulsas pelo LRU ou removidas pelo sweeper.
type Memory struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List // frente = mais recente
	now      func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewMemory cria um cache com a capacidade e o TTL informados.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// WithClock troca o relógio (usado nos testes de TTL).
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		m.misses.Add(1)
		return nil, nil
	}

	entry := el.Value.(*Entry)
	if entry.Fresh(m.now(), m.ttl) {
		m.hits.Add(1)
		m.order.MoveToFront(el)
	} else {
		m.misses.Add(1)
	}

	cp := *entry
	return &cp, nil
}

func (m *Memory) Put(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[entry.Key]; ok {
		el.Value = &entry
		m.order.MoveToFront(el)
		return nil
	}

	m.items[entry.Key] = m.order.PushFront(&entry)

	for m.order.Len() > m.capacity {
		m.removeElement(m.order.Back())
		m.evictions.Add(1)
	}
	return nil
}

// Sweep remove todas as entradas vencidas e devolve quantas saíram.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		if !el.Value.(*Entry).Fresh(now, m.ttl) {
			m.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed
}

// StartSweeper roda Sweep periodicamente até o contexto ser cancelado.
func (m *Memory) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					log.Debug().Int("removed", n).Msg("cache: entradas vencidas removidas")
				}
			}
		}
	}()
}

// Len devolve o número de entradas (frescas ou não) em memória.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Stats devolve hits, misses e evictions acumulados.
func (m *Memory) Stats() (hits, misses, evictions int64) {
	return m.hits.Load(), m.misses.Load(), m.evictions.Load()
}

func (m *Memory) Close() error { return nil }

func (m *Memory) removeElement(el *list.Element) {
	m.order.Remove(el)
	delete(m.items, el.Value.(*Entry).Key)
}
