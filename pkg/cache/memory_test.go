package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newEntry(ref string, at time.Time) Entry {
	return Entry{Key: Key(ref), Payload: json.RawMessage(`{"status":"autorizado"}`), StoredAt: at}
}

func TestEntry_FreshAndAge(t *testing.T) {
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	e := newEntry("400427A", base)

	assert.True(t, e.Fresh(base, 30*time.Second))
	assert.True(t, e.Fresh(base.Add(29999*time.Millisecond), 30*time.Second))
	assert.False(t, e.Fresh(base.Add(30*time.Second), 30*time.Second), "exatamente no TTL já é stale")
	assert.Equal(t, 5*time.Second, e.Age(base.Add(5*time.Second)))
	assert.Equal(t, time.Duration(0), e.Age(base.Add(-time.Second)))
	assert.Equal(t, "nfse:400427A", Key("400427A"))
}

func TestMemory_GetPut(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)}
	mem := NewMemory(10, 30*time.Second).WithClock(clock.Now)

	t.Run("Miss em chave ausente", func(t *testing.T) {
		got, err := mem.Get(ctx, Key("inexistente"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Hit dentro do TTL", func(t *testing.T) {
		require.NoError(t, mem.Put(ctx, newEntry("A", clock.Now())))
		clock.Advance(10 * time.Second)

		got, err := mem.Get(ctx, Key("A"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Fresh(clock.Now(), 30*time.Second))
		assert.JSONEq(t, `{"status":"autorizado"}`, string(got.Payload))
	})

	t.Run("Stale continua guardado até ser sobrescrito", func(t *testing.T) {
		clock.Advance(25 * time.Second)

		got, err := mem.Get(ctx, Key("A"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, got.Fresh(clock.Now(), 30*time.Second))

		fresh := newEntry("A", clock.Now())
		fresh.Payload = json.RawMessage(`{"status":"cancelado"}`)
		require.NoError(t, mem.Put(ctx, fresh))

		got, _ = mem.Get(ctx, Key("A"))
		assert.True(t, got.Fresh(clock.Now(), 30*time.Second))
		assert.JSONEq(t, `{"status":"cancelado"}`, string(got.Payload))
		assert.Equal(t, 1, mem.Len(), "sobrescrita não duplica a chave")
	})

	hits, misses, _ := mem.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(2), misses)
}

func TestMemory_LRUEviction(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	mem := NewMemory(2, time.Minute)

	require.NoError(t, mem.Put(ctx, newEntry("A", now)))
	require.NoError(t, mem.Put(ctx, newEntry("B", now)))

	// A passa a ser o mais recente
	_, _ = mem.Get(ctx, Key("A"))

	require.NoError(t, mem.Put(ctx, newEntry("C", now)))

	assert.Equal(t, 2, mem.Len())
	gotB, _ := mem.Get(ctx, Key("B"))
	assert.Nil(t, gotB, "B era o menos usado e deve ter saído")
	gotA, _ := mem.Get(ctx, Key("A"))
	assert.NotNil(t, gotA)

	_, _, evictions := mem.Stats()
	assert.Equal(t, int64(1), evictions)
}

func TestMemory_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	mem := NewMemory(10, 30*time.Second).WithClock(clock.Now)

	require.NoError(t, mem.Put(ctx, newEntry("velho", clock.Now())))
	clock.Advance(20 * time.Second)
	require.NoError(t, mem.Put(ctx, newEntry("novo", clock.Now())))
	clock.Advance(15 * time.Second)

	assert.Equal(t, 1, mem.Sweep())
	assert.Equal(t, 1, mem.Len())

	got, _ := mem.Get(ctx, Key("novo"))
	assert.NotNil(t, got)
}

func TestMemory_StartSweeper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := NewMemory(10, time.Millisecond)
	require.NoError(t, mem.Put(ctx, newEntry("A", time.Now().Add(-time.Second))))

	mem.StartSweeper(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return mem.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory(64, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := fmt.Sprintf("REF%d", i%10)
			_ = mem.Put(ctx, newEntry(ref, time.Now()))
			_, _ = mem.Get(ctx, Key(ref))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, mem.Len())
}
