package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/nfse-gateway/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Redis ---

type MockRedis struct {
	data    map[string]string
	lastTTL time.Duration
	err     error
}

func (m *MockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	val, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (m *MockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	m.data[key] = string(value.([]byte))
	m.lastTTL = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *MockRedis) Close() error { return nil }

func TestRedis_GetPut(t *testing.T) {
	ctx := context.Background()
	client := &MockRedis{data: map[string]string{}}
	store := NewRedisWithClient(client, 30*time.Second)

	got, err := store.Get(ctx, Key("400427A"))
	require.NoError(t, err)
	assert.Nil(t, got, "redis.Nil vira miss")

	storedAt := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, newEntry("400427A", storedAt)))
	assert.Equal(t, 30*time.Second, client.lastTTL)

	got, err = store.Get(ctx, Key("400427A"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, storedAt.Equal(got.StoredAt))
	assert.JSONEq(t, `{"status":"autorizado"}`, string(got.Payload))
}

func TestRedis_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Conexão falhou", func(t *testing.T) {
		store := NewRedisWithClient(&MockRedis{data: map[string]string{}, err: errors.New("connection refused")}, time.Second)
		_, err := store.Get(ctx, "k")
		assert.ErrorContains(t, err, "connection refused")
		assert.Error(t, store.Put(ctx, newEntry("k", time.Now())))
	})

	t.Run("Entrada corrompida", func(t *testing.T) {
		store := NewRedisWithClient(&MockRedis{data: map[string]string{"k": "{nao-json"}}, time.Second)
		_, err := store.Get(ctx, "k")
		assert.ErrorContains(t, err, "entrada corrompida")
	})
}

// --- DynamoDB ---

type MockDynamoClient struct {
	mock.Mock
}

func (m *MockDynamoClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*dynamodb.GetItemOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDynamoClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*dynamodb.PutItemOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestDynamoDB_Get(t *testing.T) {
	ctx := context.Background()
	storedAt := time.UnixMilli(1736510400000)

	t.Run("Item encontrado", func(t *testing.T) {
		client := &MockDynamoClient{}
		client.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			key, ok := in.Key["ref"].(*types.AttributeValueMemberS)
			return *in.TableName == "nfse-cache" && ok && key.Value == "nfse:400427A" && *in.ConsistentRead
		})).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
			"ref":       &types.AttributeValueMemberS{Value: "nfse:400427A"},
			"payload":   &types.AttributeValueMemberB{Value: []byte(`{"status":"autorizado"}`)},
			"storedAt":  &types.AttributeValueMemberN{Value: "1736510400000"},
			"expiresAt": &types.AttributeValueMemberN{Value: "1736510431"},
		}}, nil)

		store := NewDynamoDB(client, "nfse-cache", 30*time.Second)
		got, err := store.Get(ctx, Key("400427A"))

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, storedAt.Equal(got.StoredAt))
		assert.JSONEq(t, `{"status":"autorizado"}`, string(got.Payload))
		client.AssertExpectations(t)
	})

	t.Run("Item ausente", func(t *testing.T) {
		client := &MockDynamoClient{}
		client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		got, err := NewDynamoDB(client, "nfse-cache", time.Second).Get(ctx, "x")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Erro na AWS", func(t *testing.T) {
		client := &MockDynamoClient{}
		client.On("GetItem", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

		_, err := NewDynamoDB(client, "nfse-cache", time.Second).Get(ctx, "x")
		assert.ErrorContains(t, err, "throttled")
	})
}

func TestDynamoDB_Put(t *testing.T) {
	ctx := context.Background()
	storedAt := time.UnixMilli(1736510400000)

	t.Run("Grava com condição e TTL", func(t *testing.T) {
		client := &MockDynamoClient{}
		client.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			expires, ok := in.Item["expiresAt"].(*types.AttributeValueMemberN)
			return *in.TableName == "nfse-cache" &&
				in.ConditionExpression != nil &&
				ok && expires.Value == "1736510431"
		})).Return(&dynamodb.PutItemOutput{}, nil)

		store := NewDynamoDB(client, "nfse-cache", 30*time.Second)
		require.NoError(t, store.Put(ctx, newEntry("400427A", storedAt)))
		client.AssertExpectations(t)
	})

	t.Run("Entrada mais nova já existe", func(t *testing.T) {
		client := &MockDynamoClient{}
		client.On("PutItem", mock.Anything, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{Message: new(string)})

		store := NewDynamoDB(client, "nfse-cache", 30*time.Second)
		assert.NoError(t, store.Put(ctx, newEntry("400427A", storedAt)))
	})

	t.Run("Erro na AWS", func(t *testing.T) {
		client := &MockDynamoClient{}
		client.On("PutItem", mock.Anything, mock.Anything).Return(nil, errors.New("AWS down"))

		store := NewDynamoDB(client, "nfse-cache", 30*time.Second)
		assert.ErrorContains(t, store.Put(ctx, newEntry("400427A", storedAt)), "AWS down")
	})
}

// --- SQLite ---

func TestSQLite_GetPut(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLite(":memory:", 2)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, Key("A"))
	require.NoError(t, err)
	assert.Nil(t, got)

	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, newEntry("A", base)))

	updated := newEntry("A", base.Add(time.Second))
	updated.Payload = json.RawMessage(`{"status":"cancelado"}`)
	require.NoError(t, store.Put(ctx, updated))

	got, err = store.Get(ctx, Key("A"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"status":"cancelado"}`, string(got.Payload))
	assert.True(t, base.Add(time.Second).Equal(got.StoredAt))

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_Capacity(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLite(":memory:", 2)
	require.NoError(t, err)
	defer store.Close()

	base := time.Now()
	require.NoError(t, store.Put(ctx, newEntry("A", base)))
	require.NoError(t, store.Put(ctx, newEntry("B", base.Add(time.Second))))
	require.NoError(t, store.Put(ctx, newEntry("C", base.Add(2*time.Second))))

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, _ := store.Get(ctx, Key("A"))
	assert.Nil(t, got, "a entrada mais antiga sai primeiro")
}

// --- Factory ---

func TestNew(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("Memory", func(t *testing.T) {
		store, err := New(ctx, config.CacheConf{Backend: config.BackendMemory, Capacity: 5, TTL: time.Second}, "")
		require.NoError(t, err)
		assert.IsType(t, &Memory{}, store)
	})

	t.Run("Redis", func(t *testing.T) {
		store, err := New(ctx, config.CacheConf{Backend: config.BackendRedis, RedisAddr: "localhost:6379", TTL: time.Second}, "")
		require.NoError(t, err)
		assert.IsType(t, &Redis{}, store)
		_ = store.Close()
	})

	t.Run("SQLite", func(t *testing.T) {
		store, err := New(ctx, config.CacheConf{Backend: config.BackendSQLite, SQLitePath: ":memory:", Capacity: 5}, "")
		require.NoError(t, err)
		assert.IsType(t, &SQLite{}, store)
		_ = store.Close()
	})

	t.Run("Desconhecido", func(t *testing.T) {
		_, err := New(ctx, config.CacheConf{Backend: "memcached"}, "")
		assert.ErrorContains(t, err, "desconhecido")
	})
}
