package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient abstrai o cliente DynamoDB (permite Mocking)
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// dynamoItem é o formato gravado na tabela.
// expiresAt deve estar configurado como atributo de TTL da tabela.
type dynamoItem struct {
	Ref       string `dynamodbav:"ref"`
	Payload   []byte `dynamodbav:"payload"`
	StoredAt  int64  `dynamodbav:"storedAt"`  // unix millis
	ExpiresAt int64  `dynamodbav:"expiresAt"` // unix seconds
}

// DynamoDB guarda o cache numa tabela com hash key "ref".
type DynamoDB struct {
	client DynamoDBClient
	table  string
	ttl    time.Duration
}

func NewDynamoDB(client DynamoDBClient, table string, ttl time.Duration) *DynamoDB {
	return &DynamoDB{client: client, table: table, ttl: ttl}
}

func (d *DynamoDB) Get(ctx context.Context, key string) (*Entry, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"ref": &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get failed: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("dynamodb: unmarshal failed: %w", err)
	}

	return &Entry{
		Key:      item.Ref,
		Payload:  item.Payload,
		StoredAt: time.UnixMilli(item.StoredAt),
	}, nil
}

// Put só sobrescreve quando a entrada gravada é mais antiga ou igual,
// evitando que uma consulta lenta apague um status mais novo.
func (d *DynamoDB) Put(ctx context.Context, entry Entry) error {
	item := dynamoItem{
		Ref:       entry.Key,
		Payload:   entry.Payload,
		StoredAt:  entry.StoredAt.UnixMilli(),
		ExpiresAt: entry.StoredAt.Add(d.ttl).Add(time.Second).Unix(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("dynamodb: marshal failed: %w", err)
	}

	cond := expression.Or(
		expression.AttributeNotExists(expression.Name("ref")),
		expression.Name("storedAt").LessThanEqual(expression.Value(item.StoredAt)),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("dynamodb: expression failed: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.table),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		// Já existe uma entrada mais nova: nada a fazer
		return nil
	}
	if err != nil {
		return fmt.Errorf("dynamodb: put failed: %w", err)
	}
	return nil
}

func (d *DynamoDB) Close() error { return nil }
