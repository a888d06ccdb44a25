package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"catalogo-backend/application/ports"
	"catalogo-backend/pkg/retry"
)

// fakeDynamoClient implements DynamoDBAPI with per-call hooks.
type fakeDynamoClient struct {
	putItem        func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	getItem        func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	updateItem     func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	deleteItem     func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error)
	query          func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	scan           func(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
	batchWriteItem func(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error)

	putCalls    int
	getCalls    int
	updateCalls int
	deleteCalls int
	queryCalls  int
	scanCalls   int
	batchCalls  int
}

func (f *fakeDynamoClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putCalls++
	return f.putItem(params)
}

func (f *fakeDynamoClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.getCalls++
	return f.getItem(params)
}

func (f *fakeDynamoClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateCalls++
	return f.updateItem(params)
}

func (f *fakeDynamoClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deleteCalls++
	return f.deleteItem(params)
}

func (f *fakeDynamoClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryCalls++
	return f.query(params)
}

func (f *fakeDynamoClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanCalls++
	return f.scan(params)
}

func (f *fakeDynamoClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batchCalls++
	return f.batchWriteItem(params)
}

func portsPage(limit int, cursor string) ports.PageRequest {
	return ports.PageRequest{Limit: limit, Cursor: cursor}
}

// fastRetrier keeps test backoff in the microsecond range.
func fastRetrier() *retry.Retrier {
	return retry.NewRetrier(retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Microsecond,
		MaxDelay:     10 * time.Microsecond,
	}, zap.NewNop())
}
