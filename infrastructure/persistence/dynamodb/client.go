// Package dynamodb implements the conditional data-access layer for
// both catalog collections. Every operation performs exactly one
// logical store interaction, reclassifies store faults at the point of
// origin, and runs under the shared retry wrapper.
package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperrors "catalogo-backend/pkg/errors"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the
// repositories. Tests substitute a fake.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Pagination defaults and bounds for list operations.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// batchWriteCeiling is the store-imposed item limit for one
// BatchWriteItem call.
const batchWriteCeiling = 25

// encodeCursor turns a LastEvaluatedKey into an opaque token. Every
// key attribute in both tables and their indexes is a string, so the
// key map round-trips through a plain string map.
func encodeCursor(key map[string]types.AttributeValue) string {
	if len(key) == 0 {
		return ""
	}

	flat := make(map[string]string, len(key))
	for name, av := range key {
		if s, ok := av.(*types.AttributeValueMemberS); ok {
			flat[name] = s.Value
		}
	}

	raw, err := json.Marshal(flat)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeCursor reverses encodeCursor. A malformed token surfaces as a
// validation error so the caller sees a 400, not a store fault.
func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid pagination cursor").WithCause(err)
	}

	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, apperrors.NewValidationError("invalid pagination cursor").WithCause(err)
	}

	key := make(map[string]types.AttributeValue, len(flat))
	for name, value := range flat {
		key[name] = &types.AttributeValueMemberS{Value: value}
	}
	return key, nil
}

// clampLimit applies the default and ceiling to a requested page size.
func clampLimit(limit int) int32 {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return int32(limit)
}
