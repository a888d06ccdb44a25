package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"catalogo-backend/application/ports"
	"catalogo-backend/domain/catalog"
	apperrors "catalogo-backend/pkg/errors"
	"catalogo-backend/pkg/retry"
)

// CategoryRepository implements ports.CategoryRepository against the
// categories table, keyed by (categoryKey, entryKey).
type CategoryRepository struct {
	client    DynamoDBAPI
	tableName string
	retrier   *retry.Retrier
	breaker   *retry.CircuitBreaker
	logger    *zap.Logger
	debug     bool
}

// NewCategoryRepository creates a category repository. The breaker may
// be nil, in which case calls run under retry alone.
func NewCategoryRepository(
	client DynamoDBAPI,
	tableName string,
	retrier *retry.Retrier,
	breaker *retry.CircuitBreaker,
	logger *zap.Logger,
	debug bool,
) ports.CategoryRepository {
	return &CategoryRepository{
		client:    client,
		tableName: tableName,
		retrier:   retrier,
		breaker:   breaker,
		logger:    logger.Named("category_repository"),
		debug:     debug,
	}
}

func (r *CategoryRepository) execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	err := r.retrier.Do(ctx, operation, func(ctx context.Context) error {
		if r.breaker != nil {
			return r.breaker.Execute(func() error { return fn(ctx) })
		}
		return fn(ctx)
	})
	if errors.Is(err, retry.ErrCircuitOpen) {
		return apperrors.NewUnavailableError("").WithCause(err)
	}
	return err
}

// ListCategories scans for METADATA rows and projects the translations.
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]catalog.LocalizedText, error) {
	filter := expression.Name("entryKey").Equal(expression.Value(catalog.MetadataEntryKey))
	return r.scanTranslations(ctx, "ListCategories", filter)
}

// ListAllSubcategories scans for every SUB# row across categories.
func (r *CategoryRepository) ListAllSubcategories(ctx context.Context) ([]catalog.LocalizedText, error) {
	filter := expression.Name("entryKey").BeginsWith(catalog.SubcategoryPrefix)
	return r.scanTranslations(ctx, "ListAllSubcategories", filter)
}

func (r *CategoryRepository) scanTranslations(ctx context.Context, operation string, filter expression.ConditionBuilder) ([]catalog.LocalizedText, error) {
	expr, err := expression.NewBuilder().
		WithFilter(filter).
		WithProjection(expression.NamesList(expression.Name("categoryKey"), expression.Name("entryKey"), expression.Name("translations"))).
		Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build scan expression")
	}

	var translations []catalog.LocalizedText
	err = r.execute(ctx, operation, func(ctx context.Context) error {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          expr.Filter(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		translations, err = projectTranslations(out.Items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return translations, nil
}

// ListSubcategoriesOf queries one category's SUB# rows.
func (r *CategoryRepository) ListSubcategoriesOf(ctx context.Context, category string) ([]catalog.LocalizedText, error) {
	keyCond := expression.Key("categoryKey").Equal(expression.Value(category)).
		And(expression.Key("entryKey").BeginsWith(catalog.SubcategoryPrefix))
	expr, err := expression.NewBuilder().
		WithKeyCondition(keyCond).
		WithProjection(expression.NamesList(expression.Name("entryKey"), expression.Name("translations"))).
		Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build query expression")
	}

	var translations []catalog.LocalizedText
	err = r.execute(ctx, "ListSubcategoriesOf", func(ctx context.Context) error {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		translations, err = projectTranslations(out.Items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return translations, nil
}

// GetCategory reads the METADATA row; an absent row is NotFound.
func (r *CategoryRepository) GetCategory(ctx context.Context, name string) (catalog.LocalizedText, error) {
	var translations catalog.LocalizedText

	err := r.execute(ctx, "GetCategory", func(ctx context.Context) error {
		out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(r.tableName),
			Key:       categoryKey(name, catalog.MetadataEntryKey),
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		if out.Item == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("category %s", name))
		}
		var entry catalog.CategoryEntry
		if err := attributevalue.UnmarshalMap(out.Item, &entry); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal category entry")
		}
		translations = entry.Translations
		return nil
	})
	if err != nil {
		return nil, err
	}
	return translations, nil
}

// CreateCategory writes the METADATA row under an absence condition;
// the conditional-failure signal is read as Conflict.
func (r *CategoryRepository) CreateCategory(ctx context.Context, name string, translations catalog.LocalizedText) (*catalog.CategoryEntry, error) {
	entry := catalog.CategoryEntry{
		CategoryKey:  name,
		EntryKey:     catalog.MetadataEntryKey,
		Translations: translations,
	}

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal category entry")
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("categoryKey"))).
		Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build condition expression")
	}

	err = r.execute(ctx, "CreateCategory", func(ctx context.Context) error {
		_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 aws.String(r.tableName),
			Item:                      item,
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			var condFailed *types.ConditionalCheckFailedException
			if errors.As(err, &condFailed) {
				return apperrors.NewConflictError(fmt.Sprintf("category %s already exists", name))
			}
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("category created", zap.String("category", name))
	return &entry, nil
}

// UpdateCategory rewrites the METADATA translations under a presence
// condition; the conditional-failure signal is read as NotFound.
func (r *CategoryRepository) UpdateCategory(ctx context.Context, name string, translations catalog.LocalizedText) (*catalog.CategoryEntry, error) {
	expr, err := expression.NewBuilder().
		WithUpdate(expression.Set(expression.Name("translations"), expression.Value(translations))).
		WithCondition(expression.AttributeExists(expression.Name("entryKey"))).
		Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build update expression")
	}

	var entry catalog.CategoryEntry
	err = r.execute(ctx, "UpdateCategory", func(ctx context.Context) error {
		out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(r.tableName),
			Key:                       categoryKey(name, catalog.MetadataEntryKey),
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ReturnValues:              types.ReturnValueAllNew,
		})
		if err != nil {
			var condFailed *types.ConditionalCheckFailedException
			if errors.As(err, &condFailed) {
				return apperrors.NewNotFoundError(fmt.Sprintf("category %s", name))
			}
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		if err := attributevalue.UnmarshalMap(out.Attributes, &entry); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal category entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("category updated", zap.String("category", name))
	return &entry, nil
}

// UpsertSubcategory overwrites without a condition: the key is
// caller-chosen, so the same call serves create and update.
func (r *CategoryRepository) UpsertSubcategory(ctx context.Context, category, subcategory string, translations catalog.LocalizedText) (*catalog.CategoryEntry, error) {
	entry := catalog.CategoryEntry{
		CategoryKey:  category,
		EntryKey:     catalog.SubcategoryEntryKey(subcategory),
		Translations: translations,
	}

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal category entry")
	}

	err = r.execute(ctx, "UpsertSubcategory", func(ctx context.Context) error {
		_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      item,
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("subcategory upserted",
		zap.String("category", category),
		zap.String("subcategory", subcategory),
	)
	return &entry, nil
}

// DeleteSubcategory removes one SUB# row under a presence condition;
// the conditional-failure signal is read as NotFound.
func (r *CategoryRepository) DeleteSubcategory(ctx context.Context, category, subcategory string) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("entryKey"))).
		Build()
	if err != nil {
		return apperrors.Wrap(err, "failed to build condition expression")
	}

	err = r.execute(ctx, "DeleteSubcategory", func(ctx context.Context) error {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                 aws.String(r.tableName),
			Key:                       categoryKey(category, catalog.SubcategoryEntryKey(subcategory)),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			var condFailed *types.ConditionalCheckFailedException
			if errors.As(err, &condFailed) {
				return apperrors.NewNotFoundError(fmt.Sprintf("subcategory %s in %s", subcategory, category))
			}
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("subcategory deleted",
		zap.String("category", category),
		zap.String("subcategory", subcategory),
	)
	return nil
}

// DeleteCategory removes the METADATA row and every SUB# row in two
// phases: enumerate, then one batch delete. Categories hold far fewer
// rows than the store's 25-item batch ceiling; beyond that the batch
// call itself rejects the request rather than silently truncating.
func (r *CategoryRepository) DeleteCategory(ctx context.Context, name string) (int, error) {
	keyCond := expression.Key("categoryKey").Equal(expression.Value(name))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to build query expression")
	}

	deleted := 0
	err = r.execute(ctx, "DeleteCategory", func(ctx context.Context) error {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		if len(out.Items) == 0 {
			return apperrors.NewNotFoundError(fmt.Sprintf("category %s", name))
		}
		if len(out.Items) > batchWriteCeiling {
			return apperrors.NewValidationError(fmt.Sprintf("category %s has too many entries to delete in one batch", name))
		}

		requests := make([]types.WriteRequest, 0, len(out.Items))
		for _, item := range out.Items {
			var entry catalog.CategoryEntry
			if err := attributevalue.UnmarshalMap(item, &entry); err != nil {
				return apperrors.Wrap(err, "failed to unmarshal category entry")
			}
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: categoryKey(entry.CategoryKey, entry.EntryKey),
				},
			})
		}

		_, err = r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.tableName: requests,
			},
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		deleted = len(requests)
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("category deleted",
		zap.String("category", name),
		zap.Int("entries", deleted),
	)
	return deleted, nil
}

func categoryKey(category, entry string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"categoryKey": &types.AttributeValueMemberS{Value: category},
		"entryKey":    &types.AttributeValueMemberS{Value: entry},
	}
}

func projectTranslations(items []map[string]types.AttributeValue) ([]catalog.LocalizedText, error) {
	translations := make([]catalog.LocalizedText, 0, len(items))
	for _, item := range items {
		var entry catalog.CategoryEntry
		if err := attributevalue.UnmarshalMap(item, &entry); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal category entry")
		}
		translations = append(translations, entry.Translations)
	}
	return translations, nil
}
