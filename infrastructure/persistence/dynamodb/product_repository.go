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
	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalogo-backend/application/ports"
	"catalogo-backend/domain/catalog"
	apperrors "catalogo-backend/pkg/errors"
	"catalogo-backend/pkg/retry"
	"catalogo-backend/pkg/utils"
)

// ProductRepository implements ports.ProductRepository against the
// products table and its two secondary indexes: CategoryIndex keyed on
// categoryFlat and CodeIndex keyed on code.
type ProductRepository struct {
	client        DynamoDBAPI
	tableName     string
	categoryIndex string
	codeIndex     string
	retrier       *retry.Retrier
	breaker       *retry.CircuitBreaker
	logger        *zap.Logger
	debug         bool
}

// NewProductRepository creates a product repository. The breaker may
// be nil, in which case calls run under retry alone.
func NewProductRepository(
	client DynamoDBAPI,
	tableName, categoryIndex, codeIndex string,
	retrier *retry.Retrier,
	breaker *retry.CircuitBreaker,
	logger *zap.Logger,
	debug bool,
) ports.ProductRepository {
	return &ProductRepository{
		client:        client,
		tableName:     tableName,
		categoryIndex: categoryIndex,
		codeIndex:     codeIndex,
		retrier:       retrier,
		breaker:       breaker,
		logger:        logger.Named("product_repository"),
		debug:         debug,
	}
}

// execute runs one logical store interaction under the breaker and the
// retry wrapper. A rejected call surfaces as ServiceUnavailable.
func (r *ProductRepository) execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
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

// Create writes a new product. The conditional expression asserts that
// no row carries the product code; the store's conditional-failure
// signal is read as Conflict here because absence was asserted.
func (r *ProductRepository) Create(ctx context.Context, product *catalog.Product) (*catalog.Product, error) {
	now := utils.NowRFC3339()

	p := *product
	p.ProductID = uuid.New().String()
	p.Code = catalog.NormalizeCode(p.Code)
	p.UnitsPerPallet = catalog.DerivePalletUnits(p.UnitsPerBox, p.BoxesPerPallet)
	p.CategoryFlat = p.Category.Primary()
	p.SubcategoryFlat = p.Subcategory.Primary()
	p.CreatedAt = now
	p.UpdatedAt = now

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal product")
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("code"))).
		Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build condition expression")
	}

	err = r.execute(ctx, "CreateProduct", func(ctx context.Context) error {
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
				return apperrors.NewConflictError(fmt.Sprintf("product with code %s already exists", p.Code))
			}
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("product created",
		zap.String("productId", p.ProductID),
		zap.String("code", p.Code),
	)
	return &p, nil
}

// GetByID performs a point read; an absent row surfaces as NotFound.
func (r *ProductRepository) GetByID(ctx context.Context, productID string) (*catalog.Product, error) {
	var product catalog.Product

	err := r.execute(ctx, "GetProductByID", func(ctx context.Context) error {
		out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"productId": &types.AttributeValueMemberS{Value: productID},
			},
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		if out.Item == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("product with ID %s", productID))
		}
		if err := attributevalue.UnmarshalMap(out.Item, &product); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetByCode queries the code index. An absent code is not an error;
// callers use the nil result to probe for duplicates.
func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*catalog.Product, error) {
	keyCond := expression.Key("code").Equal(expression.Value(catalog.NormalizeCode(code)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build key condition")
	}

	var product *catalog.Product
	err = r.execute(ctx, "GetProductByCode", func(ctx context.Context) error {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(r.codeIndex),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			Limit:                     aws.Int32(1),
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		if len(out.Items) == 0 {
			product = nil
			return nil
		}
		var p catalog.Product
		if err := attributevalue.UnmarshalMap(out.Items[0], &p); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal product")
		}
		product = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Update applies a partial patch under an existence condition; the
// conditional-failure signal is read as NotFound because presence was
// asserted. When either pallet operand changes, the current row is
// read first so the derived unitsPerPallet is recomputed from both
// operands rather than trusted from the caller.
func (r *ProductRepository) Update(ctx context.Context, productID string, patch catalog.ProductUpdate) (*catalog.Product, error) {
	if patch.IsEmpty() {
		return nil, apperrors.NewValidationError("no fields to update")
	}

	update := expression.Set(expression.Name("updatedAt"), expression.Value(utils.NowRFC3339()))
	removeDerived := false

	if patch.TouchesPalletInputs() {
		current, err := r.GetByID(ctx, productID)
		if err != nil {
			return nil, err
		}

		unitsPerBox := current.UnitsPerBox
		if patch.UnitsPerBox != nil {
			unitsPerBox = patch.UnitsPerBox
		}
		boxesPerPallet := current.BoxesPerPallet
		if patch.BoxesPerPallet != nil {
			boxesPerPallet = patch.BoxesPerPallet
		}

		if derived := catalog.DerivePalletUnits(unitsPerBox, boxesPerPallet); derived != nil {
			update = update.Set(expression.Name("unitsPerPallet"), expression.Value(*derived))
		} else {
			removeDerived = true
		}
	}

	if patch.Code != nil {
		// Code uniqueness is only enforced at creation.
		update = update.Set(expression.Name("code"), expression.Value(catalog.NormalizeCode(*patch.Code)))
	}
	if patch.Name != nil {
		update = update.Set(expression.Name("name"), expression.Value(*patch.Name))
	}
	if patch.Description != nil {
		update = update.Set(expression.Name("description"), expression.Value(*patch.Description))
	}
	if patch.Category != nil {
		update = update.Set(expression.Name("category"), expression.Value(*patch.Category))
		update = update.Set(expression.Name("categoryFlat"), expression.Value(patch.Category.Primary()))
	}
	if patch.Subcategory != nil {
		update = update.Set(expression.Name("subcategory"), expression.Value(*patch.Subcategory))
		update = update.Set(expression.Name("subcategoryFlat"), expression.Value(patch.Subcategory.Primary()))
	}
	if patch.Price != nil {
		update = update.Set(expression.Name("price"), expression.Value(*patch.Price))
	}
	if patch.PriceUnit != nil {
		update = update.Set(expression.Name("priceUnit"), expression.Value(*patch.PriceUnit))
	}
	if patch.PackagingType != nil {
		update = update.Set(expression.Name("packagingType"), expression.Value(*patch.PackagingType))
	}
	if patch.UnitsPerBox != nil {
		update = update.Set(expression.Name("unitsPerBox"), expression.Value(*patch.UnitsPerBox))
	}
	if patch.BoxesPerPallet != nil {
		update = update.Set(expression.Name("boxesPerPallet"), expression.Value(*patch.BoxesPerPallet))
	}
	if patch.Images != nil {
		update = update.Set(expression.Name("images"), expression.Value(*patch.Images))
	}
	if removeDerived {
		update = update.Remove(expression.Name("unitsPerPallet"))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("productId"))).
		Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build update expression")
	}

	var updated catalog.Product
	err = r.execute(ctx, "UpdateProduct", func(ctx context.Context) error {
		out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"productId": &types.AttributeValueMemberS{Value: productID},
			},
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ReturnValues:              types.ReturnValueAllNew,
		})
		if err != nil {
			var condFailed *types.ConditionalCheckFailedException
			if errors.As(err, &condFailed) {
				return apperrors.NewNotFoundError(fmt.Sprintf("product with ID %s", productID))
			}
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal updated product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("product updated", zap.String("productId", productID))
	return &updated, nil
}

// Delete removes the row under an existence condition; NotFound when
// the condition fails. Image cleanup belongs to the caller.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("productId"))).
		Build()
	if err != nil {
		return apperrors.Wrap(err, "failed to build condition expression")
	}

	err = r.execute(ctx, "DeleteProduct", func(ctx context.Context) error {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"productId": &types.AttributeValueMemberS{Value: productID},
			},
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			var condFailed *types.ConditionalCheckFailedException
			if errors.As(err, &condFailed) {
				return apperrors.NewNotFoundError(fmt.Sprintf("product with ID %s", productID))
			}
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("product deleted", zap.String("productId", productID))
	return nil
}

// List scans the whole table one page at a time.
func (r *ProductRepository) List(ctx context.Context, page ports.PageRequest) (*ports.ProductPage, error) {
	startKey, err := decodeCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	var result *ports.ProductPage
	err = r.execute(ctx, "ListProducts", func(ctx context.Context) error {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			Limit:             aws.Int32(clampLimit(page.Limit)),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		result, err = buildProductPage(out.Items, out.LastEvaluatedKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListByCategory queries the category index on the flat field.
func (r *ProductRepository) ListByCategory(ctx context.Context, category string, page ports.PageRequest) (*ports.ProductPage, error) {
	return r.queryByCategory(ctx, "ListProductsByCategory", category, nil, page)
}

// ListByCategoryAndSubcategory narrows a category query with a
// post-index filter. The filter matches either the flat subcategory
// field or the nested default-language field: rows written before the
// flat fields existed only carry the nested shape, and both checks
// stay until every historical row is confirmed normalized.
func (r *ProductRepository) ListByCategoryAndSubcategory(ctx context.Context, category, subcategory string, page ports.PageRequest) (*ports.ProductPage, error) {
	filter := expression.Or(
		expression.Name("subcategoryFlat").Equal(expression.Value(subcategory)),
		expression.Name("subcategory."+catalog.DefaultLanguage).Equal(expression.Value(subcategory)),
	)
	return r.queryByCategory(ctx, "ListProductsByCategoryAndSubcategory", category, &filter, page)
}

func (r *ProductRepository) queryByCategory(ctx context.Context, operation, category string, filter *expression.ConditionBuilder, page ports.PageRequest) (*ports.ProductPage, error) {
	startKey, err := decodeCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key("categoryFlat").Equal(expression.Value(category)))
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build query expression")
	}

	var result *ports.ProductPage
	err = r.execute(ctx, operation, func(ctx context.Context) error {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(r.categoryIndex),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			Limit:                     aws.Int32(clampLimit(page.Limit)),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, r.debug)
		}
		result, err = buildProductPage(out.Items, out.LastEvaluatedKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildProductPage(items []map[string]types.AttributeValue, lastKey map[string]types.AttributeValue) (*ports.ProductPage, error) {
	products := make([]catalog.Product, 0, len(items))
	for _, item := range items {
		var p catalog.Product
		if err := attributevalue.UnmarshalMap(item, &p); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal product")
		}
		products = append(products, p)
	}

	return &ports.ProductPage{
		Items:      products,
		NextCursor: encodeCursor(lastKey),
		HasMore:    len(lastKey) > 0,
	}, nil
}
