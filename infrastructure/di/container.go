// Package di wires the application together. The container is built by
// hand: construction order is explicit and there are few enough
// components that generated wiring would add a build step for nothing.
package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"catalogo-backend/application/ports"
	"catalogo-backend/infrastructure/config"
	"catalogo-backend/infrastructure/persistence/dynamodb"
	"catalogo-backend/infrastructure/storage/s3"
	apperrors "catalogo-backend/pkg/errors"
	"catalogo-backend/pkg/retry"
)

// Container holds every constructed component.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	ProductRepository  ports.ProductRepository
	CategoryRepository ports.CategoryRepository
	ImageStore         ports.ImageStore

	ErrorHandler *apperrors.ErrorHandler
}

// NewContainer builds the full dependency graph from configuration.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := provideLogger(cfg)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}

	return buildContainer(cfg, awsCfg, logger), nil
}

func buildContainer(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) *Container {
	debug := !cfg.IsProduction()

	dynamoClient := awsdynamodb.NewFromConfig(awsCfg)
	s3Client := awss3.NewFromConfig(awsCfg)
	presigner := awss3.NewPresignClient(s3Client)

	retryCfg := retry.Config{
		MaxAttempts:  cfg.RetryMaxAttempts,
		InitialDelay: cfg.RetryInitialDelay,
		MaxDelay:     cfg.RetryMaxDelay,
	}
	breakerCfg := retry.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerFailureThreshold,
		ResetTimeout:     cfg.BreakerResetTimeout,
	}

	// One breaker per downstream dependency: a struggling table must
	// not shed load for the bucket, and vice versa.
	dynamoBreaker := retry.NewCircuitBreaker(breakerCfg, logger.Named("dynamodb"))
	s3Breaker := retry.NewCircuitBreaker(breakerCfg, logger.Named("s3"))

	productRepo := dynamodb.NewProductRepository(
		dynamoClient,
		cfg.ProductsTable,
		cfg.CategoryIndex,
		cfg.CodeIndex,
		retry.NewRetrier(retryCfg, logger),
		dynamoBreaker,
		logger,
		debug,
	)

	categoryRepo := dynamodb.NewCategoryRepository(
		dynamoClient,
		cfg.CategoriesTable,
		retry.NewRetrier(retryCfg, logger),
		dynamoBreaker,
		logger,
		debug,
	)

	imageStore := s3.NewImageStore(
		s3Client,
		presigner,
		cfg.ImagesBucket,
		cfg.AWSRegion,
		retry.NewRetrier(retryCfg, logger),
		s3Breaker,
		logger,
		debug,
	)

	return &Container{
		Config:             cfg,
		Logger:             logger,
		ProductRepository:  productRepo,
		CategoryRepository: categoryRepo,
		ImageStore:         imageStore,
		ErrorHandler:       apperrors.NewErrorHandler(logger, debug),
	}
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
