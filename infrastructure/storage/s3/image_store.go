// Package s3 implements the product image store on top of an S3 bucket.
// Object keys live under products/ and are always freshly generated
// UUID names, so concurrent uploads never collide.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalogo-backend/application/ports"
	"catalogo-backend/domain/catalog"
	apperrors "catalogo-backend/pkg/errors"
	"catalogo-backend/pkg/retry"
)

// UploadTTL bounds presigned upload URLs.
const UploadTTL = 300 * time.Second

const keyPrefix = "products/"

// keyFromURLPattern matches the bucket's public object URLs, e.g.
// https://bucket.s3.eu-south-1.amazonaws.com/products/abc.jpg.
var keyFromURLPattern = regexp.MustCompile(`amazonaws\.com/(.+)$`)

// S3API is the slice of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// PresignAPI is the slice of the S3 presign client the store uses.
type PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ImageStore implements ports.ImageStore.
type ImageStore struct {
	client    S3API
	presigner PresignAPI
	bucket    string
	region    string
	retrier   *retry.Retrier
	breaker   *retry.CircuitBreaker
	logger    *zap.Logger
	debug     bool
}

// NewImageStore creates the store. The breaker may be nil.
func NewImageStore(
	client S3API,
	presigner PresignAPI,
	bucket string,
	region string,
	retrier *retry.Retrier,
	breaker *retry.CircuitBreaker,
	logger *zap.Logger,
	debug bool,
) ports.ImageStore {
	return &ImageStore{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		region:    region,
		retrier:   retrier,
		breaker:   breaker,
		logger:    logger.Named("image_store"),
		debug:     debug,
	}
}

func (s *ImageStore) execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	err := s.retrier.Do(ctx, operation, func(ctx context.Context) error {
		if s.breaker != nil {
			return s.breaker.Execute(func() error { return fn(ctx) })
		}
		return fn(ctx)
	})
	if errors.Is(err, retry.ErrCircuitOpen) {
		return apperrors.NewUnavailableError("").WithCause(err)
	}
	return err
}

// Upload stores the bytes under a fresh key and returns the public URL.
func (s *ImageStore) Upload(ctx context.Context, fileName, contentType string, body []byte, metadata map[string]string) (string, error) {
	if !catalog.IsAllowedImageType(contentType) {
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported image type %s", contentType))
	}
	if len(body) > catalog.MaxImageSizeBytes {
		return "", apperrors.NewValidationError(fmt.Sprintf("image exceeds the %d byte limit", catalog.MaxImageSizeBytes))
	}

	key := s.newKey(fileName)
	err := s.execute(ctx, "UploadImage", func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
			Metadata:    metadata,
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, s.debug)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("image uploaded", zap.String("key", key), zap.Int("bytes", len(body)))
	return s.PublicURL(key), nil
}

func (s *ImageStore) Delete(ctx context.Context, key string) error {
	err := s.execute(ctx, "DeleteImage", func(ctx context.Context) error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return apperrors.ClassifyStoreError(err, s.debug)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("image deleted", zap.String("key", key))
	return nil
}

// DeleteMany removes keys best-effort. A key that fails is logged and
// skipped; the cleanup never escalates to the caller.
func (s *ImageStore) DeleteMany(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.Delete(ctx, key); err != nil {
			s.logger.Warn("image cleanup failed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

// Exists reports whether the object is present. A missing object is a
// negative answer, not an error.
func (s *ImageStore) Exists(ctx context.Context, key string) (bool, error) {
	exists := false
	err := s.execute(ctx, "HeadImage", func(ctx context.Context) error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			classified := apperrors.ClassifyStoreError(err, s.debug)
			if apperrors.IsNotFound(classified) {
				exists = false
				return nil
			}
			return classified
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// PresignUpload grants a short-lived PUT for a fresh key. The caller
// must send the same content type it declares here.
func (s *ImageStore) PresignUpload(ctx context.Context, fileName, contentType string) (*ports.PresignedUpload, error) {
	if !catalog.IsAllowedImageType(contentType) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported image type %s", contentType))
	}

	key := s.newKey(fileName)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = UploadTTL
	})
	if err != nil {
		return nil, apperrors.ClassifyStoreError(err, s.debug)
	}

	s.logger.Info("upload presigned", zap.String("key", key), zap.String("contentType", contentType))
	return &ports.PresignedUpload{
		UploadURL: req.URL,
		FileKey:   key,
		PublicURL: s.PublicURL(key),
		ExpiresIn: int(UploadTTL.Seconds()),
	}, nil
}

// PresignDownload grants a short-lived GET. The object's presence is
// checked first so a grant is never handed out for a missing key.
func (s *ImageStore) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("image %s", key))
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", apperrors.ClassifyStoreError(err, s.debug)
	}
	return req.URL, nil
}

// PublicURL builds the canonical object URL for a key.
func (s *ImageStore) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// KeyFromURL extracts the object key from a public URL. Unrecognized
// URLs yield the empty string.
func (s *ImageStore) KeyFromURL(url string) string {
	m := keyFromURLPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

func (s *ImageStore) newKey(fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = ".jpg"
	}
	return keyPrefix + uuid.New().String() + ext
}
