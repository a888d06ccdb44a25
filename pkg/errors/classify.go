package errors

import (
	"errors"

	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Transient fault codes surfaced by the AWS SDK. Matching is on the
// SDK's typed error codes, never on message text.
var transientCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
	"RequestTimeout":                         true,
	"ServiceUnavailable":                     true,
	"InternalServerError":                    true,
}

// ClassifyStoreError maps a raw store error onto the application
// taxonomy. A conditional-check failure classifies as Conflict by
// default; data-access methods that asserted a presence condition
// catch it before calling this and reinterpret it as NotFound.
//
// The debug flag controls whether the underlying message is attached
// to unrecognized errors; it must be false in production.
func ClassifyStoreError(err error, debug bool) *AppError {
	if err == nil {
		return nil
	}

	// Already classified upstream
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}

	var condFailed *dynamodbtypes.ConditionalCheckFailedException
	if errors.As(err, &condFailed) {
		return NewConflictError("resource already exists or condition failed").WithCause(err)
	}

	var tableMissing *dynamodbtypes.ResourceNotFoundException
	if errors.As(err, &tableMissing) {
		return NewNotFoundError("resource").WithCause(err)
	}

	var throughput *dynamodbtypes.ProvisionedThroughputExceededException
	if errors.As(err, &throughput) {
		return NewUnavailableError("service temporarily overloaded, please retry").WithCause(err)
	}

	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return NewNotFoundError("file").WithCause(err)
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return NewNotFoundError("file").WithCause(err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && transientCodes[apiErr.ErrorCode()] {
		return NewUnavailableError("service temporarily overloaded, please retry").WithCause(err)
	}

	internal := NewInternalError("internal server error").WithCause(err)
	if debug {
		internal.Details = map[string]interface{}{"cause": err.Error()}
	}
	return internal
}

// IsRetryable reports whether retrying the operation could change the
// outcome. Validation, NotFound, Conflict and Unauthorized errors are
// never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if appErr := GetAppError(err); appErr != nil {
		return appErr.Type == ErrorTypeUnavailable
	}

	var throughput *dynamodbtypes.ProvisionedThroughputExceededException
	if errors.As(err, &throughput) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return transientCodes[apiErr.ErrorCode()]
	}

	return false
}
