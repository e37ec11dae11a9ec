package storage

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	ErrInvalidConfig = errors.New("storage: invalid configuration")
	ErrInvalidKey    = errors.New("storage: invalid key")
	ErrEmptyFile     = errors.New("storage: file is empty")
	ErrTooLarge      = errors.New("storage: object exceeds size limit")
	ErrNotFound      = errors.New("storage: object not found")
	ErrAccessDenied  = errors.New("storage: access denied")

	ErrReadFailed   = errors.New("storage: read failed")
	ErrUploadFailed = errors.New("storage: upload failed")
	ErrDeleteFailed = errors.New("storage: delete failed")
)

// classifyS3 turns an SDK error into one of the sentinels, falling back to op.
// The SDK error is kept in the message only.
func classifyS3(err error, op error) error {
	sentinel := op

	var noKey *types.NoSuchKey
	var apiErr smithy.APIError
	switch {
	case errors.As(err, &noKey):
		sentinel = ErrNotFound
	case errors.As(err, &apiErr):
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			sentinel = ErrNotFound
		case "AccessDenied", "Forbidden":
			sentinel = ErrAccessDenied
		}
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
