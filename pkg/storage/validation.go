package storage

import "fmt"

// Codes carried by FileValidationError.
const (
	ErrCodeFileTooLarge = "file_too_large"
	ErrCodeEmptyFile    = "empty_file"
)

// FileValidationError rejects an upload before it reaches the store.
type FileValidationError struct {
	Field   string
	Code    string
	Message string
	Details map[string]any
}

func (e *FileValidationError) Error() string { return e.Message }

// Rule checks an upload by its size and detected content type.
type Rule func(size int64, contentType string) error

// MaxSize rejects uploads larger than limit bytes.
func MaxSize(limit int64) Rule {
	return func(size int64, _ string) error {
		if size <= limit {
			return nil
		}
		return &FileValidationError{
			Field:   "file",
			Code:    ErrCodeFileTooLarge,
			Message: fmt.Sprintf("file size %d exceeds limit of %d bytes", size, limit),
			Details: map[string]any{"limit": limit, "got": size},
		}
	}
}

// NotEmpty rejects zero-byte uploads.
func NotEmpty() Rule {
	return func(size int64, _ string) error {
		if size > 0 {
			return nil
		}
		return &FileValidationError{Field: "file", Code: ErrCodeEmptyFile, Message: "file is empty"}
	}
}

func checkRules(size int64, contentType string, rules []Rule) error {
	for _, rule := range rules {
		if err := rule(size, contentType); err != nil {
			return err
		}
	}
	return nil
}
