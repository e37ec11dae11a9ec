package storage

import (
	"context"
	"io"
)

// Storage stores attachment objects by key.
type Storage interface {
	// Put writes size bytes from r. Without WithKey the key is generated
	// from the tenant, prefix and filename options.
	Put(ctx context.Context, r io.Reader, size int64, opts ...Option) (*FileInfo, error)

	// Get opens the object at key. The caller closes the reader.
	// A missing object yields ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key. A missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// Driver names accepted in Config.Driver.
const (
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Config describes the attachment bucket.
type Config struct {
	Driver    string `env:"STORAGE_DRIVER" envDefault:"s3"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"ship-attachments"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	// Endpoint points at an S3-compatible service such as MinIO or R2.
	Endpoint  string `env:"STORAGE_ENDPOINT"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	PathStyle bool   `env:"STORAGE_PATH_STYLE" envDefault:"false"`

	// MaxObjectSize caps how many bytes ReadAll pulls for one object.
	MaxObjectSize int64 `env:"STORAGE_MAX_OBJECT_SIZE" envDefault:"26214400"`
}

// FileInfo describes a stored object.
type FileInfo struct {
	Key         string
	ContentType string
	Size        int64
}

const (
	DefaultRegion = "us-east-1"
	// DefaultMaxObjectSize matches the message cap of common SMTP relays.
	DefaultMaxObjectSize = 25 << 20
)

func (c Config) withDefaults() Config {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.MaxObjectSize <= 0 {
		c.MaxObjectSize = DefaultMaxObjectSize
	}
	return c
}
